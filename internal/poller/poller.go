// Package poller implements the desktop side of the hand-off: a fixed
// interval fetch of session state until the target photo count is reached or
// the poller is torn down.
package poller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stayfinder/capture-app/internal/apiclient"
)

// DefaultInterval between polls.
const DefaultInterval = 2 * time.Second

// ErrSessionGone is returned when the polled session no longer resolves;
// the desktop created it, so this signals a real fault, not a retry case.
var ErrSessionGone = errors.New("polled session not found")

// Fetcher retrieves session state. *apiclient.Client satisfies this.
type Fetcher interface {
	GetSession(ctx context.Context, sessionID string) (*apiclient.SessionState, error)
}

// Poller watches one session until completion or cancellation.
type Poller struct {
	fetcher   Fetcher
	sessionID string
	interval  time.Duration
	lastCount int
}

// New creates a poller for the given session. interval <= 0 selects
// DefaultInterval.
func New(fetcher Fetcher, sessionID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:   fetcher,
		sessionID: sessionID,
		interval:  interval,
	}
}

// Run polls until the session's photo count reaches its target, the context
// is cancelled, or the session stops resolving. onUpdate receives each fresh
// snapshot; it fully replaces any previously displayed state. Snapshots with
// fewer photos than already seen are dropped: polled state only grows, so a
// lower count means a slow response arrived after a faster later one.
//
// Cancelling ctx stops the ticker and guarantees no further fetches.
func (p *Poller) Run(ctx context.Context, onUpdate func(*apiclient.SessionState)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First poll fires immediately so the desktop renders without waiting a
	// full interval.
	for {
		done, err := p.pollOnce(ctx, onUpdate)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, onUpdate func(*apiclient.SessionState)) (bool, error) {
	state, err := p.fetcher.GetSession(ctx, p.sessionID)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, ErrSessionGone
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Transient fetch failure; keep polling.
		return false, nil
	}

	// Stale response guard.
	if state.PhotoCount < p.lastCount {
		return false, nil
	}
	p.lastCount = state.PhotoCount

	if onUpdate != nil {
		onUpdate(state)
	}

	return state.TargetCount > 0 && state.PhotoCount >= state.TargetCount, nil
}
