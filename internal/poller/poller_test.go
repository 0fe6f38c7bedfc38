package poller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"stayfinder/capture-app/internal/apiclient"
)

// scriptedFetcher replays a fixed sequence of states, repeating the last one
// once the script runs out.
type scriptedFetcher struct {
	states []*apiclient.SessionState
	errs   []error
	calls  int
}

func (f *scriptedFetcher) GetSession(ctx context.Context, sessionID string) (*apiclient.SessionState, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	return f.states[i], nil
}

func state(count, target int) *apiclient.SessionState {
	return &apiclient.SessionState{
		SessionID:   "s",
		PhotoCount:  count,
		TargetCount: target,
	}
}

func TestPollerStopsAtTarget(t *testing.T) {
	fetcher := &scriptedFetcher{states: []*apiclient.SessionState{
		state(0, 2), state(1, 2), state(2, 2),
	}}
	p := New(fetcher, "s", time.Millisecond)

	var seen []int
	err := p.Run(context.Background(), func(s *apiclient.SessionState) {
		seen = append(seen, s.PhotoCount)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fetcher.calls != 3 {
		t.Errorf("fetched %d times, want 3 (no polls after completion)", fetcher.calls)
	}
	want := []int{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("updates = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("updates = %v, want %v", seen, want)
		}
	}
}

func TestPollerDiscardsStaleSnapshot(t *testing.T) {
	// A slow response with fewer photos arrives after a fresher one; the
	// display must never roll backward.
	fetcher := &scriptedFetcher{states: []*apiclient.SessionState{
		state(1, 2), state(0, 2), state(2, 2),
	}}
	p := New(fetcher, "s", time.Millisecond)

	var seen []int
	if err := p.Run(context.Background(), func(s *apiclient.SessionState) {
		seen = append(seen, s.PhotoCount)
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, count := range seen {
		if count == 0 {
			t.Fatalf("stale snapshot delivered: %v", seen)
		}
	}
	if seen[len(seen)-1] != 2 {
		t.Errorf("final update = %d, want 2", seen[len(seen)-1])
	}
}

func TestPollerCancellation(t *testing.T) {
	fetcher := &scriptedFetcher{states: []*apiclient.SessionState{state(0, 2)}}
	p := New(fetcher, "s", time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// No further fetches after teardown.
	calls := fetcher.calls
	time.Sleep(10 * time.Millisecond)
	if fetcher.calls != calls {
		t.Errorf("poller kept fetching after cancellation")
	}
}

func TestPollerSessionGone(t *testing.T) {
	fetcher := &scriptedFetcher{
		states: []*apiclient.SessionState{state(0, 2)},
		errs:   []error{&apiclient.APIError{StatusCode: http.StatusNotFound, Message: "capture session not found"}},
	}
	p := New(fetcher, "s", time.Millisecond)

	err := p.Run(context.Background(), nil)
	if !errors.Is(err, ErrSessionGone) {
		t.Fatalf("err = %v, want ErrSessionGone", err)
	}
}

func TestPollerSurvivesTransientErrors(t *testing.T) {
	fetcher := &scriptedFetcher{
		states: []*apiclient.SessionState{state(2, 2), state(2, 2)},
		errs:   []error{errors.New("connection reset")},
	}
	p := New(fetcher, "s", time.Millisecond)

	if err := p.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fetcher.calls < 2 {
		t.Errorf("fetched %d times, want a retry after the transient error", fetcher.calls)
	}
}
