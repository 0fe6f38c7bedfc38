// Package capture implements the mobile side of the photo hand-off as a
// small state machine: acquire a location, hold at most one captured photo,
// upload it, and loop until the server-reported count reaches the session's
// target. The machine is event-driven and single-threaded: all methods are
// expected to be called from one goroutine, mirroring a UI event loop.
package capture

import (
	"context"
	"errors"

	"stayfinder/capture-app/internal/domain"
)

// State is the machine's current position in the capture flow.
type State int

const (
	// StateAwaitingPermissions is the initial state; entering it requests
	// geolocation.
	StateAwaitingPermissions State = iota
	StateLocationAcquired
	StateLocationFailed
	// StatePhotoCaptured holds exactly one photo pending user action
	// (retake or upload); never more than one is in flight.
	StatePhotoCaptured
	StatePhotoPreview
	StateUploading
	StateUploadSucceeded
	StateUploadFailed
	// StateAllPhotosComplete is terminal: the server-reported count reached
	// the target.
	StateAllPhotosComplete
)

func (s State) String() string {
	switch s {
	case StateAwaitingPermissions:
		return "awaiting-permissions"
	case StateLocationAcquired:
		return "location-acquired"
	case StateLocationFailed:
		return "location-failed"
	case StatePhotoCaptured:
		return "photo-captured"
	case StatePhotoPreview:
		return "photo-preview"
	case StateUploading:
		return "uploading"
	case StateUploadSucceeded:
		return "upload-succeeded"
	case StateUploadFailed:
		return "upload-failed"
	case StateAllPhotosComplete:
		return "all-photos-complete"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidTransition   = errors.New("operation not valid in current state")
	ErrLocationRequired    = errors.New("upload requires an acquired location")
	ErrDevLocationDisabled = errors.New("development location override is not enabled")
	ErrMachineClosed       = errors.New("capture flow has been torn down")
)

// Config holds per-session parameters for the capture flow. TargetCount is
// injected rather than hard-coded: the desktop and mobile flows may ask for
// different counts.
type Config struct {
	SessionID   string
	TargetCount int

	// AllowDevLocation enables the fixed-coordinate override so the flow
	// can be exercised without real GPS. Never set in production.
	AllowDevLocation bool
	DevLocation      domain.GeoLocation
}

// Machine drives one mobile capture session.
type Machine struct {
	cfg      Config
	geo      Geolocator
	camera   Camera
	uploader Uploader

	state      State
	location   *domain.GeoLocation
	pending    []byte // the single held photo, nil when none
	photoCount int    // server-reported, never locally incremented
	lastErr    error
	closed     bool
}

// NewMachine creates a capture machine in StateAwaitingPermissions.
func NewMachine(cfg Config, geo Geolocator, camera Camera, uploader Uploader) *Machine {
	if cfg.TargetCount <= 0 {
		cfg.TargetCount = 2
	}
	return &Machine{
		cfg:      cfg,
		geo:      geo,
		camera:   camera,
		uploader: uploader,
		state:    StateAwaitingPermissions,
	}
}

func (m *Machine) State() State                  { return m.state }
func (m *Machine) PhotoCount() int               { return m.photoCount }
func (m *Machine) TargetCount() int              { return m.cfg.TargetCount }
func (m *Machine) Location() *domain.GeoLocation { return m.location }
func (m *Machine) Err() error                    { return m.lastErr }
func (m *Machine) HeldPhoto() []byte             { return m.pending }

// AcquireLocation runs the two-tier geolocation strategy. On success the
// capture UI becomes enabled; on failure the machine lands in
// StateLocationFailed with the classified error available via Err.
func (m *Machine) AcquireLocation(ctx context.Context) error {
	if m.closed {
		return ErrMachineClosed
	}
	if m.state != StateAwaitingPermissions {
		return ErrInvalidTransition
	}

	loc, err := acquireLocation(ctx, m.geo)
	if err != nil {
		m.lastErr = err
		m.state = StateLocationFailed
		return err
	}

	m.location = &loc
	m.lastErr = nil
	m.state = StateLocationAcquired
	return nil
}

// RetryLocation re-enters StateAwaitingPermissions and tries again. Only a
// deliberate user action should call this; permission denial is terminal
// until device settings change, so no automatic retry loop belongs here.
func (m *Machine) RetryLocation(ctx context.Context) error {
	if m.closed {
		return ErrMachineClosed
	}
	if m.state != StateLocationFailed {
		return ErrInvalidTransition
	}
	m.state = StateAwaitingPermissions
	return m.AcquireLocation(ctx)
}

// UseDevLocation substitutes the configured fixed coordinate for real GPS.
// Available only from StateLocationFailed and only when the override is
// enabled for this environment.
func (m *Machine) UseDevLocation() error {
	if m.closed {
		return ErrMachineClosed
	}
	if m.state != StateLocationFailed {
		return ErrInvalidTransition
	}
	if !m.cfg.AllowDevLocation {
		return ErrDevLocationDisabled
	}

	loc := m.cfg.DevLocation
	m.location = &loc
	m.lastErr = nil
	m.state = StateLocationAcquired
	return nil
}

// CapturePhoto grabs one still frame and holds it pending retake or upload.
// The camera handle is released as soon as the frame is read, whether or not
// the capture succeeded.
func (m *Machine) CapturePhoto(ctx context.Context) error {
	if m.closed {
		return ErrMachineClosed
	}
	if m.state != StateLocationAcquired && m.state != StateUploadSucceeded {
		return ErrInvalidTransition
	}

	frame, err := m.camera.Capture(ctx)
	m.camera.Release()
	if err != nil {
		m.lastErr = err
		return err
	}

	m.pending = frame
	m.lastErr = nil
	m.state = StatePhotoCaptured
	return nil
}

// Preview moves the held photo into the preview state and returns it.
func (m *Machine) Preview() ([]byte, error) {
	if m.closed {
		return nil, ErrMachineClosed
	}
	if m.state != StatePhotoCaptured {
		return nil, ErrInvalidTransition
	}
	m.state = StatePhotoPreview
	return m.pending, nil
}

// Retake discards the held photo and returns to the capture entry point.
func (m *Machine) Retake() error {
	if m.closed {
		return ErrMachineClosed
	}
	if m.state != StatePhotoCaptured && m.state != StatePhotoPreview && m.state != StateUploadFailed {
		return ErrInvalidTransition
	}
	m.pending = nil
	m.state = StateLocationAcquired
	return nil
}

// Upload submits the held photo with the last-acquired location. The action
// is disabled (not attempted) when no location is set. On failure the photo
// stays held so the user can retry without recapturing; on success the
// server's returned count drives progress, and the machine either loops back
// for the next capture or terminates at StateAllPhotosComplete.
func (m *Machine) Upload(ctx context.Context) error {
	if m.closed {
		return ErrMachineClosed
	}
	if m.state != StatePhotoCaptured && m.state != StatePhotoPreview && m.state != StateUploadFailed {
		return ErrInvalidTransition
	}
	if m.location == nil {
		return ErrLocationRequired
	}
	if m.pending == nil {
		return ErrInvalidTransition
	}

	m.state = StateUploading
	count, _, err := m.uploader.UploadPhoto(ctx, m.cfg.SessionID, m.pending, *m.location)
	if err != nil {
		m.lastErr = err
		m.state = StateUploadFailed
		return err
	}

	m.photoCount = count
	m.pending = nil
	m.lastErr = nil
	if m.photoCount >= m.cfg.TargetCount {
		m.state = StateAllPhotosComplete
	} else {
		m.state = StateUploadSucceeded
	}
	return nil
}

// Close tears the flow down and releases the camera. Safe to call from any
// state and more than once.
func (m *Machine) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.pending = nil
	m.camera.Release()
}
