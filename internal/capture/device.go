package capture

import (
	"context"
	"fmt"
	"time"

	"stayfinder/capture-app/internal/domain"
)

// ErrorKind classifies device-local failures from the camera or geolocation
// layer. Raw platform error strings are never shown to the user directly;
// they are mapped to one of these kinds first.
type ErrorKind int

const (
	// KindPermissionDenied is terminal until the user changes device
	// settings; the client must not auto-retry.
	KindPermissionDenied ErrorKind = iota
	KindDeviceNotFound
	KindDeviceBusy
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission denied"
	case KindDeviceNotFound:
		return "device not found"
	case KindDeviceBusy:
		return "device in use"
	default:
		return "unknown device error"
	}
}

// DeviceError wraps a platform error with its classification.
type DeviceError struct {
	Kind ErrorKind
	Code string // platform error code, kept for diagnostics only
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Code)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Retryable reports whether the UI may offer a retry action. Permission
// denial is the only kind that requires action outside the app.
func (e *DeviceError) Retryable() bool {
	return e.Kind != KindPermissionDenied
}

// ClassifyDeviceError maps a platform error code to a DeviceError. Codes
// follow the media-capture convention ("NotAllowedError" and friends);
// anything unrecognized classifies as unknown, which is retryable.
func ClassifyDeviceError(code string, err error) *DeviceError {
	kind := KindUnknown
	switch code {
	case "NotAllowedError", "PermissionDeniedError", "PERMISSION_DENIED":
		kind = KindPermissionDenied
	case "NotFoundError", "DevicesNotFoundError", "POSITION_UNAVAILABLE":
		kind = KindDeviceNotFound
	case "NotReadableError", "TrackStartError", "AbortError":
		kind = KindDeviceBusy
	}
	return &DeviceError{Kind: kind, Code: code, Err: err}
}

// LocationOptions tune one geolocation attempt.
type LocationOptions struct {
	// HighAccuracy requests GPS-grade positioning.
	HighAccuracy bool
	// Timeout bounds the attempt.
	Timeout time.Duration
	// MaximumAge allows a cached fix no older than this. Zero forces a
	// fresh reading.
	MaximumAge time.Duration
}

// Geolocator acquires the device position. Implementations return a
// *DeviceError for classified platform failures.
type Geolocator interface {
	Current(ctx context.Context, opts LocationOptions) (domain.GeoLocation, error)
}

// Camera acquires still frames from the device camera. Release must be safe
// to call multiple times; the machine calls it on every exit path so an open
// camera stream can never leak.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
	Release()
}

// Uploader submits one photo to the intake pipeline and returns the
// server-reported photo count, which is the source of truth for progress.
// *apiclient.Client satisfies this.
type Uploader interface {
	UploadPhoto(ctx context.Context, sessionID string, image []byte, location domain.GeoLocation) (photoCount int, filename string, err error)
}
