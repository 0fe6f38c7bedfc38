package capture

import (
	"context"
	"errors"
	"time"

	"stayfinder/capture-app/internal/domain"
)

// Timeouts for the two location acquisition tiers.
const (
	locationAttemptTimeout = 15 * time.Second
	// A cached low-accuracy fix is acceptable if it is at most this old.
	lowAccuracyMaxAge = 60 * time.Second
)

// acquireLocation runs the two-tier strategy: a high-accuracy attempt first,
// then a low-accuracy attempt that tolerates a cached fix. Permission denial
// short-circuits the second tier — retrying cannot succeed until the user
// changes device settings.
func acquireLocation(ctx context.Context, geo Geolocator) (domain.GeoLocation, error) {
	loc, err := geo.Current(ctx, LocationOptions{
		HighAccuracy: true,
		Timeout:      locationAttemptTimeout,
	})
	if err == nil {
		return loc, nil
	}

	var devErr *DeviceError
	if errors.As(err, &devErr) && devErr.Kind == KindPermissionDenied {
		return domain.GeoLocation{}, err
	}

	return geo.Current(ctx, LocationOptions{
		HighAccuracy: false,
		Timeout:      locationAttemptTimeout,
		MaximumAge:   lowAccuracyMaxAge,
	})
}
