package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoLocation is the device-reported position attached to every captured
// photo. AccuracyMeters is 0 when the device does not report an accuracy.
type GeoLocation struct {
	Latitude       float64 `bson:"latitude" json:"latitude"`
	Longitude      float64 `bson:"longitude" json:"longitude"`
	AccuracyMeters float64 `bson:"accuracyMeters" json:"accuracyMeters"`
}

// CapturedPhoto is one photo appended to a session. Filename and CapturedAt
// are always server-assigned at intake; clients never supply either.
type CapturedPhoto struct {
	Filename    string      `bson:"filename" json:"filename"`
	ImageData   []byte      `bson:"imageData" json:"imageData"`
	PreviewData []byte      `bson:"previewData,omitempty" json:"previewData,omitempty"`
	Location    GeoLocation `bson:"location" json:"location"`
	CapturedAt  time.Time   `bson:"capturedAt" json:"capturedAt"`
}

// PhotoSession coordinates a photo hand-off between a desktop and a phone.
// The SessionID is the sole capability to read or write the record: anyone
// holding it can append photos until ExpiresAt passes. Photos are embedded
// in the session document and are append-only; there is no delete operation,
// so the photo count only ever grows.
type PhotoSession struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"-"`
	SessionID   string              `bson:"sessionId" json:"sessionId"`
	OwnerRef    *primitive.ObjectID `bson:"ownerRef,omitempty" json:"ownerRef,omitempty"`
	TargetCount int                 `bson:"targetCount" json:"targetCount"`
	Photos      []CapturedPhoto     `bson:"photos" json:"photos"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time           `bson:"expiresAt" json:"expiresAt"`
}

// IsExpired reports whether the session's mutation window has closed.
// Reads stay valid after expiry; only photo intake is rejected.
func (s *PhotoSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PhotoCount returns the number of photos captured so far.
func (s *PhotoSession) PhotoCount() int {
	return len(s.Photos)
}

// IsComplete reports whether the session reached its target photo count.
func (s *PhotoSession) IsComplete() bool {
	return s.TargetCount > 0 && len(s.Photos) >= s.TargetCount
}
