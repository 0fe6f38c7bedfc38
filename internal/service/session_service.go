package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding for preview generation
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stayfinder/capture-app/internal/domain"
	"stayfinder/capture-app/internal/repository"
	"stayfinder/capture-app/internal/storage"
)

// --- Error Definitions ---
var (
	ErrInvalidRequest      = errors.New("missing required field in request")
	ErrSessionNotFound     = errors.New("capture session not found")
	ErrSessionExpired      = errors.New("capture session has expired")
	ErrStorageUnavailable  = errors.New("session store unavailable")
	ErrSessionAccessDenied = errors.New("session does not belong to this account")
	ErrExportUploadFailed  = errors.New("failed to export session photos")
	ErrExportURLError      = errors.New("failed to generate export download URL")
)

// How many times an intake retries its conditional append before giving up.
// Each retry re-reads the session and recomputes the sequence position.
const maxAppendAttempts = 5

const previewMaxDimension = 320

// IntakeResult is returned for each accepted photo.
type IntakeResult struct {
	PhotoCount int    `json:"photoCount"`
	Filename   string `json:"filename"`
}

// ExportedPhoto pairs a photo's filename with a presigned download URL for
// the copy mirrored to object storage.
type ExportedPhoto struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
}

// --- Service Interface ---

// SessionService is the lifecycle manager and intake pipeline for
// photo-capture hand-off sessions.
type SessionService interface {
	// CreateSession persists an empty session with a fresh capability token.
	// ownerRef is optional; targetCount <= 0 selects the configured default.
	CreateSession(ctx context.Context, ownerRef *primitive.ObjectID, targetCount int) (*domain.PhotoSession, error)

	// GetSession returns the session regardless of expiry, so status views
	// can render "expired" instead of a generic error.
	GetSession(ctx context.Context, sessionID string) (*domain.PhotoSession, error)

	// SubmitPhoto validates and appends one captured photo. Validation is
	// short-circuiting: missing inputs, then unknown session, then expiry.
	SubmitPhoto(ctx context.Context, sessionID string, imageData []byte, location *domain.GeoLocation) (*IntakeResult, error)

	// ExportSession mirrors the session's photos to object storage and
	// returns presigned download URLs. Only the owning host may export.
	ExportSession(ctx context.Context, accountID primitive.ObjectID, sessionID string) ([]ExportedPhoto, error)
}

// --- Service Implementation ---

type sessionService struct {
	sessionRepo   repository.SessionRepository
	fileStorage   storage.FileStorage
	sessionTTL    time.Duration
	defaultTarget int
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(sessionRepo repository.SessionRepository, fileStorage storage.FileStorage, sessionTTL time.Duration, defaultTarget int) SessionService {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	if defaultTarget <= 0 {
		defaultTarget = 2
	}
	return &sessionService{
		sessionRepo:   sessionRepo,
		fileStorage:   fileStorage,
		sessionTTL:    sessionTTL,
		defaultTarget: defaultTarget,
	}
}

// CreateSession generates the session token, stamps the expiry window, and
// persists an empty-photos record.
func (s *sessionService) CreateSession(ctx context.Context, ownerRef *primitive.ObjectID, targetCount int) (*domain.PhotoSession, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}
	if targetCount <= 0 {
		targetCount = s.defaultTarget
	}

	now := time.Now().UTC()
	session := &domain.PhotoSession{
		SessionID:   sessionID,
		OwnerRef:    ownerRef,
		TargetCount: targetCount,
		Photos:      []domain.CapturedPhoto{},
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, ErrStorageUnavailable
	}
	return session, nil
}

// GetSession retrieves a session by token. Expiry is deliberately not
// enforced here; it is evaluated lazily at mutation time only.
func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*domain.PhotoSession, error) {
	if sessionID == "" {
		return nil, ErrInvalidRequest
	}
	session, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// SubmitPhoto appends one photo to the session. The filename encodes the
// 1-based sequence position and the server-assigned capture time; the
// conditional append guarantees two concurrent submissions never compute the
// same position.
func (s *sessionService) SubmitPhoto(ctx context.Context, sessionID string, imageData []byte, location *domain.GeoLocation) (*IntakeResult, error) {
	// 1. Inputs present. Checked before any store read.
	if sessionID == "" || len(imageData) == 0 || location == nil {
		return nil, ErrInvalidRequest
	}

	preview := makePreview(imageData)

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		// 2. Session exists.
		session, err := s.sessionRepo.GetBySessionID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, ErrStorageUnavailable
		}

		// 3. Session still within its mutation window.
		if session.IsExpired(time.Now().UTC()) {
			return nil, ErrSessionExpired
		}

		capturedAt := time.Now().UTC()
		position := session.PhotoCount() + 1
		photo := domain.CapturedPhoto{
			Filename:    fmt.Sprintf("photo-%d-%d.jpg", position, capturedAt.UnixMilli()),
			ImageData:   imageData,
			PreviewData: preview,
			Location:    *location,
			CapturedAt:  capturedAt,
		}

		err = s.sessionRepo.AppendPhoto(ctx, sessionID, photo, session.PhotoCount())
		if err == nil {
			return &IntakeResult{PhotoCount: position, Filename: photo.Filename}, nil
		}
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent intake (or the session just
			// expired). Re-read and recompute.
			continue
		}
		return nil, ErrStorageUnavailable
	}
	return nil, ErrStorageUnavailable
}

// ExportSession copies the session's photos to object storage under
// uuid-keyed paths and hands back presigned download URLs.
func (s *sessionService) ExportSession(ctx context.Context, accountID primitive.ObjectID, sessionID string) ([]ExportedPhoto, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.OwnerRef == nil || *session.OwnerRef != accountID {
		return nil, ErrSessionAccessDenied
	}

	exported := make([]ExportedPhoto, 0, len(session.Photos))
	for _, photo := range session.Photos {
		objectKey := path.Join("sessions", session.SessionID, fmt.Sprintf("%s.jpg", uuid.NewString()))

		if err := s.fileStorage.UploadObject(ctx, objectKey, "image/jpeg", photo.ImageData); err != nil {
			return nil, ErrExportUploadFailed
		}

		downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			return nil, ErrExportURLError
		}

		exported = append(exported, ExportedPhoto{
			Filename:    photo.Filename,
			DownloadURL: downloadURL,
		})
	}
	return exported, nil
}

// newSessionID returns a 128-bit random token, hex encoded. The token is the
// sole capability to the session, so it must come from crypto/rand.
func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// makePreview produces a downscaled JPEG for the desktop photo grid. Preview
// generation is best effort: payloads that do not decode as images are still
// accepted, just without a preview.
func makePreview(imageData []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil
	}

	thumb := resize.Thumbnail(previewMaxDimension, previewMaxDimension, img, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return nil
	}
	return out.Bytes()
}
