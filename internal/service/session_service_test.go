package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stayfinder/capture-app/internal/domain"
	"stayfinder/capture-app/internal/repository"
)

// fakeSessionRepo is an in-memory repository.SessionRepository that mimics
// the store's $size-guarded append semantics.
type fakeSessionRepo struct {
	sessions     map[string]*domain.PhotoSession
	getCalls     int
	failCreate   bool
	beforeAppend func() // invoked once at the start of the next AppendPhoto
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.PhotoSession{}}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.PhotoSession) error {
	if r.failCreate {
		return errors.New("store down")
	}
	copied := *session
	r.sessions[session.SessionID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.PhotoSession, error) {
	r.getCalls++
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	copied.Photos = append([]domain.CapturedPhoto(nil), session.Photos...)
	return &copied, nil
}

func (r *fakeSessionRepo) AppendPhoto(ctx context.Context, sessionID string, photo domain.CapturedPhoto, expectedCount int) error {
	if r.beforeAppend != nil {
		hook := r.beforeAppend
		r.beforeAppend = nil
		hook()
	}
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrConflict
	}
	if session.IsExpired(time.Now().UTC()) {
		return repository.ErrConflict
	}
	if len(session.Photos) != expectedCount {
		return repository.ErrConflict
	}
	session.Photos = append(session.Photos, photo)
	return nil
}

type fakeFileStorage struct {
	uploaded map[string][]byte
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{uploaded: map[string][]byte{}}
}

func (s *fakeFileStorage) UploadObject(ctx context.Context, objectKey, contentType string, data []byte) error {
	s.uploaded[objectKey] = data
	return nil
}

func (s *fakeFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://storage.example.com/" + objectKey + "?signed", nil
}

func (s *fakeFileStorage) DeleteObject(ctx context.Context, objectKey string) error {
	delete(s.uploaded, objectKey)
	return nil
}

func newTestService(repo *fakeSessionRepo) SessionService {
	return NewSessionService(repo, newFakeFileStorage(), time.Hour, 2)
}

func testLocation() *domain.GeoLocation {
	return &domain.GeoLocation{Latitude: 4.61, Longitude: -74.08, AccuracyMeters: 10}
}

func TestCreateSession(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	before := time.Now().UTC()
	session, err := svc.CreateSession(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if len(session.SessionID) != 32 {
		t.Errorf("session ID should be 32 hex chars, got %q", session.SessionID)
	}
	for _, c := range session.SessionID {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("session ID contains non-hex char %q", c)
		}
	}
	if session.PhotoCount() != 0 {
		t.Errorf("new session should have no photos, got %d", session.PhotoCount())
	}
	if session.TargetCount != 2 {
		t.Errorf("default target count = %d, want 2", session.TargetCount)
	}

	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
	if session.ExpiresAt.Before(before.Add(59 * time.Minute)) {
		t.Errorf("expiresAt %v not ~1h ahead of %v", session.ExpiresAt, before)
	}
}

func TestCreateSessionExplicitTargetAndOwner(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	owner := primitive.NewObjectID()
	session, err := svc.CreateSession(context.Background(), &owner, 5)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.TargetCount != 5 {
		t.Errorf("target count = %d, want 5", session.TargetCount)
	}
	if session.OwnerRef == nil || *session.OwnerRef != owner {
		t.Errorf("ownerRef not preserved")
	}
}

func TestCreateSessionStorageFailure(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.failCreate = true
	svc := newTestService(repo)

	_, err := svc.CreateSession(context.Background(), nil, 0)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc := newTestService(newFakeSessionRepo())

	_, err := svc.GetSession(context.Background(), "nonexistent")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSubmitPhotoValidationOrder(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	// Missing location short-circuits before any store read.
	_, err := svc.SubmitPhoto(context.Background(), "some-session", []byte("img"), nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing location: err = %v, want ErrInvalidRequest", err)
	}
	if repo.getCalls != 0 {
		t.Errorf("store was read %d times for an invalid request", repo.getCalls)
	}

	_, err = svc.SubmitPhoto(context.Background(), "", []byte("img"), testLocation())
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing sessionId: err = %v, want ErrInvalidRequest", err)
	}

	_, err = svc.SubmitPhoto(context.Background(), "unknown", []byte("img"), testLocation())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestSubmitPhotoSequence(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	session, err := svc.CreateSession(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	first, err := svc.SubmitPhoto(context.Background(), session.SessionID, []byte("one"), testLocation())
	if err != nil {
		t.Fatalf("first SubmitPhoto: %v", err)
	}
	if first.PhotoCount != 1 {
		t.Errorf("first photoCount = %d, want 1", first.PhotoCount)
	}
	if !strings.HasPrefix(first.Filename, "photo-1-") || !strings.HasSuffix(first.Filename, ".jpg") {
		t.Errorf("first filename = %q, want photo-1-<ts>.jpg", first.Filename)
	}

	second, err := svc.SubmitPhoto(context.Background(), session.SessionID, []byte("two"), testLocation())
	if err != nil {
		t.Fatalf("second SubmitPhoto: %v", err)
	}
	if second.PhotoCount != 2 {
		t.Errorf("second photoCount = %d, want 2", second.PhotoCount)
	}
	if !strings.HasPrefix(second.Filename, "photo-2-") {
		t.Errorf("second filename = %q, want photo-2-<ts>.jpg", second.Filename)
	}

	got, err := svc.GetSession(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.PhotoCount() != 2 {
		t.Fatalf("photo count = %d, want 2", got.PhotoCount())
	}
	if string(got.Photos[0].ImageData) != "one" || string(got.Photos[1].ImageData) != "two" {
		t.Errorf("photos not in submission order")
	}
	if got.Photos[0].CapturedAt.IsZero() {
		t.Errorf("capturedAt not server-assigned")
	}
	if got.Photos[0].Location != *testLocation() {
		t.Errorf("location = %+v, want %+v", got.Photos[0].Location, *testLocation())
	}
}

func TestSubmitPhotoExpiredSession(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	now := time.Now().UTC()
	repo.sessions["expired"] = &domain.PhotoSession{
		SessionID:   "expired",
		TargetCount: 2,
		Photos:      []domain.CapturedPhoto{{Filename: "photo-1-1.jpg", ImageData: []byte("old")}},
		CreatedAt:   now.Add(-2 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}

	_, err := svc.SubmitPhoto(context.Background(), "expired", []byte("img"), testLocation())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}

	// Reads stay valid after expiry, prior photos intact.
	got, err := svc.GetSession(context.Background(), "expired")
	if err != nil {
		t.Fatalf("GetSession after expiry: %v", err)
	}
	if got.PhotoCount() != 1 {
		t.Errorf("photo count changed after rejected upload: %d", got.PhotoCount())
	}
}

func TestSubmitPhotoConflictRetry(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	session, err := svc.CreateSession(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Simulate a concurrent intake landing between our read and append: the
	// conditional append must lose, re-read, and compute the next position.
	repo.beforeAppend = func() {
		stored := repo.sessions[session.SessionID]
		stored.Photos = append(stored.Photos, domain.CapturedPhoto{
			Filename:  "photo-1-100.jpg",
			ImageData: []byte("racer"),
			Location:  *testLocation(),
		})
	}

	result, err := svc.SubmitPhoto(context.Background(), session.SessionID, []byte("mine"), testLocation())
	if err != nil {
		t.Fatalf("SubmitPhoto with conflict: %v", err)
	}
	if result.PhotoCount != 2 {
		t.Errorf("photoCount = %d, want 2 (position recomputed after conflict)", result.PhotoCount)
	}
	if !strings.HasPrefix(result.Filename, "photo-2-") {
		t.Errorf("filename = %q, want photo-2-<ts>.jpg", result.Filename)
	}

	got, _ := svc.GetSession(context.Background(), session.SessionID)
	if got.PhotoCount() != 2 {
		t.Fatalf("photo count = %d, want exactly 2 (no lost update, no duplicate)", got.PhotoCount())
	}
}

func TestExportSessionOwnership(t *testing.T) {
	repo := newFakeSessionRepo()
	store := newFakeFileStorage()
	svc := NewSessionService(repo, store, time.Hour, 2)

	owner := primitive.NewObjectID()
	session, err := svc.CreateSession(context.Background(), &owner, 2)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svc.SubmitPhoto(context.Background(), session.SessionID, []byte("img"), testLocation()); err != nil {
		t.Fatalf("SubmitPhoto: %v", err)
	}

	stranger := primitive.NewObjectID()
	if _, err := svc.ExportSession(context.Background(), stranger, session.SessionID); !errors.Is(err, ErrSessionAccessDenied) {
		t.Fatalf("stranger export: err = %v, want ErrSessionAccessDenied", err)
	}

	exported, err := svc.ExportSession(context.Background(), owner, session.SessionID)
	if err != nil {
		t.Fatalf("owner export: %v", err)
	}
	if len(exported) != 1 {
		t.Fatalf("exported %d photos, want 1", len(exported))
	}
	if exported[0].DownloadURL == "" {
		t.Errorf("missing download URL")
	}
	if len(store.uploaded) != 1 {
		t.Errorf("object storage holds %d objects, want 1", len(store.uploaded))
	}
}
