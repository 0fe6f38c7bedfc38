package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stayfinder/capture-app/internal/domain"
)

// Error constants for the repository layer.
var (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict signals that a conditional write lost against a concurrent
	// update of the same record; callers re-read and retry.
	ErrConflict     = RepositoryError("conflicting concurrent update")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// SessionRepository defines the interface for photo-session persistence.
// Photos are embedded in the session record, so the only mutation is an
// append guarded by the caller's expected photo count.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.PhotoSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.PhotoSession, error)
	// AppendPhoto pushes one photo onto the session's photo list, but only
	// if the list still holds exactly expectedCount entries and the session
	// has not expired. Returns ErrConflict when another append got there
	// first, so two concurrent intakes can never compute the same sequence
	// position.
	AppendPhoto(ctx context.Context, sessionID string, photo domain.CapturedPhoto, expectedCount int) error
}

// AccountRepository defines the interface for marketplace profile data.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error)
}
