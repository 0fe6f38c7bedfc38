package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayfinder/capture-app/internal/domain"
	"stayfinder/capture-app/internal/repository"
)

const sessionCollectionName = "photo_sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new photo-session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new photo session. The photo list is stored as an empty
// array (never nil) so that later $size-guarded appends match.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.PhotoSession) error {
	if session.SessionID == "" {
		return errors.New("session requires a sessionId")
	}
	if session.Photos == nil {
		session.Photos = []domain.CapturedPhoto{}
	}

	session.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, session)
	return err
}

// GetBySessionID retrieves a session by its capability token.
func (r *mongoSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.PhotoSession, error) {
	var session domain.PhotoSession
	filter := bson.M{"sessionId": sessionID}

	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// AppendPhoto pushes one photo onto the session's embedded photo list.
// The filter matches only if the list still has exactly expectedCount
// entries and the session has not expired, which serializes concurrent
// intakes per session: the loser of a race gets ErrConflict, re-reads, and
// recomputes its sequence position.
func (r *mongoSessionRepository) AppendPhoto(ctx context.Context, sessionID string, photo domain.CapturedPhoto, expectedCount int) error {
	filter := bson.M{
		"sessionId": sessionID,
		"photos":    bson.M{"$size": expectedCount},
		"expiresAt": bson.M{"$gt": time.Now().UTC()},
	}
	update := bson.M{"$push": bson.M{"photos": photo}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Session missing, expired, or the photo count moved under us. The
		// caller re-reads to tell these apart.
		return repository.ErrConflict
	}
	return nil
}

// EnsureSessionIndexes creates necessary indexes for the photo_sessions collection.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The session token is the sole lookup key and must be unique.
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// For owner-scoped listings of capture sessions.
			Keys:    bson.D{{Key: "ownerRef", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
