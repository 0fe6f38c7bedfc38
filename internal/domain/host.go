package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes marketplace account types.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Account represents a marketplace profile (a property host or a guest).
// Hosts initiate photo-capture sessions during onboarding, so a session's
// OwnerRef points at one of these.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"` // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a *Account) IsHost() bool {
	return a.Role == RoleHost
}
