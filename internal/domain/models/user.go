// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can sign in to the admin API.
//
// Email is stored normalized (trimmed, lowercased) and is unique.
// PasswordHash is never serialized to JSON.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	FirstName    string             `bson:"first_name" json:"firstName"`
	LastName     string             `bson:"last_name" json:"lastName"`
	Role         string             `bson:"role" json:"role"`     // admin | editor | viewer
	Status       string             `bson:"status" json:"status"` // active | disabled

	LastLogin *time.Time `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// Account statuses.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// FullName joins first and last name for display and email greetings.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PersonRef is the public projection of a user embedded in other documents'
// responses (article author, contact assignee, note author). It never carries
// the email or credential hash.
type PersonRef struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FirstName string             `bson:"first_name" json:"firstName"`
	LastName  string             `bson:"last_name" json:"lastName"`
}
