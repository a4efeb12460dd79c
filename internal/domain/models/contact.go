// internal/domain/models/contact.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactSubmission is a message sent through the public contact form.
// Submissions are never deleted; they move through statuses and collect
// notes. Notes are append-only.
type ContactSubmission struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`
	Phone        string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Company      string              `bson:"company,omitempty" json:"company,omitempty"`
	Subject      string              `bson:"subject" json:"subject"`
	Message      string              `bson:"message" json:"message"`
	Status       string              `bson:"status" json:"status"`
	Priority     string              `bson:"priority" json:"priority"`
	AssignedToID *primitive.ObjectID `bson:"assigned_to_id,omitempty" json:"-"`
	AssignedTo   *PersonRef          `bson:"-" json:"assignedTo,omitempty"`
	Notes        []ContactNote       `bson:"notes" json:"notes"`
	Metadata     RequestMetadata     `bson:"metadata" json:"metadata"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ContactNote is an internal note attributed to the user who wrote it.
type ContactNote struct {
	Content     string             `bson:"content" json:"content"`
	CreatedByID primitive.ObjectID `bson:"created_by_id" json:"createdBy"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// RequestMetadata records where a public submission came from.
type RequestMetadata struct {
	IPAddress string `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	Source    string `bson:"source,omitempty" json:"source,omitempty"`
	Campaign  string `bson:"campaign,omitempty" json:"campaign,omitempty"`
}

// ContactSubjects is the closed set of contact form subjects.
var ContactSubjects = []string{
	"General Inquiry",
	"Product Information",
	"Technical Support",
	"Partnership",
	"Other",
}

// Contact statuses.
const (
	ContactStatusNew        = "new"
	ContactStatusInProgress = "in-progress"
	ContactStatusResolved   = "resolved"
	ContactStatusArchived   = "archived"
)

// ContactStatuses is the closed set of contact statuses.
var ContactStatuses = []string{
	ContactStatusNew,
	ContactStatusInProgress,
	ContactStatusResolved,
	ContactStatusArchived,
}

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Priorities is the closed set of contact priorities.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
