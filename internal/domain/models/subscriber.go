// internal/domain/models/subscriber.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscriber is a newsletter recipient identified by normalized email.
//
// VerificationToken and VerificationExpires exist only while the subscriber
// is pending; verification clears both in the same update that flips the
// status, so a token can never be consumed twice.
type Subscriber struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email               string             `bson:"email" json:"email"`
	FirstName           string             `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName            string             `bson:"last_name,omitempty" json:"lastName,omitempty"`
	Preferences         Preferences        `bson:"preferences" json:"preferences"`
	Status              string             `bson:"status" json:"status"`
	VerificationToken   string             `bson:"verification_token,omitempty" json:"-"`
	VerificationExpires *time.Time         `bson:"verification_expires,omitempty" json:"-"`
	LastEmailSent       *time.Time         `bson:"last_email_sent,omitempty" json:"lastEmailSent,omitempty"`
	Metadata            RequestMetadata    `bson:"metadata" json:"metadata"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Preferences selects which newsletter categories a subscriber receives.
type Preferences struct {
	Automation    bool `bson:"automation" json:"automation"`
	Manufacturing bool `bson:"manufacturing" json:"manufacturing"`
	Technology    bool `bson:"technology" json:"technology"`
	Research      bool `bson:"research" json:"research"`
}

// DefaultPreferences opts a new subscriber into every category.
func DefaultPreferences() Preferences {
	return Preferences{Automation: true, Manufacturing: true, Technology: true, Research: true}
}

// Subscriber statuses.
const (
	SubscriberStatusPending      = "pending"
	SubscriberStatusSubscribed   = "subscribed"
	SubscriberStatusUnsubscribed = "unsubscribed"
)

// SubscriberStatuses is the closed set of subscriber statuses.
var SubscriberStatuses = []string{
	SubscriberStatusPending,
	SubscriberStatusSubscribed,
	SubscriberStatusUnsubscribed,
}

// NewsletterCategories are the preference keys a newsletter send may target.
// Each matches a bson field under "preferences".
var NewsletterCategories = []string{"automation", "manufacturing", "technology", "research"}

// DefaultSubscriberSource is recorded when a subscribe request names no source.
const DefaultSubscriberSource = "website"
