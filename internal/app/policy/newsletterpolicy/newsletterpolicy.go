// Package newsletterpolicy holds the newsletter subscription lifecycle.
//
// Rules:
//   - Anyone may subscribe or unsubscribe; subscribers are keyed by
//     normalized email
//   - A new subscriber is pending until it presents its verification token
//   - A token is single-use and expires after TokenTTL; verification clears
//     it in the same update that marks the subscriber subscribed
//   - Only admins list subscribers or send an issue; an issue reaches
//     subscribed addresses with at least one selected category enabled
package newsletterpolicy

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/lifecycle"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/domain/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	// TokenTTL is how long a verification token stays valid.
	TokenTTL = 24 * time.Hour

	tokenBytes = 32

	MaxSubjectLength = 200
)

// Transitions lists the status moves a subscriber may make.
var Transitions = lifecycle.NewMachine("subscriber", map[string][]string{
	models.SubscriberStatusPending:      {models.SubscriberStatusSubscribed, models.SubscriberStatusUnsubscribed},
	models.SubscriberStatusSubscribed:   {models.SubscriberStatusUnsubscribed},
	models.SubscriberStatusUnsubscribed: {models.SubscriberStatusPending},
})

// NewToken returns a random hex verification token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// WellFormedToken reports whether s could have come from NewToken.
func WellFormedToken(s string) bool {
	if len(s) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ErrInvalidToken is returned when a token is unknown, expired or already used.
var ErrInvalidToken = apperr.New(apperr.InvalidToken, "Invalid or expired verification token")

// ErrAlreadySubscribed is returned when a pending or subscribed address
// subscribes again.
var ErrAlreadySubscribed = apperr.New(apperr.DuplicateKey, "Email already subscribed")

// PreferencesUpdate changes individual category preferences. A nil field is
// left unchanged.
type PreferencesUpdate struct {
	Automation    *bool `json:"automation"`
	Manufacturing *bool `json:"manufacturing"`
	Technology    *bool `json:"technology"`
	Research      *bool `json:"research"`
}

// Empty reports whether the update changes nothing.
func (u *PreferencesUpdate) Empty() bool {
	return u.Automation == nil && u.Manufacturing == nil && u.Technology == nil && u.Research == nil
}

// Validate rejects an update that changes nothing.
func (u *PreferencesUpdate) Validate() error {
	if u.Empty() {
		return apperr.New(apperr.Validation, "Nothing to update")
	}
	return nil
}

// ApplyTo applies u to p.
func (u *PreferencesUpdate) ApplyTo(p *models.Preferences) {
	if u.Automation != nil {
		p.Automation = *u.Automation
	}
	if u.Manufacturing != nil {
		p.Manufacturing = *u.Manufacturing
	}
	if u.Technology != nil {
		p.Technology = *u.Technology
	}
	if u.Research != nil {
		p.Research = *u.Research
	}
}

// SubscribeRequest is the body of POST /api/newsletter/subscribe.
type SubscribeRequest struct {
	Email       string             `json:"email"`
	FirstName   string             `json:"firstName"`
	LastName    string             `json:"lastName"`
	Preferences *PreferencesUpdate `json:"preferences"`
	Source      string             `json:"source"`
	Campaign    string             `json:"campaign"`
}

// Validate reports every violation in one error.
func (s *SubscribeRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(s,
		validation.Field(&s.Email, inputval.Required, inputval.Email),
		validation.Field(&s.FirstName, inputval.MaxLength(100)),
		validation.Field(&s.LastName, inputval.MaxLength(100)),
		validation.Field(&s.Source, inputval.MaxLength(100)),
		validation.Field(&s.Campaign, inputval.MaxLength(100)),
	))
}

func (s SubscribeRequest) preferences() models.Preferences {
	p := models.DefaultPreferences()
	if s.Preferences != nil {
		s.Preferences.ApplyTo(&p)
	}
	return p
}

// NewSubscriber builds a pending subscriber holding token.
func NewSubscriber(s SubscribeRequest, meta models.RequestMetadata, token string, now time.Time) models.Subscriber {
	expires := now.Add(TokenTTL)
	meta.Source = strings.TrimSpace(s.Source)
	meta.Campaign = strings.TrimSpace(s.Campaign)
	if meta.Source == "" {
		meta.Source = models.DefaultSubscriberSource
	}
	return models.Subscriber{
		Email:               normalize.Email(s.Email),
		FirstName:           normalize.Name(s.FirstName),
		LastName:            normalize.Name(s.LastName),
		Preferences:         s.preferences(),
		Status:              models.SubscriberStatusPending,
		VerificationToken:   token,
		VerificationExpires: &expires,
		Metadata:            meta,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Resubscribe moves a previously unsubscribed address back to pending with a
// fresh token. Pending or subscribed addresses get ErrAlreadySubscribed.
func Resubscribe(sub *models.Subscriber, s SubscribeRequest, token string, now time.Time) error {
	if sub.Status != models.SubscriberStatusUnsubscribed {
		return ErrAlreadySubscribed
	}
	if err := Transitions.Check(sub.Status, models.SubscriberStatusPending); err != nil {
		return err
	}
	expires := now.Add(TokenTTL)
	sub.Status = models.SubscriberStatusPending
	sub.VerificationToken = token
	sub.VerificationExpires = &expires
	sub.Preferences = s.preferences()
	if n := normalize.Name(s.FirstName); n != "" {
		sub.FirstName = n
	}
	if n := normalize.Name(s.LastName); n != "" {
		sub.LastName = n
	}
	sub.UpdatedAt = now
	return nil
}

// VerifyFilter matches the one pending subscriber whose unexpired token is
// token. Used together with VerifyUpdate in a single find-and-modify.
func VerifyFilter(token string, now time.Time) bson.M {
	return bson.M{
		"verification_token":   token,
		"verification_expires": bson.M{"$gt": now},
		"status":               models.SubscriberStatusPending,
	}
}

// VerifyUpdate marks a subscriber subscribed and burns its token.
func VerifyUpdate(now time.Time) bson.M {
	return bson.M{
		"$set":   bson.M{"status": models.SubscriberStatusSubscribed, "updated_at": now},
		"$unset": bson.M{"verification_token": "", "verification_expires": ""},
	}
}

// EmailRequest is the body of POST /api/newsletter/unsubscribe.
type EmailRequest struct {
	Email string `json:"email"`
}

// Validate checks the address.
func (e *EmailRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(e,
		validation.Field(&e.Email, inputval.Required, inputval.Email),
	))
}

// SendRequest is the body of POST /api/newsletter/send. An empty category
// list targets every subscribed address.
type SendRequest struct {
	Subject    string   `json:"subject"`
	Content    string   `json:"content"`
	Categories []string `json:"categories"`
}

// Validate reports every violation in one error.
func (s *SendRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(s,
		validation.Field(&s.Subject, inputval.Required, inputval.MaxLength(MaxSubjectLength)),
		validation.Field(&s.Content, inputval.Required),
		validation.Field(&s.Categories, inputval.EachOneOf(models.NewsletterCategories)),
	))
}

// CategoryFilter matches subscribers with at least one of categories enabled.
// No categories matches everyone.
func CategoryFilter(categories []string) bson.M {
	if len(categories) == 0 {
		return bson.M{}
	}
	or := make(bson.A, 0, len(categories))
	for _, c := range categories {
		or = append(or, bson.M{"preferences." + c: true})
	}
	return bson.M{"$or": or}
}

// RecipientFilter matches the subscribed audience of an issue.
func RecipientFilter(categories []string) bson.M {
	f := CategoryFilter(categories)
	f["status"] = models.SubscriberStatusSubscribed
	return f
}
