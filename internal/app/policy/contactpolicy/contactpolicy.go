// Package contactpolicy holds the contact submission workflow.
//
// Rules:
//   - Anyone may submit the contact form; only admins read or work submissions
//   - Submissions are never deleted; archived is terminal
//   - Priority and assignee change independently of status
//   - Notes are append-only and attributed to the admin who wrote them
//   - Replying to a customer always leaves a note, even if the email fails
package contactpolicy

import (
	"strings"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/lifecycle"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/domain/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxNameLength    = 100
	MaxPhoneLength   = 30
	MaxMessageLength = 5000
	MaxNoteLength    = 2000
)

// ReplyNotePrefix starts the note recorded for every reply.
const ReplyNotePrefix = "Replied to customer: "

// Transitions lists the status moves a submission may make.
var Transitions = lifecycle.NewMachine("contact submission", map[string][]string{
	models.ContactStatusNew:        {models.ContactStatusInProgress, models.ContactStatusResolved, models.ContactStatusArchived},
	models.ContactStatusInProgress: {models.ContactStatusResolved, models.ContactStatusArchived},
	models.ContactStatusResolved:   {models.ContactStatusInProgress, models.ContactStatusArchived},
	models.ContactStatusArchived:   {},
})

// SubmitRequest is the body of POST /api/contact/submit.
type SubmitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate reports every violation in one error.
func (s *SubmitRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(s,
		validation.Field(&s.Name, inputval.Required, inputval.MaxLength(MaxNameLength)),
		validation.Field(&s.Email, inputval.Required, inputval.Email),
		validation.Field(&s.Phone, inputval.MaxLength(MaxPhoneLength)),
		validation.Field(&s.Company, inputval.MaxLength(MaxNameLength)),
		validation.Field(&s.Subject, inputval.Required, inputval.OneOf(models.ContactSubjects)),
		validation.Field(&s.Message, inputval.Required, inputval.MaxLength(MaxMessageLength)),
	))
}

// NewSubmission builds the stored submission for a validated request.
func NewSubmission(s SubmitRequest, meta models.RequestMetadata, now time.Time) models.ContactSubmission {
	return models.ContactSubmission{
		Name:      normalize.Name(s.Name),
		Email:     normalize.Email(s.Email),
		Phone:     strings.TrimSpace(s.Phone),
		Company:   strings.TrimSpace(s.Company),
		Subject:   s.Subject,
		Message:   strings.TrimSpace(s.Message),
		Status:    models.ContactStatusNew,
		Priority:  models.PriorityMedium,
		Notes:     []models.ContactNote{},
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StatusUpdate is the body of PATCH /api/contact/submissions/{id}/status.
// An empty assignedTo clears the assignee.
type StatusUpdate struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	AssignedTo *string `json:"assignedTo"`
}

// Validate reports every violation in one error.
func (u *StatusUpdate) Validate() error {
	err := inputval.Check(validation.ValidateStruct(u,
		validation.Field(&u.Status, inputval.NotBlank, inputval.OneOf(models.ContactStatuses)),
		validation.Field(&u.Priority, inputval.NotBlank, inputval.OneOf(models.Priorities)),
		validation.Field(&u.AssignedTo, inputval.ObjectID),
	))
	if err != nil {
		return err
	}
	if u.Status == nil && u.Priority == nil && u.AssignedTo == nil {
		return apperr.New(apperr.Validation, "Nothing to update")
	}
	return nil
}

// Assignee returns the parsed assignee, nil when the update clears it.
// ok is false when the update leaves the assignee alone.
func (u *StatusUpdate) Assignee() (id *primitive.ObjectID, ok bool) {
	if u.AssignedTo == nil {
		return nil, false
	}
	s := strings.TrimSpace(*u.AssignedTo)
	if s == "" {
		return nil, true
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, true
	}
	return &oid, true
}

// Apply checks the status move and then applies u to c. On error c is left
// untouched.
func Apply(c *models.ContactSubmission, u StatusUpdate, now time.Time) error {
	if u.Status != nil {
		if err := Transitions.Check(c.Status, *u.Status); err != nil {
			return err
		}
		c.Status = *u.Status
	}
	if u.Priority != nil {
		c.Priority = *u.Priority
	}
	if id, ok := u.Assignee(); ok {
		c.AssignedToID = id
	}
	c.UpdatedAt = now
	return nil
}

// NoteRequest is the body of POST /api/contact/submissions/{id}/notes.
type NoteRequest struct {
	Content string `json:"content"`
}

// Validate checks the note text.
func (n *NoteRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(n,
		validation.Field(&n.Content, inputval.Required, inputval.MaxLength(MaxNoteLength)),
	))
}

// ReplyRequest is the body of POST /api/contact/submissions/{id}/reply.
type ReplyRequest struct {
	Message string `json:"message"`
}

// Validate checks the reply text.
func (r *ReplyRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(r,
		validation.Field(&r.Message, inputval.Required, inputval.MaxLength(MaxMessageLength)),
	))
}

// NewNote builds a note written by author.
func NewNote(content string, author primitive.ObjectID, now time.Time) models.ContactNote {
	return models.ContactNote{
		Content:     strings.TrimSpace(content),
		CreatedByID: author,
		CreatedAt:   now,
	}
}

// ReplyNote builds the note that records a reply sent by author.
func ReplyNote(message string, author primitive.ObjectID, now time.Time) models.ContactNote {
	return NewNote(ReplyNotePrefix+strings.TrimSpace(message), author, now)
}
