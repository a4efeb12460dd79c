package contactpolicy

import (
	"testing"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strp(s string) *string { return &s }

func fieldNames(err error) []string {
	var out []string
	for _, f := range apperr.FieldsOf(err) {
		out = append(out, f.Field)
	}
	return out
}

func validSubmit() SubmitRequest {
	return SubmitRequest{
		Name:    "Ada Lovelace",
		Email:   " Ada@Example.com ",
		Subject: "General Inquiry",
		Message: "Tell me about your PLCs.",
	}
}

func TestSubmitRequest_Validate(t *testing.T) {
	s := validSubmit()
	require.NoError(t, s.Validate())

	bad := SubmitRequest{Email: "not-an-email", Subject: "Complaint"}
	err := bad.Validate()
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"name", "email", "subject", "message"}, fieldNames(err))
}

func TestNewSubmission_Defaults(t *testing.T) {
	now := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	c := NewSubmission(validSubmit(), models.RequestMetadata{IPAddress: "10.0.0.1"}, now)

	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, models.ContactStatusNew, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	assert.NotNil(t, c.Notes)
	assert.Nil(t, c.AssignedToID)
	assert.Equal(t, "10.0.0.1", c.Metadata.IPAddress)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{models.ContactStatusNew, models.ContactStatusInProgress, true},
		{models.ContactStatusNew, models.ContactStatusArchived, true},
		{models.ContactStatusInProgress, models.ContactStatusNew, false},
		{models.ContactStatusResolved, models.ContactStatusInProgress, true},
		{models.ContactStatusArchived, models.ContactStatusNew, false},
		{models.ContactStatusArchived, models.ContactStatusArchived, true},
	}
	for _, tt := range tests {
		err := Transitions.Check(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.True(t, apperr.IsKind(err, apperr.InvalidTransition), "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestApply_StatusPriorityAssignee(t *testing.T) {
	now := time.Now()
	c := NewSubmission(validSubmit(), models.RequestMetadata{}, now)
	admin := primitive.NewObjectID()

	err := Apply(&c, StatusUpdate{
		Status:     strp(models.ContactStatusInProgress),
		Priority:   strp(models.PriorityHigh),
		AssignedTo: strp(admin.Hex()),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusInProgress, c.Status)
	assert.Equal(t, models.PriorityHigh, c.Priority)
	require.NotNil(t, c.AssignedToID)
	assert.Equal(t, admin, *c.AssignedToID)

	require.NoError(t, Apply(&c, StatusUpdate{AssignedTo: strp("")}, now))
	assert.Nil(t, c.AssignedToID)
}

func TestApply_ArchivedIsTerminal(t *testing.T) {
	c := NewSubmission(validSubmit(), models.RequestMetadata{}, time.Now())
	c.Status = models.ContactStatusArchived

	err := Apply(&c, StatusUpdate{Status: strp(models.ContactStatusNew), Priority: strp(models.PriorityLow)}, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.InvalidTransition))
	assert.Equal(t, models.PriorityMedium, c.Priority)
}

func TestStatusUpdate_Validate(t *testing.T) {
	err := (&StatusUpdate{}).Validate()
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	u := StatusUpdate{Status: strp("closed"), Priority: strp("urgent"), AssignedTo: strp("xyz")}
	assert.ElementsMatch(t, []string{"status", "priority", "assignedTo"}, fieldNames(u.Validate()))
}

func TestReplyNote(t *testing.T) {
	author := primitive.NewObjectID()
	now := time.Now()
	n := ReplyNote("  Thanks, we will call you.  ", author, now)

	assert.Equal(t, "Replied to customer: Thanks, we will call you.", n.Content)
	assert.Equal(t, author, n.CreatedByID)
	assert.Equal(t, now, n.CreatedAt)
}

func TestNoteRequest_Validate(t *testing.T) {
	assert.Error(t, (&NoteRequest{Content: "  "}).Validate())
	assert.NoError(t, (&NoteRequest{Content: "called back"}).Validate())
	assert.Error(t, (&ReplyRequest{}).Validate())
}
