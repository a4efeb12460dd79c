package contact

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/contactpolicy"
	contactstore "github.com/dalemusser/automationhub/internal/app/store/contacts"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

var errUnknownAssignee = apperr.Invalid([]apperr.FieldError{{
	Field:   "assignedTo",
	Message: "must reference an existing user",
}})

type listQuery struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func (q *listQuery) Validate() error {
	return inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Status, inputval.OneOf(models.ContactStatuses)),
		validation.Field(&q.Priority, inputval.OneOf(models.Priorities)),
	))
}

// ServeSubmissions lists submissions, newest first, filtered by status and
// priority.
//
// GET /api/contact/submissions
func (h *Handler) ServeSubmissions(w http.ResponseWriter, r *http.Request) {
	q := listQuery{
		Status:   normalize.Filter(query.Get(r, "status")),
		Priority: normalize.Filter(query.Get(r, "priority")),
	}
	if err := q.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "contact: invalid filter", err)
		return
	}
	if _, err := authz.Require(r, authz.Admins); err != nil {
		h.ErrLog.Respond(w, r, "contact: list denied", err)
		return
	}

	pg := paging.Parse(r, paging.AdminPageSize)
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	list, total, err := h.Contacts.List(ctx, contactstore.ListFilter{Status: q.Status, Priority: q.Priority}, pg)
	if err != nil {
		h.fail(w, r, "contact: list submissions", err)
		return
	}
	if err := h.withAssignees(ctx, list); err != nil {
		h.fail(w, r, "contact: load assignees", err)
		return
	}
	respond.Page(w, r, list, paging.NewMeta(total, pg.Page, pg.Limit))
}

// ServeSubmission returns one submission with its notes.
//
// GET /api/contact/submissions/{id}
func (h *Handler) ServeSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.PathID(r, "id")
	if err != nil {
		h.ErrLog.Respond(w, r, "contact: bad id", err)
		return
	}
	if _, err := authz.Require(r, authz.Admins); err != nil {
		h.ErrLog.Respond(w, r, "contact: view denied", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	sub, err := h.Contacts.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "contact: load submission", err)
		return
	}
	list := []models.ContactSubmission{*sub}
	if err := h.withAssignees(ctx, list); err != nil {
		h.fail(w, r, "contact: load assignee", err)
		return
	}
	respond.OK(w, r, submissionResponse{Submission: &list[0]})
}

// HandleStatus changes status, priority or assignee. Status moves follow
// contactpolicy.Transitions; an archived submission cannot be reopened.
//
// PATCH /api/contact/submissions/{id}/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, idErr := inputval.PathID(r, "id")
	var upd contactpolicy.StatusUpdate
	if err := inputval.DecodeUpdate(r.Body, &upd); err != nil {
		h.ErrLog.Respond(w, r, "contact: bad status payload", err)
		return
	}
	if err := inputval.Join(idErr, upd.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "contact: invalid status update", err)
		return
	}
	if _, err := authz.Require(r, authz.Admins); err != nil {
		h.ErrLog.Respond(w, r, "contact: status denied", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if assignee, ok := upd.Assignee(); ok && assignee != nil {
		if _, err := h.Users.GetByID(ctx, *assignee); err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				err = errUnknownAssignee
			}
			h.ErrLog.Respond(w, r, "contact: load assignee", err)
			return
		}
	}

	sub, err := h.Contacts.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "contact: load submission", err)
		return
	}
	if err := contactpolicy.Apply(sub, upd, time.Now().UTC()); err != nil {
		h.fail(w, r, "contact: apply status", err)
		return
	}
	if err := h.Contacts.SaveStatus(ctx, sub); err != nil {
		h.fail(w, r, "contact: save status", err)
		return
	}

	list := []models.ContactSubmission{*sub}
	if err := h.withAssignees(ctx, list); err != nil {
		h.Log.Warn("contact: assignee lookup failed", zap.Error(err), zap.String("submission_id", sub.ID.Hex()))
	}
	respond.OK(w, r, submissionResponse{Submission: &list[0]})
}

// HandleNote appends an internal note.
//
// POST /api/contact/submissions/{id}/notes
func (h *Handler) HandleNote(w http.ResponseWriter, r *http.Request) {
	id, idErr := inputval.PathID(r, "id")
	var req contactpolicy.NoteRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "contact: bad note payload", err)
		return
	}
	if err := inputval.Join(idErr, req.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "contact: invalid note", err)
		return
	}
	actor, err := authz.Require(r, authz.Admins)
	if err != nil {
		h.ErrLog.Respond(w, r, "contact: note denied", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	sub, err := h.Contacts.PushNote(ctx, id, contactpolicy.NewNote(req.Content, actor.UserID, time.Now().UTC()))
	if err != nil {
		h.fail(w, r, "contact: add note", err)
		return
	}
	respond.OK(w, r, submissionResponse{Submission: sub})
}

// HandleReply emails the customer and records the reply as a note. The note
// is written first so the reply is on record even when delivery fails.
//
// POST /api/contact/submissions/{id}/reply
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	id, idErr := inputval.PathID(r, "id")
	var req contactpolicy.ReplyRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "contact: bad reply payload", err)
		return
	}
	if err := inputval.Join(idErr, req.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "contact: invalid reply", err)
		return
	}
	actor, err := authz.Require(r, authz.Admins)
	if err != nil {
		h.ErrLog.Respond(w, r, "contact: reply denied", err)
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	sub, err := h.Contacts.PushNote(ctx, id, contactpolicy.ReplyNote(req.Message, actor.UserID, time.Now().UTC()))
	if err != nil {
		h.fail(w, r, "contact: record reply", err)
		return
	}

	sendErr := h.Mail.Deliver(ctx, mailer.ContactReply(h.Site, sub.Email, sub.Subject, req.Message))
	h.AuditLog.ContactReplied(ctx, r, actor.UserID, sub.ID, sendErr == nil)
	if sendErr != nil {
		respond.Message(w, r, http.StatusOK, "Reply recorded, but the email could not be delivered")
		return
	}
	respond.Message(w, r, http.StatusOK, "Reply sent successfully")
}
