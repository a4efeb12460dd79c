package contact

import (
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/contactpolicy"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleSubmit stores a contact form submission, then notifies the site
// admin and sends the visitor a confirmation. Both emails go out in the
// background; a delivery failure does not fail the submission.
//
// POST /api/contact/submit
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req contactpolicy.SubmitRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "contact: bad submit payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "contact: invalid submission", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	sub := contactpolicy.NewSubmission(req, models.RequestMetadata{
		IPAddress: ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}, time.Now().UTC())
	created, err := h.Contacts.Create(ctx, sub)
	if err != nil {
		h.fail(w, r, "contact: create submission", err)
		return
	}
	h.Log.Info("contact submission received",
		zap.String("submission_id", created.ID.Hex()),
		zap.String("subject", created.Subject))

	if h.AdminEmail != "" {
		h.Mail.Dispatch(mailer.ContactNotice(h.Site, h.AdminEmail, mailer.ContactDetails{
			Name:    created.Name,
			Email:   created.Email,
			Phone:   created.Phone,
			Company: created.Company,
			Subject: created.Subject,
			Message: created.Message,
		}))
	}
	h.Mail.Dispatch(mailer.ContactConfirmation(h.Site, created.Email))

	respond.Message(w, r, http.StatusCreated, "Message sent successfully")
}
