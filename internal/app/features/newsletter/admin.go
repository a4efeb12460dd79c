package newsletter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/newsletterpolicy"
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

type listQuery struct {
	Status string `json:"status"`
}

func (q *listQuery) Validate() error {
	return inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Status, inputval.OneOf(models.SubscriberStatuses)),
	))
}

// ServeSubscribers lists subscribers, newest first, optionally by status.
//
// GET /api/newsletter/subscribers
func (h *Handler) ServeSubscribers(w http.ResponseWriter, r *http.Request) {
	q := listQuery{Status: normalize.Filter(query.Get(r, "status"))}
	if err := q.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: invalid filter", err)
		return
	}
	if _, err := authz.Require(r, authz.Admins); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: list denied", err)
		return
	}

	pg := paging.Parse(r, paging.AdminPageSize)
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	list, total, err := h.Subscribers.List(ctx, q.Status, pg)
	if err != nil {
		h.fail(w, r, "newsletter: list subscribers", err)
		return
	}
	respond.Page(w, r, list, paging.NewMeta(total, pg.Page, pg.Limit))
}

type sendResponse struct {
	Recipients int              `json:"recipients"`
	Sent       int              `json:"sent"`
	Failed     []mailer.Failure `json:"failed"`
}

// HandleSend mails an issue to every subscribed address that opted into at
// least one of the requested categories. Only delivered addresses get
// lastEmailSent stamped.
//
// POST /api/newsletter/send
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req newsletterpolicy.SendRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: bad send payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: invalid send request", err)
		return
	}
	actor, err := authz.Require(r, authz.Admins)
	if err != nil {
		h.ErrLog.Respond(w, r, "newsletter: send denied", err)
		return
	}

	// The send is detached from the request: a dropped client or proxy does
	// not stop later batches, and delivered addresses are always stamped.
	detached := context.WithoutCancel(r.Context())
	ctx, cancel := timeouts.WithBatch(detached)
	defer cancel()

	recipients, err := h.Subscribers.ListRecipients(ctx, req.Categories)
	if err != nil {
		h.fail(w, r, "newsletter: list recipients", err)
		return
	}

	res, sendErr := h.Batch.Send(ctx, recipients, func(to string) mailer.Email {
		return mailer.NewsletterIssue(h.Site, to, req.Subject, req.Content)
	})
	if sendErr != nil {
		h.Log.Warn("newsletter send interrupted",
			zap.Int("recipients", len(recipients)),
			zap.Int("delivered", len(res.Delivered)),
			zap.Error(sendErr))
	}

	markCtx, markCancel := timeouts.WithShort(detached)
	defer markCancel()
	if _, err := h.Subscribers.MarkSent(markCtx, res.Delivered, time.Now().UTC()); err != nil {
		h.Log.Error("newsletter: mark sent failed", zap.Error(err), zap.Int("delivered", len(res.Delivered)))
	}
	h.AuditLog.NewsletterSent(markCtx, r, actor.UserID, req.Subject, len(res.Delivered), len(res.Failed))

	respond.MessageData(w, r, http.StatusOK,
		fmt.Sprintf("Newsletter sent to %d subscribers", len(res.Delivered)),
		sendResponse{Recipients: len(recipients), Sent: len(res.Delivered), Failed: res.Failed})
}
