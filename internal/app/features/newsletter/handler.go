// Package newsletter serves newsletter subscription, verification and
// preference management, and the admin send.
package newsletter

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	subscriberstore "github.com/dalemusser/automationhub/internal/app/store/subscribers"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"go.uber.org/zap"
)

type Handler struct {
	Subscribers *subscriberstore.Store
	Mail        *mailer.Dispatcher
	Batch       *mailer.BatchSender
	Site        mailer.Site
	AuditLog    *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(
	subscribers *subscriberstore.Store,
	mail *mailer.Dispatcher,
	batch *mailer.BatchSender,
	site mailer.Site,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Subscribers: subscribers,
		Mail:        mail,
		Batch:       batch,
		Site:        site,
		AuditLog:    audit,
		ErrLog:      errLog,
		Log:         logger,
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, subscriberstore.ErrNotFound):
		err = apperr.Wrap(apperr.NotFound, "Subscriber not found", err)
	case errors.Is(err, subscriberstore.ErrDuplicateEmail):
		err = apperr.Wrap(apperr.DuplicateKey, "Email already subscribed", err)
	}
	h.ErrLog.Respond(w, r, msg, err)
}
