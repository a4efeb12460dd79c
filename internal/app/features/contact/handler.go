// Package contact serves the public contact form and the admin inbox that
// works the submissions it collects.
package contact

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	contactstore "github.com/dalemusser/automationhub/internal/app/store/contacts"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Contacts   *contactstore.Store
	Users      *userstore.Store
	Mail       *mailer.Dispatcher
	Site       mailer.Site
	AdminEmail string
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(
	contacts *contactstore.Store,
	users *userstore.Store,
	mail *mailer.Dispatcher,
	site mailer.Site,
	adminEmail string,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Contacts:   contacts,
		Users:      users,
		Mail:       mail,
		Site:       site,
		AdminEmail: adminEmail,
		AuditLog:   audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type submissionResponse struct {
	Submission *models.ContactSubmission `json:"submission"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, contactstore.ErrNotFound) {
		err = apperr.Wrap(apperr.NotFound, "Submission not found", err)
	}
	h.ErrLog.Respond(w, r, msg, err)
}

// withAssignees fills in the assignee name of every submission.
func (h *Handler) withAssignees(ctx context.Context, list []models.ContactSubmission) error {
	var ids []primitive.ObjectID
	for _, s := range list {
		if s.AssignedToID != nil {
			ids = append(ids, *s.AssignedToID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	refs, err := h.Users.PersonRefs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].AssignedToID == nil {
			continue
		}
		if ref, ok := refs[*list[i].AssignedToID]; ok {
			list[i].AssignedTo = &ref
		}
	}
	return nil
}
