// Package articles serves the public article listing and the editor
// workflow for creating, editing and publishing articles.
package articles

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	articlestore "github.com/dalemusser/automationhub/internal/app/store/articles"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AnalyticsRecorder counts analytics events.
type AnalyticsRecorder interface {
	RecordAnalytics(kind string)
}

type Handler struct {
	Articles *articlestore.Store
	Users    *userstore.Store
	Uploader *assets.Uploader
	Metrics  AnalyticsRecorder
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(
	articles *articlestore.Store,
	users *userstore.Store,
	uploader *assets.Uploader,
	metrics AnalyticsRecorder,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Articles: articles,
		Users:    users,
		Uploader: uploader,
		Metrics:  metrics,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type articleResponse struct {
	Article *models.Article `json:"article"`
}

// fail maps store sentinels onto the error taxonomy and writes the response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, articlestore.ErrNotFound):
		err = apperr.Wrap(apperr.NotFound, "Article not found", err)
	case errors.Is(err, articlestore.ErrDuplicateSlug):
		err = apperr.Wrap(apperr.DuplicateKey, "An article with this title already exists", err)
	}
	h.ErrLog.Respond(w, r, msg, err)
}

// withAuthors fills in the author name of every article.
func (h *Handler) withAuthors(ctx context.Context, list []models.Article) error {
	ids := make([]primitive.ObjectID, 0, len(list))
	seen := make(map[primitive.ObjectID]bool, len(list))
	for _, a := range list {
		if !seen[a.AuthorID] {
			seen[a.AuthorID] = true
			ids = append(ids, a.AuthorID)
		}
	}
	refs, err := h.Users.PersonRefs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range list {
		if ref, ok := refs[list[i].AuthorID]; ok {
			list[i].Author = &ref
		}
	}
	return nil
}

// withAuthor is withAuthors for one article. Failures leave the author out
// rather than failing a request whose main work already succeeded.
func (h *Handler) withAuthor(ctx context.Context, a *models.Article) {
	list := []models.Article{*a}
	if err := h.withAuthors(ctx, list); err != nil {
		h.Log.Warn("articles: author lookup failed", zap.Error(err), zap.String("article_id", a.ID.Hex()))
		return
	}
	a.Author = list[0].Author
}
