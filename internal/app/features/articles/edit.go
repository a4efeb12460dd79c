package articles

import (
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/articlepolicy"
	"github.com/dalemusser/automationhub/internal/app/store/audit"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
)

var errNoChanges = apperr.New(apperr.Validation, "No fields to update")

// HandleCreate stores a new article. The body is JSON, or a multipart form
// whose "images" parts are uploaded and attached; the first image becomes
// the featured one.
//
// POST /api/articles
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req articlepolicy.ArticleCreate
	files, err := assets.ReadCreate(w, r, &req)
	if err != nil {
		h.ErrLog.Respond(w, r, "articles: bad create payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "articles: invalid create payload", err)
		return
	}
	actor, err := authz.Require(r, authz.Editors)
	if err != nil {
		h.ErrLog.Respond(w, r, "articles: create denied", err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	a := articlepolicy.NewArticle(req, actor.UserID, time.Now().UTC())
	images, err := h.Uploader.Save(ctx, assets.PrefixArticles, files)
	if err != nil {
		h.fail(w, r, "articles: store images", err)
		return
	}
	articlepolicy.AttachImages(&a, withAlt(images, a.Title))

	created, err := h.Articles.Create(ctx, a)
	if err != nil {
		h.Uploader.Discard(ctx, h.Uploader.Keys(images))
		h.fail(w, r, "articles: create", err)
		return
	}
	h.AuditLog.ContentChanged(ctx, r, audit.EventArticleCreated, actor.UserID, created.ID, created.Title)

	h.withAuthor(ctx, &created)
	respond.Created(w, r, articleResponse{Article: &created})
}

// HandleUpdate applies a patch. Only title, content, excerpt, type, category,
// tags and status may be sent; anything else rejects the whole request.
// Uploaded images are appended.
//
// PATCH /api/articles/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, idErr := inputval.PathID(r, "id")
	var upd articlepolicy.ArticleUpdate
	files, err := assets.ReadUpdate(w, r, &upd)
	if err != nil {
		h.ErrLog.Respond(w, r, "articles: bad update payload", err)
		return
	}
	if err := inputval.Join(idErr, upd.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "articles: invalid update payload", err)
		return
	}
	if upd.Empty() && len(files) == 0 {
		h.ErrLog.Respond(w, r, "articles: empty update", errNoChanges)
		return
	}
	actor, err := authz.Require(r, authz.Editors)
	if err != nil {
		h.ErrLog.Respond(w, r, "articles: update denied", err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	a, err := h.Articles.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "articles: load", err)
		return
	}
	if err := articlepolicy.Apply(a, upd, time.Now().UTC()); err != nil {
		h.fail(w, r, "articles: apply update", err)
		return
	}

	images, err := h.Uploader.Save(ctx, assets.PrefixArticles, files)
	if err != nil {
		h.fail(w, r, "articles: store images", err)
		return
	}
	articlepolicy.AttachImages(a, withAlt(images, a.Title))

	if err := h.Articles.Save(ctx, a); err != nil {
		h.Uploader.Discard(ctx, h.Uploader.Keys(images))
		h.fail(w, r, "articles: save", err)
		return
	}
	h.AuditLog.ContentChanged(ctx, r, audit.EventArticleUpdated, actor.UserID, a.ID, a.Title)

	h.withAuthor(ctx, a)
	respond.OK(w, r, articleResponse{Article: a})
}

// HandleDelete removes an article and its stored images.
//
// DELETE /api/articles/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.PathID(r, "id")
	if err != nil {
		h.ErrLog.Respond(w, r, "articles: bad id", err)
		return
	}
	actor, err := authz.Require(r, authz.Admins)
	if err != nil {
		h.ErrLog.Respond(w, r, "articles: delete denied", err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	a, err := h.Articles.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "articles: load", err)
		return
	}
	if err := h.Articles.Delete(ctx, id); err != nil {
		h.fail(w, r, "articles: delete", err)
		return
	}
	h.Uploader.Discard(ctx, h.Uploader.Keys(a.Images))
	h.AuditLog.ContentChanged(ctx, r, audit.EventArticleDeleted, actor.UserID, a.ID, a.Title)

	respond.Message(w, r, http.StatusOK, "Article deleted successfully")
}

func withAlt(images []models.Image, alt string) []models.Image {
	for i := range images {
		images[i].Alt = alt
	}
	return images
}
