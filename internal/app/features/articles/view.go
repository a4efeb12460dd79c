package articles

import (
	"net/http"

	"github.com/dalemusser/automationhub/internal/app/policy/articlepolicy"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// ServeBySlug returns one published article and counts the view.
//
// GET /api/articles/{slug}
func (h *Handler) ServeBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	a, err := h.Articles.ViewBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, "articles: view", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordAnalytics(models.AnalyticsView)
	}
	h.withAuthor(ctx, a)
	respond.OK(w, r, articleResponse{Article: a})
}

type analyticsResponse struct {
	Analytics models.ArticleAnalytics `json:"analytics"`
}

// HandleAnalytics bumps one engagement counter. Counters only go up and
// concurrent calls never overwrite each other.
//
// POST /api/articles/{id}/analytics
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, idErr := inputval.PathID(r, "id")
	var req articlepolicy.AnalyticsRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "articles: bad analytics payload", err)
		return
	}
	if err := inputval.Join(idErr, req.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "articles: invalid analytics payload", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	counters, err := h.Articles.IncAnalytics(ctx, id, req.Type)
	if err != nil {
		h.fail(w, r, "articles: analytics", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordAnalytics(req.Type)
	}
	respond.OK(w, r, analyticsResponse{Analytics: counters})
}
