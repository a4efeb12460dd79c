package articles

import (
	"net/http"

	articlestore "github.com/dalemusser/automationhub/internal/app/store/articles"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type listQuery struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Search   string `json:"search"`
}

func (q *listQuery) Validate() error {
	return inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Type, inputval.OneOf(models.ArticleTypes)),
		validation.Field(&q.Category, inputval.OneOf(models.ArticleCategories)),
		validation.Field(&q.Search, inputval.MaxLength(200)),
	))
}

// ServeList returns published articles, newest first. Optional filters:
// type, category, tag, search.
//
// GET /api/articles
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{
		Type:     normalize.Filter(query.Get(r, "type")),
		Category: normalize.Filter(query.Get(r, "category")),
		Tag:      normalize.QueryParam(query.Get(r, "tag")),
		Search:   normalize.QueryParam(query.Get(r, "search")),
	})
}

// ServeByCategory is ServeList narrowed to one category.
//
// GET /api/articles/category/{category}
func (h *Handler) ServeByCategory(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{Category: chi.URLParam(r, "category")})
}

// ServeByTag is ServeList narrowed to one tag.
//
// GET /api/articles/tag/{tag}
func (h *Handler) ServeByTag(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{Tag: normalize.QueryParam(chi.URLParam(r, "tag"))})
}

// ServeSearch runs a full-text search, best match first.
//
// GET /api/articles/search/{query}
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{Search: normalize.QueryParam(chi.URLParam(r, "query"))})
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, q listQuery) {
	if err := q.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "articles: invalid filter", err)
		return
	}

	pg := paging.Parse(r, paging.PublicPageSize)
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	list, total, err := h.Articles.List(ctx, articlestore.ListFilter{
		Status:   models.ArticleStatusPublished,
		Type:     q.Type,
		Category: q.Category,
		Tag:      q.Tag,
		Search:   q.Search,
	}, pg)
	if err != nil {
		h.fail(w, r, "articles: list", err)
		return
	}
	if err := h.withAuthors(ctx, list); err != nil {
		h.fail(w, r, "articles: load authors", err)
		return
	}
	respond.Page(w, r, list, paging.NewMeta(total, pg.Page, pg.Limit))
}
