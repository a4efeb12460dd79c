package products

import (
	"net/http"
	"strings"

	productstore "github.com/dalemusser/automationhub/internal/app/store/products"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
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
	Category     string `json:"category"`
	Availability string `json:"availability"`
	Search       string `json:"search"`
	Sort         string `json:"sort"`
}

func (q *listQuery) Validate() error {
	err := inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Category, inputval.OneOf(models.ProductCategories)),
		validation.Field(&q.Availability, inputval.OneOf(models.Availabilities)),
		validation.Field(&q.Search, inputval.MaxLength(200)),
	))
	var sortErr error
	if _, ok := productstore.ParseSort(q.Sort); !ok {
		sortErr = apperr.Invalid([]apperr.FieldError{{
			Field:   "sort",
			Message: "must be one of " + strings.Join(productstore.SortKeys(), ", ") + ", optionally followed by :asc or :desc",
		}})
	}
	return inputval.Join(err, sortErr)
}

// ServeList returns the catalog. Optional filters: category, availability,
// search; sort takes "field:asc|desc".
//
// GET /api/products
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{
		Category:     normalize.Filter(query.Get(r, "category")),
		Availability: normalize.Filter(query.Get(r, "availability")),
		Search:       normalize.QueryParam(query.Get(r, "search")),
		Sort:         normalize.QueryParam(query.Get(r, "sort")),
	})
}

// ServeByCategory is ServeList narrowed to one category.
//
// GET /api/products/category/{category}
func (h *Handler) ServeByCategory(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{
		Category: chi.URLParam(r, "category"),
		Sort:     normalize.QueryParam(query.Get(r, "sort")),
	})
}

// ServeSearch runs a full-text search, best match first unless a sort is
// given.
//
// GET /api/products/search/{query}
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listQuery{
		Search: normalize.QueryParam(chi.URLParam(r, "query")),
		Sort:   normalize.QueryParam(query.Get(r, "sort")),
	})
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, q listQuery) {
	if err := q.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "products: invalid filter", err)
		return
	}
	var sort *productstore.Sort
	if q.Sort != "" {
		s, _ := productstore.ParseSort(q.Sort)
		sort = &s
	}

	pg := paging.Parse(r, paging.PublicPageSize)
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	list, total, err := h.Products.List(ctx, productstore.ListFilter{
		Category:     q.Category,
		Availability: q.Availability,
		Search:       q.Search,
	}, sort, pg)
	if err != nil {
		h.fail(w, r, "products: list", err)
		return
	}
	respond.Page(w, r, list, paging.NewMeta(total, pg.Page, pg.Limit))
}

// ServeProduct returns one product.
//
// GET /api/products/{id}
func (h *Handler) ServeProduct(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.PathID(r, "id")
	if err != nil {
		h.ErrLog.Respond(w, r, "products: bad id", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "products: load", err)
		return
	}
	respond.OK(w, r, productResponse{Product: p})
}
