// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PublicPageSize is the default page size for public content lists.
const PublicPageSize = 10

// AdminPageSize is the default page size for admin inboxes (contact
// submissions, newsletter subscribers).
const AdminPageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 100

// Params is a 1-based page number and page size.
type Params struct {
	Page  int
	Limit int
}

// Parse reads "page" and "limit" from the query string. Missing or invalid
// values fall back to page 1 and defaultLimit; limit is capped at MaxPageSize.
func Parse(r *http.Request, defaultLimit int) Params {
	p := Params{
		Page:  parsePositive(query.Get(r, "page"), 1),
		Limit: parsePositive(query.Get(r, "limit"), defaultLimit),
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Skip returns the number of documents before this page.
func (p Params) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

// ApplyToFind sets skip and limit on find.
func (p Params) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
}

// Meta is the pagination block returned with list responses.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

// NewMeta computes the page count for total matching documents.
func NewMeta(total int64, page, limit int) Meta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Meta{Total: total, Page: page, Pages: pages}
}
