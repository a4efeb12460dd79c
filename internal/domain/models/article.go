// internal/domain/models/article.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Article is a news item, research write-up, or case study.
//
// Slug is derived from Title and is unique. PublishedAt is stamped the first
// time the article moves into the published status and never changes after.
type Article struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Slug          string             `bson:"slug" json:"slug"`
	Content       string             `bson:"content" json:"content"`
	Excerpt       string             `bson:"excerpt" json:"excerpt"`
	Type          string             `bson:"type" json:"type"`
	Category      string             `bson:"category" json:"category"`
	Tags          []string           `bson:"tags" json:"tags"`
	AuthorID      primitive.ObjectID `bson:"author_id" json:"-"`
	Author        *PersonRef         `bson:"-" json:"author,omitempty"`
	FeaturedImage *Image             `bson:"featured_image,omitempty" json:"featuredImage,omitempty"`
	Images        []Image            `bson:"images" json:"images"`
	Status        string             `bson:"status" json:"status"`
	PublishedAt   *time.Time         `bson:"published_at,omitempty" json:"publishedAt,omitempty"`
	Metadata      SEOMetadata        `bson:"metadata" json:"metadata"`
	Analytics     ArticleAnalytics   `bson:"analytics" json:"analytics"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Image is an uploaded picture attached to an article or product.
type Image struct {
	URL     string `bson:"url" json:"url"`
	Alt     string `bson:"alt,omitempty" json:"alt,omitempty"`
	Caption string `bson:"caption,omitempty" json:"caption,omitempty"`
	IsMain  bool   `bson:"is_main,omitempty" json:"isMain,omitempty"`
}

// SEOMetadata holds optional search-engine fields.
type SEOMetadata struct {
	SEOTitle       string   `bson:"seo_title,omitempty" json:"seoTitle,omitempty"`
	SEODescription string   `bson:"seo_description,omitempty" json:"seoDescription,omitempty"`
	Keywords       []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
}

// ArticleAnalytics counters only ever increase.
type ArticleAnalytics struct {
	Views    int64 `bson:"views" json:"views"`
	Shares   int64 `bson:"shares" json:"shares"`
	Comments int64 `bson:"comments" json:"comments"`
}

// Article types.
const (
	ArticleTypeNews      = "news"
	ArticleTypeResearch  = "research"
	ArticleTypeCaseStudy = "case-study"
)

// ArticleTypes is the closed set of article types.
var ArticleTypes = []string{ArticleTypeNews, ArticleTypeResearch, ArticleTypeCaseStudy}

// ArticleCategories is the closed set of article categories.
var ArticleCategories = []string{
	"Automation",
	"Manufacturing",
	"Technology",
	"Industry Trends",
	"Research",
}

// Article statuses.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
	ArticleStatusArchived  = "archived"
)

// ArticleStatuses is the closed set of article statuses.
var ArticleStatuses = []string{ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived}

// Analytics counter kinds accepted by the analytics endpoint.
const (
	AnalyticsView    = "view"
	AnalyticsShare   = "share"
	AnalyticsComment = "comment"
)

// AnalyticsKinds is the closed set of analytics counter kinds.
var AnalyticsKinds = []string{AnalyticsView, AnalyticsShare, AnalyticsComment}
