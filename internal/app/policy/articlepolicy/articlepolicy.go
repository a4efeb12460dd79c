// Package articlepolicy holds the article lifecycle: the payloads editors may
// send, how they are validated, and how an accepted update changes an
// article.
//
// Rules:
//   - Editors and admins create and update any article; only admins delete
//   - A patch may change title, content, excerpt, type, category, tags and
//     status; any other field rejects the whole patch
//   - PublishedAt is stamped the first time an article becomes published and
//     is never reset afterwards
//   - The slug follows the title and must be unique
package articlepolicy

import (
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/lifecycle"
	"github.com/dalemusser/automationhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/domain/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxTitleLength   = 200
	MaxExcerptLength = 500
)

// Transitions lists the status moves an article may make.
var Transitions = lifecycle.NewMachine("article", map[string][]string{
	models.ArticleStatusDraft:     {models.ArticleStatusPublished, models.ArticleStatusArchived},
	models.ArticleStatusPublished: {models.ArticleStatusDraft, models.ArticleStatusArchived},
	models.ArticleStatusArchived:  {models.ArticleStatusDraft},
})

var errNoSlug = validation.NewError("validation_slug", "must contain at least one letter or digit")

// sluggable rejects titles that would produce an empty slug.
var sluggable = validation.By(func(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if strings.TrimSpace(s) != "" && Slugify(s) == "" {
		return errNoSlug
	}
	return nil
})

// ArticleCreate is the body of POST /api/articles.
type ArticleCreate struct {
	Title    string              `json:"title"`
	Content  string              `json:"content"`
	Excerpt  string              `json:"excerpt"`
	Type     string              `json:"type"`
	Category string              `json:"category"`
	Tags     []string            `json:"tags"`
	Status   string              `json:"status"`
	Metadata *models.SEOMetadata `json:"metadata"`
}

// Validate reports every violation in one error.
func (c *ArticleCreate) Validate() error {
	return inputval.Check(validation.ValidateStruct(c,
		validation.Field(&c.Title, inputval.Required, inputval.MaxLength(MaxTitleLength), sluggable),
		validation.Field(&c.Content, inputval.Required),
		validation.Field(&c.Excerpt, inputval.MaxLength(MaxExcerptLength)),
		validation.Field(&c.Type, inputval.Required, inputval.OneOf(models.ArticleTypes)),
		validation.Field(&c.Category, inputval.Required, inputval.OneOf(models.ArticleCategories)),
		validation.Field(&c.Tags, inputval.Each(inputval.NotBlank)),
		validation.Field(&c.Status, inputval.OneOf(models.ArticleStatuses)),
	))
}

// NewArticle builds the article a validated create payload describes.
func NewArticle(c ArticleCreate, authorID primitive.ObjectID, now time.Time) models.Article {
	a := models.Article{
		Title:     strings.TrimSpace(c.Title),
		Content:   htmlsanitize.Sanitize(c.Content),
		Excerpt:   strings.TrimSpace(c.Excerpt),
		Type:      c.Type,
		Category:  c.Category,
		Tags:      normalize.Tags(c.Tags),
		AuthorID:  authorID,
		Images:    []models.Image{},
		Status:    c.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.Slug = Slugify(a.Title)
	if c.Metadata != nil {
		a.Metadata = *c.Metadata
	}
	if a.Status == "" {
		a.Status = models.ArticleStatusDraft
	}
	if a.Status == models.ArticleStatusPublished {
		a.PublishedAt = &now
	}
	return a
}

// ArticleUpdate is the body of PATCH /api/articles/{id}. A nil field is left
// unchanged.
type ArticleUpdate struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Excerpt  *string   `json:"excerpt"`
	Type     *string   `json:"type"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
	Status   *string   `json:"status"`
}

// Validate reports every violation in one error.
func (u *ArticleUpdate) Validate() error {
	return inputval.Check(validation.ValidateStruct(u,
		validation.Field(&u.Title, inputval.NotBlank, inputval.MaxLength(MaxTitleLength), sluggable),
		validation.Field(&u.Content, inputval.NotBlank),
		validation.Field(&u.Excerpt, inputval.MaxLength(MaxExcerptLength)),
		validation.Field(&u.Type, inputval.NotBlank, inputval.OneOf(models.ArticleTypes)),
		validation.Field(&u.Category, inputval.NotBlank, inputval.OneOf(models.ArticleCategories)),
		validation.Field(&u.Tags, inputval.Each(inputval.NotBlank)),
		validation.Field(&u.Status, inputval.NotBlank, inputval.OneOf(models.ArticleStatuses)),
	))
}

// Empty reports whether the patch changes nothing.
func (u *ArticleUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Excerpt == nil && u.Type == nil &&
		u.Category == nil && u.Tags == nil && u.Status == nil
}

// Apply checks the status move and then applies u to a. On error a is left
// untouched.
func Apply(a *models.Article, u ArticleUpdate, now time.Time) error {
	if u.Status != nil {
		if err := Transitions.Check(a.Status, *u.Status); err != nil {
			return err
		}
	}

	if u.Title != nil {
		a.Title = strings.TrimSpace(*u.Title)
		a.Slug = Slugify(a.Title)
	}
	if u.Content != nil {
		a.Content = htmlsanitize.Sanitize(*u.Content)
	}
	if u.Excerpt != nil {
		a.Excerpt = strings.TrimSpace(*u.Excerpt)
	}
	if u.Type != nil {
		a.Type = *u.Type
	}
	if u.Category != nil {
		a.Category = *u.Category
	}
	if u.Tags != nil {
		a.Tags = normalize.Tags(*u.Tags)
	}
	if u.Status != nil {
		if *u.Status == models.ArticleStatusPublished && a.Status != models.ArticleStatusPublished && a.PublishedAt == nil {
			stamp := now
			a.PublishedAt = &stamp
		}
		a.Status = *u.Status
	}
	a.UpdatedAt = now
	return nil
}

// AttachImages appends uploaded images. The first image of an article without
// a featured image becomes the featured one.
func AttachImages(a *models.Article, images []models.Image) {
	if len(images) == 0 {
		return
	}
	if a.FeaturedImage == nil {
		images[0].IsMain = true
		featured := images[0]
		a.FeaturedImage = &featured
	}
	a.Images = append(a.Images, images...)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and collapses every run of characters other than
// a-z and 0-9 into a single dash.
func Slugify(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// AnalyticsRequest is the body of POST /api/articles/{id}/analytics.
type AnalyticsRequest struct {
	Type string `json:"type"`
}

// Validate checks the counter kind.
func (r *AnalyticsRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(r,
		validation.Field(&r.Type, inputval.Required, inputval.OneOf(models.AnalyticsKinds)),
	))
}
