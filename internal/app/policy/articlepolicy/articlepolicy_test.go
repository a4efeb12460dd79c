package articlepolicy

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strp(s string) *string { return &s }

func validCreate() ArticleCreate {
	return ArticleCreate{
		Title:    "Robots in the Plant",
		Content:  "<p>Body</p>",
		Type:     models.ArticleTypeNews,
		Category: "Automation",
	}
}

func fieldNames(err error) []string {
	var out []string
	for _, f := range apperr.FieldsOf(err) {
		out = append(out, f.Field)
	}
	return out
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":              "hello-world",
		"  Robots & PLCs: 2025!  ": "robots-plcs-2025",
		"already-slugged":          "already-slugged",
		"Ünïcode Only":             "n-code-only",
		"!!!":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestArticleCreate_Validate(t *testing.T) {
	c := validCreate()
	require.NoError(t, c.Validate())

	bad := ArticleCreate{
		Title:    "   ",
		Type:     "blog",
		Category: "Gardening",
		Tags:     []string{"ok", " "},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	assert.ElementsMatch(t, []string{"title", "content", "type", "category", "tags.1"}, fieldNames(err))
}

func TestArticleCreate_TitleWithoutSlug(t *testing.T) {
	c := validCreate()
	c.Title = "???"
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"title"}, fieldNames(err))
}

func TestNewArticle_Defaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	author := primitive.NewObjectID()

	c := validCreate()
	c.Tags = []string{" PLC ", "plc", "robots"}
	a := NewArticle(c, author, now)

	assert.Equal(t, "robots-in-the-plant", a.Slug)
	assert.Equal(t, models.ArticleStatusDraft, a.Status)
	assert.Nil(t, a.PublishedAt)
	assert.Equal(t, author, a.AuthorID)
	assert.NotNil(t, a.Images)
	assert.Equal(t, now, a.CreatedAt)

	c.Status = models.ArticleStatusPublished
	a = NewArticle(c, author, now)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, now, *a.PublishedAt)
}

func TestApply_PublishStampsOnce(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	a := NewArticle(validCreate(), primitive.NewObjectID(), t0)

	require.NoError(t, Apply(&a, ArticleUpdate{Status: strp(models.ArticleStatusPublished)}, t1))
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, t1, *a.PublishedAt)

	// published -> published leaves the stamp alone
	require.NoError(t, Apply(&a, ArticleUpdate{Status: strp(models.ArticleStatusPublished)}, t2))
	assert.Equal(t, t1, *a.PublishedAt)
	assert.Equal(t, t2, a.UpdatedAt)

	// unpublish and republish: still the first stamp
	require.NoError(t, Apply(&a, ArticleUpdate{Status: strp(models.ArticleStatusDraft)}, t2))
	require.NoError(t, Apply(&a, ArticleUpdate{Status: strp(models.ArticleStatusPublished)}, t2))
	assert.Equal(t, t1, *a.PublishedAt)
}

func TestApply_TitleRegeneratesSlug(t *testing.T) {
	a := NewArticle(validCreate(), primitive.NewObjectID(), time.Now())
	require.NoError(t, Apply(&a, ArticleUpdate{Title: strp("New Title")}, time.Now()))
	assert.Equal(t, "New Title", a.Title)
	assert.Equal(t, "new-title", a.Slug)
}

func TestApply_InvalidTransitionLeavesArticle(t *testing.T) {
	now := time.Now()
	a := NewArticle(validCreate(), primitive.NewObjectID(), now)
	a.Status = models.ArticleStatusArchived
	before := a

	err := Apply(&a, ArticleUpdate{
		Title:  strp("Changed"),
		Status: strp(models.ArticleStatusPublished),
	}, now.Add(time.Minute))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidTransition))
	assert.Equal(t, before, a)
}

func TestApply_SanitizesContent(t *testing.T) {
	a := NewArticle(validCreate(), primitive.NewObjectID(), time.Now())
	require.NoError(t, Apply(&a, ArticleUpdate{Content: strp(`<p>hi</p><script>alert(1)</script>`)}, time.Now()))
	assert.Equal(t, "<p>hi</p>", a.Content)
}

func TestArticleUpdate_RejectsAuthor(t *testing.T) {
	var u ArticleUpdate
	err := inputval.DecodeUpdate(strings.NewReader(`{"title":"x","author":"someone"}`), &u)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidUpdate))
}

func TestArticleUpdate_Validate(t *testing.T) {
	u := ArticleUpdate{
		Title:  strp(""),
		Type:   strp("blog"),
		Status: strp("deleted"),
	}
	err := u.Validate()
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"title", "type", "status"}, fieldNames(err))

	assert.True(t, (&ArticleUpdate{}).Empty())
	assert.False(t, (&ArticleUpdate{Tags: &[]string{}}).Empty())
}

func TestAttachImages(t *testing.T) {
	a := NewArticle(validCreate(), primitive.NewObjectID(), time.Now())
	AttachImages(&a, []models.Image{{URL: "/uploads/articles/a.png"}, {URL: "/uploads/articles/b.png"}})

	require.NotNil(t, a.FeaturedImage)
	assert.Equal(t, "/uploads/articles/a.png", a.FeaturedImage.URL)
	assert.True(t, a.Images[0].IsMain)
	assert.False(t, a.Images[1].IsMain)

	AttachImages(&a, []models.Image{{URL: "/uploads/articles/c.png"}})
	assert.Equal(t, "/uploads/articles/a.png", a.FeaturedImage.URL)
	assert.Len(t, a.Images, 3)
}

func TestAnalyticsRequest_Validate(t *testing.T) {
	require.NoError(t, (&AnalyticsRequest{Type: "share"}).Validate())
	assert.Error(t, (&AnalyticsRequest{Type: "like"}).Validate())
	assert.Error(t, (&AnalyticsRequest{}).Validate())
}
