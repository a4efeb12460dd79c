package articlestore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	articlestore "github.com/dalemusser/automationhub/internal/app/store/articles"
	"github.com/dalemusser/automationhub/internal/app/system/indexes"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/automationhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*mongo.Database, *articlestore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db, articlestore.New(db), testutil.NewFixtures(t, db)
}

func TestStore_Create_DuplicateSlug(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := models.Article{Title: "Same", Slug: "same", Status: models.ArticleStatusDraft, AuthorID: primitive.NewObjectID()}
	created, err := store.Create(ctx, a)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if _, err := store.Create(ctx, a); !errors.Is(err, articlestore.ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestStore_ViewBySlug(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := primitive.NewObjectID()
	fx.CreateArticle(ctx, "Live", "live", models.ArticleStatusPublished, author)
	fx.CreateArticle(ctx, "Hidden", "hidden", models.ArticleStatusDraft, author)

	a, err := store.ViewBySlug(ctx, "live")
	if err != nil {
		t.Fatalf("ViewBySlug failed: %v", err)
	}
	if a.Analytics.Views != 1 {
		t.Errorf("views = %d, want 1", a.Analytics.Views)
	}
	a, _ = store.ViewBySlug(ctx, "live")
	if a.Analytics.Views != 2 {
		t.Errorf("views = %d, want 2", a.Analytics.Views)
	}

	if _, err := store.ViewBySlug(ctx, "hidden"); !errors.Is(err, articlestore.ErrNotFound) {
		t.Errorf("draft article: expected ErrNotFound, got %v", err)
	}
}

func TestStore_Save(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := primitive.NewObjectID()
	a := fx.CreateArticle(ctx, "One", "one", models.ArticleStatusDraft, author)
	fx.CreateArticle(ctx, "Two", "two", models.ArticleStatusDraft, author)

	a.Title = "One Revised"
	a.Slug = "one-revised"
	if err := store.Save(ctx, &a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Slug != "one-revised" {
		t.Errorf("slug = %q", got.Slug)
	}

	a.Slug = "two"
	if err := store.Save(ctx, &a); !errors.Is(err, articlestore.ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}

	missing := models.Article{ID: primitive.NewObjectID(), Slug: "nobody"}
	if err := store.Save(ctx, &missing); !errors.Is(err, articlestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// Concurrent increments all land; Save does not reset counters.
func TestStore_IncAnalytics(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateArticle(ctx, "Counted", "counted", models.ArticleStatusPublished, primitive.NewObjectID())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncAnalytics(ctx, a.ID, models.AnalyticsShare); err != nil {
				t.Errorf("IncAnalytics failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := store.Save(ctx, &a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	counts, err := store.IncAnalytics(ctx, a.ID, models.AnalyticsComment)
	if err != nil {
		t.Fatalf("IncAnalytics failed: %v", err)
	}
	if counts.Shares != 10 || counts.Comments != 1 {
		t.Errorf("counts = %+v, want 10 shares and 1 comment", counts)
	}

	if _, err := store.IncAnalytics(ctx, a.ID, "like"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := store.IncAnalytics(ctx, primitive.NewObjectID(), models.AnalyticsView); !errors.Is(err, articlestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := primitive.NewObjectID()
	fx.CreateArticle(ctx, "Robot arms", "robot-arms", models.ArticleStatusPublished, author)
	time.Sleep(5 * time.Millisecond)
	fx.CreateArticle(ctx, "Conveyor belts", "conveyor-belts", models.ArticleStatusPublished, author)
	fx.CreateArticle(ctx, "Draft robots", "draft-robots", models.ArticleStatusDraft, author)

	published, total, err := store.List(ctx, articlestore.ListFilter{Status: models.ArticleStatusPublished}, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(published) != 2 {
		t.Fatalf("got %d/%d published, want 2", len(published), total)
	}
	if published[0].Slug != "conveyor-belts" {
		t.Errorf("expected newest first, got %q", published[0].Slug)
	}

	found, total, err := store.List(ctx, articlestore.ListFilter{Status: models.ArticleStatusPublished, Search: "robot"}, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List search failed: %v", err)
	}
	if total != 1 || len(found) != 1 || found[0].Slug != "robot-arms" {
		t.Errorf("search returned %d results (total %d)", len(found), total)
	}

	tagged, _, err := store.List(ctx, articlestore.ListFilter{Tag: "test"}, paging.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List tag failed: %v", err)
	}
	if len(tagged) != 1 {
		t.Errorf("page 2 returned %d articles, want 1", len(tagged))
	}
}

func TestStore_Delete(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateArticle(ctx, "Gone", "gone", models.ArticleStatusDraft, primitive.NewObjectID())
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, articlestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
