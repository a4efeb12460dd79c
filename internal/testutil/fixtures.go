package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "secret123"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates an active user with TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, firstName, email, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash test password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     "Tester",
		Role:         role,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Admin", email, "admin")
}

// CreateEditor creates an editor user.
func (f *Fixtures) CreateEditor(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Editor", email, "editor")
}

// CreateArticle creates an article with the given title and status. Published
// articles get PublishedAt set to now.
func (f *Fixtures) CreateArticle(ctx context.Context, title, slug, status string, author primitive.ObjectID) models.Article {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	a := models.Article{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Slug:      slug,
		Content:   "<p>" + title + "</p>",
		Excerpt:   title,
		Type:      models.ArticleTypeNews,
		Category:  "Automation",
		Tags:      []string{"test"},
		AuthorID:  author,
		Images:    []models.Image{},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.ArticleStatusPublished {
		a.PublishedAt = &now
	}
	f.insert(ctx, "articles", a)
	return a
}

// CreateProduct creates a product in category.
func (f *Fixtures) CreateProduct(ctx context.Context, name, category string, price float64, actor primitive.ObjectID) models.Product {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := models.Product{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Description:  name + " description",
		Category:     category,
		Features:     []string{},
		Images:       []models.Image{},
		Price:        price,
		Availability: models.AvailabilityInStock,
		Tags:         []string{},
		CreatedByID:  actor,
		UpdatedByID:  actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "products", p)
	return p
}

// CreateSubmission creates a contact submission in status.
func (f *Fixtures) CreateSubmission(ctx context.Context, email, status string) models.ContactSubmission {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	c := models.ContactSubmission{
		ID:        primitive.NewObjectID(),
		Name:      "Customer",
		Email:     email,
		Subject:   "General Inquiry",
		Message:   "Hello there",
		Status:    status,
		Priority:  models.PriorityMedium,
		Notes:     []models.ContactNote{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "contact_submissions", c)
	return c
}

// CreateSubscriber creates a subscriber. A non-empty token is stored with an
// expiry of expiresIn from now.
func (f *Fixtures) CreateSubscriber(ctx context.Context, email, status, token string, expiresIn time.Duration) models.Subscriber {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	s := models.Subscriber{
		ID:          primitive.NewObjectID(),
		Email:       email,
		Preferences: models.DefaultPreferences(),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if token != "" {
		exp := now.Add(expiresIn)
		s.VerificationToken = token
		s.VerificationExpires = &exp
	}
	f.insert(ctx, "subscribers", s)
	return s
}
