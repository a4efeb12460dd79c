package articlestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the articles collection name.
const Collection = "articles"

var (
	// ErrNotFound is returned when no article matches.
	ErrNotFound = errors.New("article not found")
	// ErrDuplicateSlug is returned when another article already uses the slug.
	ErrDuplicateSlug = errors.New("an article with this slug already exists")
	errBadKind       = errors.New(`analytics kind must be "view"|"share"|"comment"`)
)

// analyticsFields maps analytics kinds to their counter field.
var analyticsFields = map[string]string{
	models.AnalyticsView:    "analytics.views",
	models.AnalyticsShare:   "analytics.shares",
	models.AnalyticsComment: "analytics.comments",
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a new article built by articlepolicy.NewArticle.
func (s *Store) Create(ctx context.Context, a models.Article) (models.Article, error) {
	a.ID = primitive.NewObjectID()
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Images == nil {
		a.Images = []models.Image{}
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Article{}, ErrDuplicateSlug
		}
		return models.Article{}, err
	}
	return a, nil
}

// GetByID loads an article in any status.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error) {
	var a models.Article
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ViewBySlug loads a published article by slug and counts the view in the
// same round trip. The returned article includes the new count.
func (s *Store) ViewBySlug(ctx context.Context, slug string) (*models.Article, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a models.Article
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"slug": slug, "status": models.ArticleStatusPublished},
		bson.M{"$inc": bson.M{"analytics.views": 1}},
		opts,
	).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Save writes back the editable fields of a. Analytics are left alone so a
// concurrent increment is never overwritten.
func (s *Store) Save(ctx context.Context, a *models.Article) error {
	set := bson.M{
		"title":          a.Title,
		"slug":           a.Slug,
		"content":        a.Content,
		"excerpt":        a.Excerpt,
		"type":           a.Type,
		"category":       a.Category,
		"tags":           a.Tags,
		"status":         a.Status,
		"images":         a.Images,
		"featured_image": a.FeaturedImage,
		"published_at":   a.PublishedAt,
		"metadata":       a.Metadata,
		"updated_at":     a.UpdatedAt,
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an article.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncAnalytics bumps one counter and returns the updated counters.
func (s *Store) IncAnalytics(ctx context.Context, id primitive.ObjectID, kind string) (models.ArticleAnalytics, error) {
	field, ok := analyticsFields[kind]
	if !ok {
		return models.ArticleAnalytics{}, errBadKind
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"analytics": 1})
	var out struct {
		Analytics models.ArticleAnalytics `bson:"analytics"`
	}
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: 1}}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ArticleAnalytics{}, ErrNotFound
		}
		return models.ArticleAnalytics{}, err
	}
	return out.Analytics, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status   string
	Type     string
	Category string
	Tag      string
	Search   string // full-text over title, excerpt, content and tags
}

func (f ListFilter) bson() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
	}
	return filter
}

// List returns one page of articles and the total match count. Searches are
// ordered by relevance; everything else newest first.
func (s *Store) List(ctx context.Context, f ListFilter, pg paging.Params) ([]models.Article, int64, error) {
	filter := f.bson()

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	find := options.Find()
	if f.Search != "" {
		score := bson.M{"$meta": "textScore"}
		find.SetProjection(bson.M{"score": score}).
			SetSort(bson.D{{Key: "score", Value: score}, {Key: "published_at", Value: -1}})
	} else {
		find.SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "created_at", Value: -1}})
	}
	pg.ApplyToFind(find)

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, fmt.Errorf("find articles: %w", err)
	}
	defer cur.Close(ctx)

	articles := []models.Article{}
	if err := cur.All(ctx, &articles); err != nil {
		return nil, 0, fmt.Errorf("decode articles: %w", err)
	}
	return articles, total, nil
}
