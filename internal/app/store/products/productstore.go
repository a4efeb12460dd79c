package productstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the products collection name.
const Collection = "products"

// ErrNotFound is returned when no product matches.
var ErrNotFound = errors.New("product not found")

// sortFields maps the public sort keys to stored fields.
var sortFields = map[string]string{
	"name":      "name",
	"price":     "price",
	"category":  "category",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// Sort orders a product list.
type Sort struct {
	Field string // stored field name
	Desc  bool
}

// DefaultSort lists the newest products first.
var DefaultSort = Sort{Field: "created_at", Desc: true}

// ParseSort reads "field:asc|desc" (direction optional, ascending by
// default). ok is false for an unknown field or direction.
func ParseSort(s string) (sort Sort, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort, true
	}
	name, dir, _ := strings.Cut(s, ":")
	field, known := sortFields[name]
	if !known {
		return Sort{}, false
	}
	switch strings.ToLower(dir) {
	case "", "asc":
		return Sort{Field: field}, true
	case "desc":
		return Sort{Field: field, Desc: true}, true
	}
	return Sort{}, false
}

// SortKeys lists the accepted sort field names.
func SortKeys() []string {
	return []string{"name", "price", "category", "createdAt", "updatedAt"}
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a new product built by productpolicy.NewProduct.
func (s *Store) Create(ctx context.Context, p models.Product) (models.Product, error) {
	p.ID = primitive.NewObjectID()
	if p.Images == nil {
		p.Images = []models.Image{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// GetByID loads a product.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save writes back every field of p except its creation attribution.
func (s *Store) Save(ctx context.Context, p *models.Product) error {
	set := bson.M{
		"name":           p.Name,
		"description":    p.Description,
		"category":       p.Category,
		"specifications": p.Specifications,
		"features":       p.Features,
		"images":         p.Images,
		"documentation":  p.Documentation,
		"price":          p.Price,
		"availability":   p.Availability,
		"tags":           p.Tags,
		"metadata":       p.Metadata,
		"updated_by_id":  p.UpdatedByID,
		"updated_at":     p.UpdatedAt,
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a product.
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

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Category     string
	Availability string
	Search       string // full-text over name, description, features and tags
}

// List returns one page of products and the total match count. A search
// without an explicit sort is ordered by relevance.
func (s *Store) List(ctx context.Context, f ListFilter, sort *Sort, pg paging.Params) ([]models.Product, int64, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Availability != "" {
		filter["availability"] = f.Availability
	}
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	find := options.Find()
	switch {
	case sort != nil:
		dir := 1
		if sort.Desc {
			dir = -1
		}
		find.SetSort(bson.D{{Key: sort.Field, Value: dir}, {Key: "_id", Value: 1}})
	case f.Search != "":
		score := bson.M{"$meta": "textScore"}
		find.SetProjection(bson.M{"score": score}).SetSort(bson.D{{Key: "score", Value: score}})
	default:
		find.SetSort(bson.D{{Key: DefaultSort.Field, Value: -1}, {Key: "_id", Value: 1}})
	}
	pg.ApplyToFind(find)

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, total, nil
}
