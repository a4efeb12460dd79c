package contactstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the contact submissions collection name.
const Collection = "contact_submissions"

// ErrNotFound is returned when no submission matches.
var ErrNotFound = errors.New("contact submission not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a submission built by contactpolicy.NewSubmission.
func (s *Store) Create(ctx context.Context, sub models.ContactSubmission) (models.ContactSubmission, error) {
	sub.ID = primitive.NewObjectID()
	if sub.Notes == nil {
		sub.Notes = []models.ContactNote{}
	}
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		return models.ContactSubmission{}, err
	}
	return sub, nil
}

// GetByID loads a submission.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ContactSubmission, error) {
	var sub models.ContactSubmission
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// SaveStatus writes back status, priority and assignee.
func (s *Store) SaveStatus(ctx context.Context, sub *models.ContactSubmission) error {
	update := bson.M{"$set": bson.M{
		"status":     sub.Status,
		"priority":   sub.Priority,
		"updated_at": sub.UpdatedAt,
	}}
	if sub.AssignedToID != nil {
		update["$set"].(bson.M)["assigned_to_id"] = *sub.AssignedToID
	} else {
		update["$unset"] = bson.M{"assigned_to_id": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": sub.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PushNote appends a note and returns the updated submission. Notes are only
// ever appended, so concurrent notes never overwrite one another.
func (s *Store) PushNote(ctx context.Context, id primitive.ObjectID, note models.ContactNote) (*models.ContactSubmission, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var sub models.ContactSubmission
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"notes": note},
			"$set":  bson.M{"updated_at": note.CreatedAt},
		},
		opts,
	).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status   string
	Priority string
}

// List returns one page of submissions, newest first, and the total count.
func (s *Store) List(ctx context.Context, f ListFilter, pg paging.Params) ([]models.ContactSubmission, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	find := pg.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, fmt.Errorf("find submissions: %w", err)
	}
	defer cur.Close(ctx)

	subs := []models.ContactSubmission{}
	if err := cur.All(ctx, &subs); err != nil {
		return nil, 0, fmt.Errorf("decode submissions: %w", err)
	}
	return subs, total, nil
}
