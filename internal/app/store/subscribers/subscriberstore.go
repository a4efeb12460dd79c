package subscriberstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/newsletterpolicy"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the newsletter subscribers collection name.
const Collection = "subscribers"

var (
	ErrNotFound       = errors.New("subscriber not found")
	ErrDuplicateEmail = errors.New("subscriber email already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a pending subscriber. The unique email index turns a racing
// second subscribe into ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, sub models.Subscriber) (models.Subscriber, error) {
	sub.ID = primitive.NewObjectID()
	if _, err := s.c.InsertOne(ctx, sub); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Subscriber{}, ErrDuplicateEmail
		}
		return models.Subscriber{}, err
	}
	return sub, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Resubscribe replaces a previously unsubscribed record with its new pending
// state. The filter on status keeps a concurrent verify from being undone.
func (s *Store) Resubscribe(ctx context.Context, sub *models.Subscriber) error {
	res, err := s.c.ReplaceOne(ctx,
		bson.M{"_id": sub.ID, "status": models.SubscriberStatusUnsubscribed},
		sub,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeToken verifies the pending subscriber holding token. The match,
// status flip and token removal happen in one update, so a token works once.
func (s *Store) ConsumeToken(ctx context.Context, token string, now time.Time) (*models.Subscriber, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var sub models.Subscriber
	err := s.c.FindOneAndUpdate(ctx,
		newsletterpolicy.VerifyFilter(token, now),
		newsletterpolicy.VerifyUpdate(now),
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

// Unsubscribe marks email unsubscribed and drops any outstanding token.
func (s *Store) Unsubscribe(ctx context.Context, email string, now time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$set":   bson.M{"status": models.SubscriberStatusUnsubscribed, "updated_at": now},
			"$unset": bson.M{"verification_token": "", "verification_expires": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPreferences overwrites the preferences of the subscriber with email.
func (s *Store) SetPreferences(ctx context.Context, email string, prefs models.Preferences, now time.Time) (*models.Subscriber, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var sub models.Subscriber
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"preferences": prefs, "updated_at": now}},
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

// List returns one page of subscribers, newest first. An empty status
// matches every subscriber.
func (s *Store) List(ctx context.Context, status string, pg paging.Params) ([]models.Subscriber, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}

	find := pg.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, fmt.Errorf("find subscribers: %w", err)
	}
	defer cur.Close(ctx)

	subs := []models.Subscriber{}
	if err := cur.All(ctx, &subs); err != nil {
		return nil, 0, fmt.Errorf("decode subscribers: %w", err)
	}
	return subs, total, nil
}

// ListRecipients returns the emails of subscribed subscribers who opted
// into at least one of categories. No categories means every subscriber.
func (s *Store) ListRecipients(ctx context.Context, categories []string) ([]string, error) {
	find := options.Find().
		SetProjection(bson.M{"email": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, newsletterpolicy.RecipientFilter(categories), find)
	if err != nil {
		return nil, fmt.Errorf("find recipients: %w", err)
	}
	defer cur.Close(ctx)

	emails := []string{}
	for cur.Next(ctx) {
		var row struct {
			Email string `bson:"email"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode recipient: %w", err)
		}
		emails = append(emails, row.Email)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

// MarkSent stamps lastEmailSent on every delivered address.
func (s *Store) MarkSent(ctx context.Context, emails []string, at time.Time) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"email": bson.M{"$in": emails}},
		bson.M{"$set": bson.M{"last_email_sent": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark sent: %w", err)
	}
	return res.ModifiedCount, nil
}
