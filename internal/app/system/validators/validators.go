// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod support (some DocumentDB versions)
// are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("articles", articlesSchema())
	ensure("products", productsSchema())
	ensure("contact_submissions", contactSchema())
	ensure("subscribers", subscribersSchema())
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers ---------------------- */

func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if hasCode(err, 48, "already exists", "namespace exists") {
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

// hasCode matches a server command error by code, or any error by message
// fragment.
func hasCode(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isUnsupported(err error) bool {
	return hasCode(err, 59, "no such command") ||
		hasCode(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values []string) bson.M {
	a := make(bson.A, 0, len(values))
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password_hash", "role", "status"},
			"properties": bson.M{
				"email":         nonBlank,
				"password_hash": nonBlank,
				"role":          enum(authz.RoleNames()),
				"status":        enum([]string{models.UserStatusActive, models.UserStatusDisabled}),
			},
		},
	}
}

func articlesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "slug", "content", "type", "category", "status", "author_id"},
			"properties": bson.M{
				"title":     nonBlank,
				"slug":      nonBlank,
				"content":   nonBlank,
				"type":      enum(models.ArticleTypes),
				"category":  enum(models.ArticleCategories),
				"status":    enum(models.ArticleStatuses),
				"author_id": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func productsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "description", "category", "price", "availability"},
			"properties": bson.M{
				"name":         nonBlank,
				"description":  nonBlank,
				"category":     enum(models.ProductCategories),
				"price":        bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
				"availability": enum(models.Availabilities),
			},
		},
	}
}

func contactSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "subject", "message", "status", "priority"},
			"properties": bson.M{
				"name":     nonBlank,
				"email":    nonBlank,
				"subject":  enum(models.ContactSubjects),
				"message":  nonBlank,
				"status":   enum(models.ContactStatuses),
				"priority": enum(models.Priorities),
				"notes":    bson.M{"bsonType": "array"},
			},
		},
	}
}

func subscribersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "status", "preferences"},
			"properties": bson.M{
				"email":       nonBlank,
				"status":      enum(models.SubscriberStatuses),
				"preferences": bson.M{"bsonType": "object"},
			},
		},
	}
}
