// internal/domain/models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog entry. It has no status workflow; Availability is the
// only enumerated axis. UpdatedByID is refreshed on every mutating update.
type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description" json:"description"`
	Category       string             `bson:"category" json:"category"`
	Specifications map[string]string  `bson:"specifications,omitempty" json:"specifications,omitempty"`
	Features       []string           `bson:"features" json:"features"`
	Images         []Image            `bson:"images" json:"images"`
	Documentation  []Document         `bson:"documentation,omitempty" json:"documentation,omitempty"`
	Price          float64            `bson:"price" json:"price"`
	Availability   string             `bson:"availability" json:"availability"`
	Tags           []string           `bson:"tags" json:"tags"`
	Metadata       SEOMetadata        `bson:"metadata" json:"metadata"`

	CreatedByID primitive.ObjectID `bson:"created_by_id" json:"createdBy"`
	UpdatedByID primitive.ObjectID `bson:"updated_by_id" json:"updatedBy"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Document is a downloadable datasheet or manual linked from a product.
type Document struct {
	Title string `bson:"title" json:"title"`
	URL   string `bson:"url" json:"url"`
	Type  string `bson:"type,omitempty" json:"type,omitempty"`
}

// ProductCategories is the closed set of product categories.
var ProductCategories = []string{
	"Automation Systems",
	"Robotics",
	"Control Systems",
	"Sensors",
	"Software Solutions",
}

// Availability values.
const (
	AvailabilityInStock    = "In Stock"
	AvailabilityOutOfStock = "Out of Stock"
	AvailabilityPreOrder   = "Pre-order"
)

// Availabilities is the closed set of availability values.
var Availabilities = []string{AvailabilityInStock, AvailabilityOutOfStock, AvailabilityPreOrder}
