// Package productpolicy holds the product catalog rules.
//
// Rules:
//   - Editors and admins create and update products; only admins delete
//   - Products have no status workflow; availability is an independent enum
//   - Every accepted update refreshes updatedBy and updatedAt
//   - Uploading images on update replaces the image list
package productpolicy

import (
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/domain/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxNameLength = 200

// documentRules validates one linked document.
func documentRules(d *models.Document) error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Title, inputval.Required),
		validation.Field(&d.URL, inputval.Required, inputval.HTTPURL),
	)
}

var eachDocument = validation.By(func(value interface{}) error {
	var docs []models.Document
	switch v := value.(type) {
	case []models.Document:
		docs = v
	case *[]models.Document:
		if v == nil {
			return nil
		}
		docs = *v
	}
	errs := validation.Errors{}
	for i := range docs {
		if err := documentRules(&docs[i]); err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	return errs.Filter()
})

// ProductCreate is the body of POST /api/products.
type ProductCreate struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Category       string              `json:"category"`
	Price          *float64            `json:"price"`
	Availability   string              `json:"availability"`
	Specifications map[string]string   `json:"specifications"`
	Features       []string            `json:"features"`
	Documentation  []models.Document   `json:"documentation"`
	Tags           []string            `json:"tags"`
	Metadata       *models.SEOMetadata `json:"metadata"`
}

// Validate reports every violation in one error.
func (c *ProductCreate) Validate() error {
	return inputval.Check(validation.ValidateStruct(c,
		validation.Field(&c.Name, inputval.Required, inputval.MaxLength(MaxNameLength)),
		validation.Field(&c.Description, inputval.Required),
		validation.Field(&c.Category, inputval.Required, inputval.OneOf(models.ProductCategories)),
		validation.Field(&c.Price, validation.NotNil, validation.Min(0.0)),
		validation.Field(&c.Availability, inputval.OneOf(models.Availabilities)),
		validation.Field(&c.Features, inputval.Each(inputval.NotBlank)),
		validation.Field(&c.Documentation, eachDocument),
		validation.Field(&c.Tags, inputval.Each(inputval.NotBlank)),
	))
}

// NewProduct builds the product a validated create payload describes.
func NewProduct(c ProductCreate, actor primitive.ObjectID, now time.Time) models.Product {
	p := models.Product{
		Name:           strings.TrimSpace(c.Name),
		Description:    strings.TrimSpace(c.Description),
		Category:       c.Category,
		Specifications: c.Specifications,
		Features:       trimAll(c.Features),
		Images:         []models.Image{},
		Documentation:  c.Documentation,
		Availability:   c.Availability,
		Tags:           normalize.Tags(c.Tags),
		CreatedByID:    actor,
		UpdatedByID:    actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Metadata != nil {
		p.Metadata = *c.Metadata
	}
	if p.Availability == "" {
		p.Availability = models.AvailabilityInStock
	}
	return p
}

// ProductUpdate is the body of PATCH /api/products/{id}. A nil field is left
// unchanged.
type ProductUpdate struct {
	Name           *string            `json:"name"`
	Description    *string            `json:"description"`
	Category       *string            `json:"category"`
	Price          *float64           `json:"price"`
	Availability   *string            `json:"availability"`
	Tags           *[]string          `json:"tags"`
	Specifications *map[string]string `json:"specifications"`
	Features       *[]string          `json:"features"`
}

// Validate reports every violation in one error.
func (u *ProductUpdate) Validate() error {
	return inputval.Check(validation.ValidateStruct(u,
		validation.Field(&u.Name, inputval.NotBlank, inputval.MaxLength(MaxNameLength)),
		validation.Field(&u.Description, inputval.NotBlank),
		validation.Field(&u.Category, inputval.NotBlank, inputval.OneOf(models.ProductCategories)),
		validation.Field(&u.Price, validation.Min(0.0)),
		validation.Field(&u.Availability, inputval.NotBlank, inputval.OneOf(models.Availabilities)),
		validation.Field(&u.Tags, inputval.Each(inputval.NotBlank)),
		validation.Field(&u.Features, inputval.Each(inputval.NotBlank)),
	))
}

// Empty reports whether the patch changes nothing.
func (u *ProductUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Category == nil && u.Price == nil &&
		u.Availability == nil && u.Tags == nil && u.Specifications == nil && u.Features == nil
}

// Apply applies u to p and records actor as the last editor.
func Apply(p *models.Product, u ProductUpdate, actor primitive.ObjectID, now time.Time) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = strings.TrimSpace(*u.Description)
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Availability != nil {
		p.Availability = *u.Availability
	}
	if u.Tags != nil {
		p.Tags = normalize.Tags(*u.Tags)
	}
	if u.Specifications != nil {
		p.Specifications = *u.Specifications
	}
	if u.Features != nil {
		p.Features = trimAll(*u.Features)
	}
	Touch(p, actor, now)
}

// Touch records actor as the last editor of p.
func Touch(p *models.Product, actor primitive.ObjectID, now time.Time) {
	p.UpdatedByID = actor
	p.UpdatedAt = now
}

// ReplaceImages swaps the image list for images, marking the first as main.
func ReplaceImages(p *models.Product, images []models.Image) {
	if len(images) == 0 {
		return
	}
	images[0].IsMain = true
	p.Images = images
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
