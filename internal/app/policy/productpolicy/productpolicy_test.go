package productpolicy

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

func f64(v float64) *float64 { return &v }
func strp(s string) *string { return &s }

func fieldNames(err error) []string {
	var out []string
	for _, f := range apperr.FieldsOf(err) {
		out = append(out, f.Field)
	}
	return out
}

func validCreate() ProductCreate {
	return ProductCreate{
		Name:        "Servo Drive X1",
		Description: "Compact servo drive",
		Category:    "Robotics",
		Price:       f64(1299.5),
	}
}

func TestProductCreate_Validate(t *testing.T) {
	c := validCreate()
	require.NoError(t, c.Validate())

	zero := validCreate()
	zero.Price = f64(0)
	require.NoError(t, zero.Validate(), "a zero price is allowed")
}

// Missing name, wrong category and a negative price are all reported at once.
func TestProductCreate_AggregatesErrors(t *testing.T) {
	c := ProductCreate{
		Description: "desc",
		Category:    "Gardening",
		Price:       f64(-1),
	}
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	assert.ElementsMatch(t, []string{"name", "category", "price"}, fieldNames(err))
}

// A string price is reported alongside the blank name and unknown category
// instead of hiding them.
func TestProductCreate_DecodeReportsTypeAndSchemaErrors(t *testing.T) {
	var c ProductCreate
	err := inputval.DecodeCreate(strings.NewReader(
		`{"name":"","category":"Toys","price":"cheap","description":"Gripper kit"}`), &c)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	assert.Equal(t, []string{"category", "name", "price"}, fieldNames(err))
}

func TestProductCreate_PriceRequired(t *testing.T) {
	c := validCreate()
	c.Price = nil
	assert.Equal(t, []string{"price"}, fieldNames(c.Validate()))
}

func TestProductCreate_Documentation(t *testing.T) {
	c := validCreate()
	c.Documentation = []models.Document{
		{Title: "Manual", URL: "https://example.com/manual.pdf"},
		{Title: "", URL: "ftp://example.com/x"},
	}
	assert.ElementsMatch(t, []string{"documentation.1.title", "documentation.1.url"}, fieldNames(c.Validate()))
}

func TestNewProduct_Defaults(t *testing.T) {
	actor := primitive.NewObjectID()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	p := NewProduct(validCreate(), actor, now)
	assert.Equal(t, models.AvailabilityInStock, p.Availability)
	assert.Equal(t, actor, p.CreatedByID)
	assert.Equal(t, actor, p.UpdatedByID)
	assert.InDelta(t, 1299.5, p.Price, 0.001)
	assert.NotNil(t, p.Images)
}

func TestApply_RefreshesUpdatedBy(t *testing.T) {
	creator := primitive.NewObjectID()
	editor := primitive.NewObjectID()
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	p := NewProduct(validCreate(), creator, t0)
	Apply(&p, ProductUpdate{Availability: strp(models.AvailabilityPreOrder), Price: f64(10)}, editor, t1)

	assert.Equal(t, creator, p.CreatedByID)
	assert.Equal(t, editor, p.UpdatedByID)
	assert.Equal(t, t1, p.UpdatedAt)
	assert.Equal(t, models.AvailabilityPreOrder, p.Availability)
	assert.InDelta(t, 10.0, p.Price, 0.001)
	assert.Equal(t, "Servo Drive X1", p.Name)
}

func TestProductUpdate_Validate(t *testing.T) {
	u := ProductUpdate{Price: f64(-3), Availability: strp("Sold")}
	assert.ElementsMatch(t, []string{"price", "availability"}, fieldNames(u.Validate()))
	assert.True(t, (&ProductUpdate{}).Empty())
}

func TestReplaceImages(t *testing.T) {
	p := NewProduct(validCreate(), primitive.NewObjectID(), time.Now())
	p.Images = []models.Image{{URL: "/old.png", IsMain: true}}

	ReplaceImages(&p, []models.Image{{URL: "/a.png"}, {URL: "/b.png"}})
	require.Len(t, p.Images, 2)
	assert.Equal(t, "/a.png", p.Images[0].URL)
	assert.True(t, p.Images[0].IsMain)

	ReplaceImages(&p, nil)
	assert.Len(t, p.Images, 2)
}
