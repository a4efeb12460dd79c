package inputval_test

import (
	"net/url"
	"testing"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formWidget struct {
	Name   *string            `json:"name"`
	Price  *float64           `json:"price"`
	Tags   *[]string          `json:"tags"`
	Active *bool              `json:"active"`
	Specs  *map[string]string `json:"specs"`
}

func TestDecodeFormUpdate_Coerces(t *testing.T) {
	vals := url.Values{
		"name":   {"Gear"},
		"price":  {"12.5"},
		"tags[]": {"a", "b"},
		"active": {"true"},
		"specs":  {`{"rpm":"1200"}`},
	}
	var w formWidget
	require.NoError(t, inputval.DecodeFormUpdate(vals, &w))

	assert.Equal(t, "Gear", *w.Name)
	assert.InDelta(t, 12.5, *w.Price, 0.0001)
	assert.Equal(t, []string{"a", "b"}, *w.Tags)
	assert.True(t, *w.Active)
	assert.Equal(t, "1200", (*w.Specs)["rpm"])
}

func TestDecodeFormUpdate_CommaList(t *testing.T) {
	var w formWidget
	require.NoError(t, inputval.DecodeFormUpdate(url.Values{"tags": {"x, y,,z"}}, &w))
	assert.Equal(t, []string{"x", "y", "z"}, *w.Tags)
}

func TestDecodeFormUpdate_UnknownField(t *testing.T) {
	var w formWidget
	err := inputval.DecodeFormUpdate(url.Values{"owner": {"me"}}, &w)
	assert.True(t, apperr.IsKind(err, apperr.InvalidUpdate))
}

func TestDecodeFormCreate_BadNumber(t *testing.T) {
	var w formWidget
	err := inputval.DecodeFormCreate(url.Values{"price": {"cheap"}}, &w)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	fields := apperr.FieldsOf(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "price", fields[0].Field)
}
