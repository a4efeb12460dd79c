package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)

	respond.Created(rec, req, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]any{"id": "abc"}, body["data"])
	assert.NotContains(t, body, "errors")
}

func TestPage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	respond.Page(rec, req, []string{"a"}, paging.NewMeta(21, 2, 10))

	body := decode(t, rec)
	pg, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 21, pg["total"])
	assert.EqualValues(t, 2, pg["page"])
	assert.EqualValues(t, 3, pg["pages"])
}

func TestError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)

	respond.Error(rec, req, apperr.Invalid([]apperr.FieldError{
		{Field: "title", Message: "cannot be blank"},
		{Field: "price", Message: "must be no less than 0"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Len(t, body["errors"], 2)
}

func TestError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	respond.Error(rec, req, errors.New("mongo: server selection timeout"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Internal server error", body["message"])
}
