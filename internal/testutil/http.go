package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/auth"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminIdentity returns an admin identity not backed by any stored user.
func AdminIdentity() *authz.Identity {
	return &authz.Identity{
		UserID:    primitive.NewObjectID(),
		Email:     "admin@test.com",
		FirstName: "Test",
		LastName:  "Admin",
		Role:      authz.RoleAdmin,
	}
}

// EditorIdentity returns an editor identity not backed by any stored user.
func EditorIdentity() *authz.Identity {
	return &authz.Identity{
		UserID:    primitive.NewObjectID(),
		Email:     "editor@test.com",
		FirstName: "Test",
		LastName:  "Editor",
		Role:      authz.RoleEditor,
	}
}

// ViewerIdentity returns a viewer identity not backed by any stored user.
func ViewerIdentity() *authz.Identity {
	return &authz.Identity{
		UserID:    primitive.NewObjectID(),
		Email:     "viewer@test.com",
		FirstName: "Test",
		LastName:  "Viewer",
		Role:      authz.RoleViewer,
	}
}

// IdentityOf builds the identity of a stored user.
func IdentityOf(u models.User) *authz.Identity {
	role, _ := authz.ParseRole(u.Role)
	return &authz.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      role,
	}
}

// WithIdentity adds an identity to the request context, bypassing the token
// middleware. A nil identity leaves the request anonymous.
func WithIdentity(r *http.Request, id *authz.Identity) *http.Request {
	if id == nil {
		return r
	}
	return auth.WithTestUser(r, id)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// JSONRequest creates a request whose body is body encoded as JSON. A string
// body is sent verbatim.
func JSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// File is one file part of a multipart request.
type File struct {
	Field       string
	Name        string
	ContentType string
	Body        []byte
}

// PNG is a minimal body that content sniffing reports as image/png.
var PNG = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// MultipartRequest builds a multipart/form-data request with text fields and
// file parts.
func MultipartRequest(t *testing.T, method, target string, fields map[string]string, files ...File) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.Body); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// Envelope is the decoded form of every API response.
type Envelope struct {
	Status     string              `json:"status"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Pagination *Pagination         `json:"pagination"`
	Errors     []apperr.FieldError `json:"errors"`
}

// Pagination mirrors the list pagination block.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

// ErrorFields returns the field names listed in an error envelope.
func (e Envelope) ErrorFields() []string {
	out := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		out = append(out, f.Field)
	}
	return out
}

// DecodeEnvelope decodes a recorded response. When dataOut is non-nil the
// data member is decoded into it.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dataOut any) Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if dataOut != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dataOut); err != nil {
			t.Fatalf("decode envelope data: %v (data %s)", err, env.Data)
		}
	}
	return env
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
