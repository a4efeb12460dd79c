package auth_test

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Identity: the resolved principal (id, email, role) carried in the request context

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/auth"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long"

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(testSecret, 24*time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// fakeFetcher returns a fixed identity per user id.
type fakeFetcher map[primitive.ObjectID]*authz.Identity

func (f fakeFetcher) FetchIdentity(_ context.Context, id primitive.ObjectID) (*authz.Identity, error) {
	return f[id], nil
}

// brokenFetcher fails every lookup, as when the database is unreachable.
type brokenFetcher struct{}

func (brokenFetcher) FetchIdentity(context.Context, primitive.ObjectID) (*authz.Identity, error) {
	return nil, errors.New("server selection timeout")
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_RejectsEmptySecret(t *testing.T) {
	if _, err := auth.NewSessionManager("", time.Hour, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := auth.NewSessionManager(testSecret, 0, zap.NewNop()); err == nil {
		t.Fatal("expected error for zero lifetime")
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	sm := newTestSessionManager(t)
	userID := primitive.NewObjectID()

	token, exp, err := sm.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(exp) < 23*time.Hour {
		t.Errorf("expected expiry ~24h ahead, got %s", exp)
	}

	got, err := sm.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got != userID {
		t.Errorf("expected %s, got %s", userID.Hex(), got.Hex())
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	sm := newTestSessionManager(t)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	sm.SetClock(func() time.Time { return issued })

	token, _, err := sm.IssueToken(primitive.NewObjectID())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	sm.SetClock(func() time.Time { return issued.Add(25 * time.Hour) })
	if _, err := sm.VerifyToken(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	a := newTestSessionManager(t)
	b, _ := auth.NewSessionManager("a-completely-different-secret-of-32+", time.Hour, zap.NewNop())

	token, _, _ := a.IssueToken(primitive.NewObjectID())
	if _, err := b.VerifyToken(token); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
	if _, err := a.VerifyToken("not.a.token"); err == nil {
		t.Fatal("expected garbage token to fail")
	}
}

func TestLoadIdentity_ResolvesFreshUser(t *testing.T) {
	sm := newTestSessionManager(t)
	userID := primitive.NewObjectID()
	sm.SetUserFetcher(fakeFetcher{userID: {UserID: userID, Email: "ed@example.com", Role: authz.RoleEditor}})
	token, _, _ := sm.IssueToken(userID)

	var seen *authz.Identity
	h := sm.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || seen.Role != authz.RoleEditor {
		t.Fatalf("expected editor identity, got %+v", seen)
	}
}

func TestLoadIdentity_DisabledUserIsAnonymous(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fakeFetcher{}) // fetcher knows nobody
	token, _, _ := sm.IssueToken(primitive.NewObjectID())

	found := true
	h := sm.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("expected no identity for a user the fetcher does not return")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false

	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth/profile", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if called {
		t.Error("handler must not run")
	}
	if !strings.Contains(rec.Body.String(), `"status":"error"`) {
		t.Errorf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)

	tests := []struct {
		role     authz.Role
		expected int
	}{
		{authz.RoleAdmin, http.StatusOK},
		{authz.RoleEditor, http.StatusOK},
		{authz.RoleViewer, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			called := false
			req := httptest.NewRequest("GET", "/api/products", nil)
			req = auth.WithTestUser(req, &authz.Identity{UserID: primitive.NewObjectID(), Role: tc.role})

			rec := httptest.NewRecorder()
			sm.RequireRole(authz.Editors)(okHandler(&called)).ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("role %q: expected status %d, got %d", tc.role, tc.expected, rec.Code)
			}
			if called != (tc.expected == http.StatusOK) {
				t.Errorf("role %q: handler called = %v", tc.role, called)
			}
		})
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)

	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !auth.CheckPassword(hash, "s3cret!") {
		t.Error("expected matching password to verify")
	}
	if auth.CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
	if auth.CheckPassword("not-a-hash", "s3cret!") {
		t.Error("expected malformed hash to fail")
	}
}

func TestLoadIdentity_LookupFailureIs500(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(brokenFetcher{})
	token, _, _ := sm.IssueToken(primitive.NewObjectID())

	called := false
	h := sm.LoadIdentity(okHandler(&called))

	req := httptest.NewRequest("GET", "/api/articles", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if called {
		t.Error("request continued after the identity lookup failed")
	}
	if strings.Contains(rec.Body.String(), "server selection") {
		t.Errorf("response leaks the cause: %s", rec.Body.String())
	}
}
