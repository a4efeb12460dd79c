package login_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	"github.com/dalemusser/automationhub/internal/app/features/login"
	"github.com/dalemusser/automationhub/internal/app/store/audit"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/auth"
	"github.com/dalemusser/automationhub/internal/app/system/indexes"
	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/dalemusser/automationhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const testSecret = "login-test-secret-at-least-32-bytes"

type env struct {
	db       *mongo.Database
	users    *userstore.Store
	sessions *auth.SessionManager
	audit    *audit.Store
	handler  *login.Handler
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	sm, err := auth.NewSessionManager(testSecret, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	users := userstore.New(db)
	auditStore := audit.New(db)
	h := login.NewHandler(users, sm,
		auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Auth: auditlog.DB}),
		uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
	return env{db: db, users: users, sessions: sm, audit: auditStore, handler: h}
}

type session struct {
	User struct {
		ID        string     `json:"id"`
		Email     string     `json:"email"`
		Role      string     `json:"role"`
		LastLogin *time.Time `json:"lastLogin"`
	} `json:"user"`
	Token string `json:"token"`
}

func TestHandleRegister_CreatesViewer(t *testing.T) {
	e := setup(t)

	req := testutil.JSONRequest(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":     "  New.User@Example.com ",
		"password":  "secret123",
		"firstName": "New",
		"lastName":  "User",
	})
	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); strings.Contains(body, "$2a$") || strings.Contains(body, "password") {
		t.Fatalf("response leaks credential data: %s", body)
	}

	var out session
	testutil.DecodeEnvelope(t, rec, &out)
	if out.User.Email != "new.user@example.com" {
		t.Errorf("email = %q, want normalized", out.User.Email)
	}
	if out.User.Role != "viewer" {
		t.Errorf("role = %q, want viewer", out.User.Role)
	}
	id, err := e.sessions.VerifyToken(out.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id.Hex() != out.User.ID {
		t.Errorf("token subject = %s, want %s", id.Hex(), out.User.ID)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	testutil.NewFixtures(t, e.db).CreateUser(ctx, "Taken", "taken@example.com", "viewer")

	req := testutil.JSONRequest(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":     "TAKEN@example.com",
		"password":  "secret123",
		"firstName": "Other",
		"lastName":  "Person",
	})
	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := testutil.DecodeEnvelope(t, rec, nil)
	if env.Message != "Email already registered" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestHandleRegister_ReportsEveryViolation(t *testing.T) {
	e := setup(t)

	req := testutil.JSONRequest(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "not-an-email",
		"password": "123",
	})
	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	got := testutil.DecodeEnvelope(t, rec, nil).ErrorFields()
	want := []string{"email", "firstName", "lastName", "password"}
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection(userstore.Collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("%d users created by an invalid request", n)
	}
}

func TestHandleRegister_RoleCannotBeChosen(t *testing.T) {
	e := setup(t)

	req := testutil.JSONRequest(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":     "climber@example.com",
		"password":  "secret123",
		"firstName": "Social",
		"lastName":  "Climber",
		"role":      "admin",
	})
	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := testutil.DecodeEnvelope(t, rec, nil).ErrorFields(); len(got) != 1 || got[0] != "role" {
		t.Errorf("fields = %v, want [role]", got)
	}
}

func TestHandleLogin_Success(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, e.db).CreateEditor(ctx, "editor@example.com")

	req := testutil.JSONRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "Editor@Example.com",
		"password": testutil.TestPassword,
	})
	rec := httptest.NewRecorder()
	e.handler.HandleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out session
	testutil.DecodeEnvelope(t, rec, &out)
	if out.Token == "" {
		t.Fatal("no token returned")
	}
	if out.User.LastLogin == nil {
		t.Error("lastLogin not returned")
	}

	stored, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.LastLogin == nil {
		t.Error("lastLogin not persisted")
	}

	events, err := e.audit.GetByUser(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventLoginSuccess {
		t.Errorf("audit events = %+v", events)
	}
}

func TestHandleLogin_Failures(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, e.db)
	fx.CreateUser(ctx, "Active", "active@example.com", "viewer")
	disabled := fx.CreateUser(ctx, "Gone", "gone@example.com", "viewer")
	if _, err := e.db.Collection(userstore.Collection).UpdateOne(ctx,
		bson.M{"_id": disabled.ID}, bson.M{"$set": bson.M{"status": "disabled"}}); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", testutil.TestPassword},
		{"wrong password", "active@example.com", "not-the-password"},
		{"disabled account", "gone@example.com", testutil.TestPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
				"email":    tt.email,
				"password": tt.password,
			})
			rec := httptest.NewRecorder()
			e.handler.HandleLogin(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if msg := testutil.DecodeEnvelope(t, rec, nil).Message; msg != "Invalid credentials" {
				t.Errorf("message = %q", msg)
			}
		})
	}

	failed, err := e.audit.GetFailedLogins(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(failed) != len(tests) {
		t.Errorf("failed login events = %d, want %d", len(failed), len(tests))
	}
}

func TestMountRoutes_LoginIsRateLimited(t *testing.T) {
	e := setup(t)
	limiter := ratelimit.New(ratelimit.PerMinute(1))
	defer limiter.Stop()

	r := chi.NewRouter()
	login.MountRoutes(r, e.handler, limiter)

	post := func() int {
		req := testutil.JSONRequest(t, http.MethodPost, "/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "whatever",
		})
		req.RemoteAddr = "203.0.113.5:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(); code != http.StatusUnauthorized {
		t.Fatalf("first attempt status = %d, want 401", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt status = %d, want 429", code)
	}
}
