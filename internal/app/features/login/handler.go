// Package login serves account registration and sign-in.
package login

import (
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/auth"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Sessions *auth.SessionManager
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, sessions *auth.SessionManager, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Sessions: sessions,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

var errInvalidCredentials = apperr.New(apperr.InvalidCredentials, "Invalid credentials")

// passwordRule bounds a new password in bytes, the unit bcrypt limits.
var passwordRule = validation.Length(auth.MinPasswordLength, auth.MaxPasswordBytes)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (q *registerRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Email, inputval.Required, inputval.Email),
		validation.Field(&q.Password, inputval.Required, passwordRule),
		validation.Field(&q.FirstName, inputval.Required, inputval.MaxLength(100)),
		validation.Field(&q.LastName, inputval.Required, inputval.MaxLength(100)),
	))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (q *loginRequest) Validate() error {
	return inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Email, inputval.Required, inputval.Email),
		validation.Field(&q.Password, inputval.Required),
	))
}

// sessionResponse is returned by register and login.
type sessionResponse struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// HandleRegister creates a viewer account and signs it in.
//
// POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "register: bad payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "register: invalid payload", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: hash password", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         string(authz.RoleViewer),
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.ErrLog.Respond(w, r, "register: duplicate email", apperr.Wrap(apperr.DuplicateKey, "Email already registered", err))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: create user", err)
		return
	}

	token, exp, err := h.Sessions.IssueToken(u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: issue token", err)
		return
	}
	h.AuditLog.UserRegistered(ctx, r, u.ID, u.Email, u.Role)

	respond.Created(w, r, sessionResponse{User: u, Token: token, ExpiresAt: exp})
}

// HandleLogin verifies credentials and returns a bearer token. Every failure
// reports the same message so callers cannot probe which emails exist.
//
// POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "login: bad payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "login: invalid payload", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Email)
		h.ErrLog.Respond(w, r, "login: unknown email", errInvalidCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: load user", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		h.ErrLog.Respond(w, r, "login: wrong password", errInvalidCredentials)
		return
	}
	if u.Status == models.UserStatusDisabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, u.Email)
		h.ErrLog.Respond(w, r, "login: disabled account", errInvalidCredentials)
		return
	}

	token, exp, err := h.Sessions.IssueToken(u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: issue token", err)
		return
	}

	now := time.Now().UTC()
	if err := h.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
		h.Log.Warn("login: failed to record last login", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	} else {
		u.LastLogin = &now
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)

	respond.OK(w, r, sessionResponse{User: *u, Token: token, ExpiresAt: exp})
}
