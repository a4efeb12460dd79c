// Package profile lets a signed-in user read and edit their own account.
package profile

import (
	"errors"
	"net/http"

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
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, AuditLog: audit, ErrLog: errLog, Log: logger}
}

type userResponse struct {
	User *models.User `json:"user"`
}

// profileUpdate lists the only fields PATCH /profile may change.
type profileUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
}

func (u *profileUpdate) Validate() error {
	return inputval.Check(validation.ValidateStruct(u,
		validation.Field(&u.FirstName, inputval.NotBlank, inputval.MaxLength(100)),
		validation.Field(&u.LastName, inputval.NotBlank, inputval.MaxLength(100)),
		validation.Field(&u.Email, inputval.NotBlank, inputval.Email),
	))
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (p *passwordChange) Validate() error {
	return inputval.Check(validation.ValidateStruct(p,
		validation.Field(&p.CurrentPassword, inputval.Required),
		validation.Field(&p.NewPassword, inputval.Required,
			validation.Length(auth.MinPasswordLength, auth.MaxPasswordBytes)),
	))
}

var errWrongPassword = apperr.New(apperr.InvalidCredentials, "Current password is incorrect")

// ServeProfile returns the caller's account.
//
// GET /api/auth/profile
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	id, err := authz.Require(r, authz.Anyone)
	if err != nil {
		h.ErrLog.Respond(w, r, "profile: not signed in", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		h.respondUserErr(w, r, "profile: load user", err)
		return
	}
	respond.OK(w, r, userResponse{User: u})
}

// HandleUpdate changes the caller's name or email.
//
// PATCH /api/auth/profile
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd profileUpdate
	if err := inputval.DecodeUpdate(r.Body, &upd); err != nil {
		h.ErrLog.Respond(w, r, "profile: bad payload", err)
		return
	}
	if err := upd.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "profile: invalid payload", err)
		return
	}
	id, err := authz.Require(r, authz.Anyone)
	if err != nil {
		h.ErrLog.Respond(w, r, "profile: not signed in", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, id.UserID, userstore.ProfileUpdate{
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
		Email:     upd.Email,
	})
	if err != nil {
		h.respondUserErr(w, r, "profile: update", err)
		return
	}
	respond.OK(w, r, userResponse{User: u})
}

// HandleChangePassword replaces the caller's password after re-checking the
// current one.
//
// POST /api/auth/change-password
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordChange
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "change-password: bad payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "change-password: invalid payload", err)
		return
	}
	id, err := authz.Require(r, authz.Anyone)
	if err != nil {
		h.ErrLog.Respond(w, r, "change-password: not signed in", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		h.respondUserErr(w, r, "change-password: load user", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		h.ErrLog.Respond(w, r, "change-password: wrong current password", errWrongPassword)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "change-password: hash", err)
		return
	}
	if err := h.Users.SetPassword(ctx, u.ID, hash); err != nil {
		h.respondUserErr(w, r, "change-password: save", err)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, u.ID)

	respond.Message(w, r, http.StatusOK, "Password updated successfully")
}

func (h *Handler) respondUserErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.ErrLog.Respond(w, r, msg, apperr.Wrap(apperr.NotFound, "User not found", err))
	case errors.Is(err, userstore.ErrDuplicateEmail):
		h.ErrLog.Respond(w, r, msg, apperr.Wrap(apperr.DuplicateKey, "Email already registered", err))
	default:
		h.ErrLog.LogServerError(w, r, msg, err)
	}
}
