// Package systemusers is the admin view of user accounts.
package systemusers

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
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

type listQuery struct {
	Role   string
	Status string
}

func (q *listQuery) Validate() error {
	return inputval.Check(validation.ValidateStruct(q,
		validation.Field(&q.Role, inputval.OneOf(authz.RoleNames())),
		validation.Field(&q.Status, inputval.OneOf([]string{models.UserStatusActive, models.UserStatusDisabled})),
	))
}

// ServeList returns one page of users, newest first. Optional filters:
// role, status, search (email or name substring).
//
// GET /api/auth/users
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := listQuery{
		Role:   normalize.Role(query.Get(r, "role")),
		Status: normalize.Status(query.Get(r, "status")),
	}
	if err := q.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "users: invalid filter", err)
		return
	}
	if _, err := authz.Require(r, authz.Admins); err != nil {
		h.ErrLog.Respond(w, r, "users: denied", err)
		return
	}

	pg := paging.Parse(r, paging.AdminPageSize)
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	users, total, err := h.Users.List(ctx, userstore.ListFilter{
		Role:   q.Role,
		Status: q.Status,
		Search: normalize.QueryParam(query.Get(r, "search")),
	}, pg)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "users: list", err)
		return
	}
	respond.Page(w, r, users, paging.NewMeta(total, pg.Page, pg.Limit))
}

type roleChange struct {
	Role string `json:"role"`
}

func (c *roleChange) Validate() error {
	return inputval.Check(validation.ValidateStruct(c,
		validation.Field(&c.Role, inputval.Required, inputval.OneOf(authz.RoleNames())),
	))
}

type userResponse struct {
	User *models.User `json:"user"`
}

// HandleRoleChange sets a user's role.
//
// PATCH /api/auth/users/{id}/role
func (h *Handler) HandleRoleChange(w http.ResponseWriter, r *http.Request) {
	targetID, idErr := inputval.PathID(r, "id")
	var req roleChange
	if err := inputval.DecodeUpdate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "users: bad role payload", err)
		return
	}
	if err := inputval.Join(idErr, req.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "users: invalid role change", err)
		return
	}
	actor, err := authz.Require(r, authz.Admins)
	if err != nil {
		h.ErrLog.Respond(w, r, "users: denied", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	before, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		h.respondUserErr(w, r, "users: load target", err)
		return
	}
	role, _ := authz.ParseRole(req.Role)
	after, err := h.Users.SetRole(ctx, targetID, role)
	if err != nil {
		h.respondUserErr(w, r, "users: set role", err)
		return
	}
	if before.Role != after.Role {
		h.AuditLog.RoleChanged(ctx, r, actor.UserID, targetID, before.Role, after.Role)
	}

	respond.OK(w, r, userResponse{User: after})
}

func (h *Handler) respondUserErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Respond(w, r, msg, apperr.Wrap(apperr.NotFound, "User not found", err))
		return
	}
	h.ErrLog.LogServerError(w, r, msg, err)
}
