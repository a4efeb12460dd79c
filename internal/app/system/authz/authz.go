// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID    primitive.ObjectID
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// Authorize decides whether id may invoke an operation that requires one of
// the roles in required. A nil identity is Unauthenticated; a role outside
// the set is Forbidden. It has no side effects.
func Authorize(id *Identity, required RoleSet) error {
	if id == nil {
		return apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if !required.Has(id.Role) {
		return apperr.New(apperr.Forbidden, "Insufficient permissions")
	}
	return nil
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}

// UserCtx returns the current identity and a found flag.
func UserCtx(r *http.Request) (*Identity, bool) {
	return IdentityFrom(r.Context())
}

// Require authorizes the request's identity against required and returns it.
func Require(r *http.Request, required RoleSet) (*Identity, error) {
	id, _ := UserCtx(r)
	if err := Authorize(id, required); err != nil {
		return nil, err
	}
	return id, nil
}

// IsAdmin reports whether the current request's identity is an admin.
func IsAdmin(r *http.Request) bool {
	id, ok := UserCtx(r)
	return ok && id.Role == RoleAdmin
}

// HasAnyRole reports whether the current request's identity holds any of roles.
func HasAnyRole(r *http.Request, roles ...Role) bool {
	id, ok := UserCtx(r)
	return ok && SetOf(roles...).Has(id.Role)
}
