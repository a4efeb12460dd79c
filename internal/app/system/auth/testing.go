package auth

import (
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/authz"
)

// WithTestUser injects an identity into the request context, as
// LoadIdentity would. Intended for handler tests.
func WithTestUser(r *http.Request, id *authz.Identity) *http.Request {
	return withIdentity(r, id)
}

// SetClock overrides the time source used for issuing and verifying
// tokens. Intended for tests.
func (sm *SessionManager) SetClock(now func() time.Time) {
	sm.now = now
}
