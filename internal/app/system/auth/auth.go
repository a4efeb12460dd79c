package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session tokens                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

const tokenIssuer = "automationhub"

// UserFetcher loads the current state of a user on every request, so role
// changes and disabled accounts take effect without waiting for the token
// to expire. It returns nil (and no error) when the user is missing or
// disabled.
type UserFetcher interface {
	FetchIdentity(ctx context.Context, userID primitive.ObjectID) (*authz.Identity, error)
}

// SessionManager issues and verifies bearer tokens and resolves the request
// identity.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	fetcher UserFetcher
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionManager builds a SessionManager signing HS256 tokens with
// secret. Tokens expire after ttl.
func NewSessionManager(secret string, ttl time.Duration, logger *zap.Logger) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", ttl)
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SetUserFetcher installs the fetcher used by LoadIdentity.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// IssueToken returns a signed token naming userID, and its expiry.
func (sm *SessionManager) IssueToken(userID primitive.ObjectID) (string, time.Time, error) {
	now := sm.now().UTC()
	exp := now.Add(sm.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// VerifyToken checks signature, issuer and expiry and returns the user id.
func (sm *SessionManager) VerifyToken(token string) (primitive.ObjectID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return sm.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Token expired"
		}
		return primitive.NilObjectID, apperr.Wrap(apperr.Unauthenticated, msg, err)
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.Unauthenticated, "Invalid token", err)
	}
	return id, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadIdentity resolves the bearer token into an identity and stores it in
// the request context. Requests without a usable token continue anonymously;
// routes that need an identity reject them through the guard. A failed user
// lookup ends the request with 500.
func (sm *SessionManager) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := sm.VerifyToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		id, err := sm.fetcher.FetchIdentity(r.Context(), userID)
		if err != nil {
			// A valid token whose user cannot be loaded is a server fault,
			// not an anonymous request.
			sm.logger.Error("identity lookup failed", zap.String("user_id", userID.Hex()), zap.Error(err))
			respond.Error(w, r, apperr.Wrap(apperr.Internal, "identity lookup failed", err))
			return
		}
		if id != nil {
			r = withIdentity(r, id)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects anonymous requests with 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return sm.RequireRole(authz.Anyone)(next)
}

// RequireRole guards a route with authz.Authorize: 401 without an identity,
// 403 when the identity's role is outside allowed.
func (sm *SessionManager) RequireRole(allowed authz.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := CurrentUser(r)
			if err := authz.Authorize(id, allowed); err != nil {
				respond.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the request identity & “found?” flag.
func CurrentUser(r *http.Request) (*authz.Identity, bool) {
	return authz.UserCtx(r)
}

// helpers

func withIdentity(r *http.Request, id *authz.Identity) *http.Request {
	return r.WithContext(authz.WithIdentity(r.Context(), id))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
