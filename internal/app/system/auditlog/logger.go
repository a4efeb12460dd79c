// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dalemusser/automationhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls login, registration and password events.
	Auth string
	// Admin controls role changes, content changes and newsletter sends.
	Admin string
}

// Logger writes audit events to the audit store and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// clientIP returns the request's remote host. With trust_proxy_headers set,
// chi's RealIP middleware has folded X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAdmin, audit.CategoryContent:
		return l.config.Admin
	}
	return All
}

// Log records an audit event according to the category's destination
// setting. A nil Logger is a no-op. Store failures are logged, never returned.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.setting(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, success bool, reason string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		Success:       success,
		FailureReason: reason,
		Details:       details,
	})
}

// --- Authentication Events ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginSuccess, &userID, true, "", map[string]string{"email": email})
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.auth(ctx, r, audit.EventLoginFailedUserNotFound, nil, false, "user not found",
		map[string]string{"attempted_email": attemptedEmail})
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedWrongPassword, &userID, false, "wrong password",
		map[string]string{"email": email})
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedUserDisabled, &userID, false, "user disabled",
		map[string]string{"email": email})
}

// LoginFailedRateLimit logs a login rejected by the rate limiter before
// credentials were checked.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request) {
	l.auth(ctx, r, audit.EventLoginFailedRateLimit, nil, false, "rate limited", nil)
}

func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, role string) {
	l.auth(ctx, r, audit.EventUserRegistered, &userID, true, "",
		map[string]string{"email": email, "role": role})
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.auth(ctx, r, audit.EventPasswordChanged, &userID, true, "", nil)
}

// --- Admin Events ---

// RoleChanged logs an admin changing another user's role.
func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, oldRole, newRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventRoleChanged,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	})
}

// UserSeeded logs the startup admin seed. There is no request.
func (l *Logger) UserSeeded(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserSeeded,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

func (l *Logger) NewsletterSent(ctx context.Context, r *http.Request, actorID primitive.ObjectID, subject string, sent, failed int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventNewsletterSent,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   failed == 0,
		Details: map[string]string{
			"subject": subject,
			"sent":    strconv.Itoa(sent),
			"failed":  strconv.Itoa(failed),
		},
	})
}

func (l *Logger) ContactReplied(ctx context.Context, r *http.Request, actorID, submissionID primitive.ObjectID, delivered bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventContactReplied,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   delivered,
		Details:   map[string]string{"submission_id": submissionID.Hex()},
	})
}

// --- Content Events ---

// ContentChanged logs an article or product create, update or delete.
// eventType is one of the audit.EventArticle* / audit.EventProduct* values.
func (l *Logger) ContentChanged(ctx context.Context, r *http.Request, eventType string, actorID, entityID primitive.ObjectID, label string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryContent,
		EventType: eventType,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details: map[string]string{
			"entity_id": entityID.Hex(),
			"label":     label,
		},
	})
}
