// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/automationhub/internal/app/store/audit"
	userstore "github.com/dalemusser/automationhub/internal/app/store/users"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/auth"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"github.com/dalemusser/automationhub/internal/app/system/metrics"
	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// services are the collaborators built once at startup and shared by every
// handler. Shutdown drains them.
type services struct {
	sessions   *auth.SessionManager
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	assets     assets.Store
	uploader   *assets.Uploader
	dispatcher *mailer.Dispatcher
	batch      *mailer.BatchSender
	site       mailer.Site
	auditLog   *auditlog.Logger

	publicLimiter *ratelimit.Limiter // contact and newsletter forms
	authLimiter   *ratelimit.Limiter // login and registration
}

// svc is set by Startup and read by BuildHandler and Shutdown, which WAFFLE
// calls in that order on one goroutine.
var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies the configured timeouts, builds the shared collaborators (mail,
// storage, metrics, rate limiters, sessions) and seeds the admin account
// when seed_admin_email is set.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
		Mail:   appCfg.TimeoutMail,
		Batch:  appCfg.TimeoutBatch,
	})
	cur := timeouts.Current()
	logger.Info("timeouts configured",
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long),
		zap.Duration("batch", cur.Batch))

	s, err := newServices(ctx, appCfg, deps, logger)
	if err != nil {
		return err
	}

	if appCfg.SeedAdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		users := userstore.New(deps.MongoDatabase)
		if err := ensureSeedAdmin(seedCtx, users, s.auditLog, appCfg.SeedAdminEmail, appCfg.SeedAdminPassword, logger); err != nil {
			s.stop()
			return err
		}
	}

	svc = s
	return nil
}

func newServices(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	sessions, err := auth.NewSessionManager(appCfg.JWTSecret, appCfg.JWTExpiry, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// LoadIdentity fetches fresh user data on each request, so role changes
	// and disabled accounts take effect immediately.
	sessions.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	store, err := newAssetStore(ctx, appCfg)
	if err != nil {
		logger.Error("asset storage init failed", zap.String("storage_type", appCfg.StorageType), zap.Error(err))
		return nil, err
	}
	logger.Info("asset storage ready", zap.String("backend", store.Backend()))

	var sender mailer.Sender
	if appCfg.MailEnabled {
		sender = mailer.NewSMTPSender(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		})
	} else {
		logger.Warn("mail disabled; outbound email will only be logged")
		sender = mailer.LogSender{Log: logger}
	}
	dispatcher := mailer.NewDispatcher(sender, logger, collector, timeouts.Mail())

	s := &services{
		sessions:   sessions,
		registry:   reg,
		metrics:    collector,
		assets:     store,
		uploader:   assets.NewUploader(store, collector, logger),
		dispatcher: dispatcher,
		batch: &mailer.BatchSender{
			Dispatcher: dispatcher,
			Size:       appCfg.NewsletterBatchSize,
			Pause:      appCfg.NewsletterBatchPause,
		},
		site: mailer.Site{Name: appCfg.SiteName, BaseURL: appCfg.FrontendURL},
		auditLog: auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
			Auth:  appCfg.AuditLogAuth,
			Admin: appCfg.AuditLogAdmin,
		}),
	}
	if appCfg.RateLimitPublic > 0 {
		s.publicLimiter = ratelimit.New(ratelimit.PerMinute(appCfg.RateLimitPublic))
	}
	if appCfg.RateLimitAuth > 0 {
		s.authLimiter = ratelimit.New(ratelimit.PerMinute(appCfg.RateLimitAuth))
	}
	return s, nil
}

func newAssetStore(ctx context.Context, appCfg AppConfig) (assets.Store, error) {
	switch appCfg.StorageType {
	case StorageLocal:
		return assets.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	case StorageS3:
		return assets.NewS3(ctx, assets.S3Config{
			Region:          appCfg.StorageS3Region,
			Bucket:          appCfg.StorageS3Bucket,
			Prefix:          appCfg.StorageS3Prefix,
			Endpoint:        appCfg.StorageS3Endpoint,
			UsePathStyle:    appCfg.StorageS3Endpoint != "",
			AccessKeyID:     appCfg.StorageS3AccessKey,
			SecretAccessKey: appCfg.StorageS3SecretKey,
			PublicURL:       appCfg.StorageS3URL,
		})
	case StorageMemory:
		return assets.NewMemory(appCfg.StorageLocalURL), nil
	}
	return nil, fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
}

// stop releases the background work owned by s. Pending mail is drained
// first so nothing queued during shutdown is lost.
func (s *services) stop() {
	s.dispatcher.Wait()
	if s.publicLimiter != nil {
		s.publicLimiter.Stop()
	}
	if s.authLimiter != nil {
		s.authLimiter.Stop()
	}
}

// ensureSeedAdmin makes sure an admin account exists for email.
//   - If no user has the email, one is created with password and the admin role.
//   - If the user exists with another role, it is promoted to admin. Its
//     password is left alone.
//   - If the user is already an admin, nothing changes.
func ensureSeedAdmin(ctx context.Context, users *userstore.Store, auditLog *auditlog.Logger, email, password string, logger *zap.Logger) error {
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == string(authz.RoleAdmin) {
			logger.Info("seed admin already present", zap.String("email", existing.Email))
			return nil
		}
		if _, err := users.SetRole(ctx, existing.ID, authz.RoleAdmin); err != nil {
			return fmt.Errorf("promote seed admin: %w", err)
		}
		logger.Info("promoted existing user to admin",
			zap.String("email", existing.Email),
			zap.String("old_role", existing.Role))
		return nil
	case !errors.Is(err, userstore.ErrNotFound):
		return fmt.Errorf("look up seed admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash seed admin password: %w", err)
	}
	created, err := users.Create(ctx, models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		Role:         string(authz.RoleAdmin),
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Another instance seeded it first.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create seed admin: %w", err)
	}

	auditLog.UserSeeded(ctx, created.ID, created.Email)
	logger.Info("seeded admin account", zap.String("email", created.Email))
	return nil
}
