// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Storage backends accepted by storage_type.
const (
	StorageLocal  = "local"
	StorageS3     = "s3"
	StorageMemory = "memory"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for AutomationHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: AUTOMATIONHUB_MONGO_URI, AUTOMATIONHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "automation_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer tokens
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "Token signing key (must be strong in production)"},
	{Name: "jwt_expiry", Default: "24h", Desc: "Token lifetime (e.g., 24h, 30m)"},

	// Site identity
	{Name: "site_name", Default: "AutomationHub", Desc: "Site name used in email"},
	{Name: "frontend_url", Default: "http://localhost:3000", Desc: "Base URL for links in email"},
	{Name: "admin_email", Default: "", Desc: "Address that receives contact form notices (blank disables)"},

	// Email/SMTP configuration
	{Name: "mail_enabled", Default: true, Desc: "Send email; when false, messages are only logged"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@automationhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "AutomationHub", Desc: "From display name"},

	// Newsletter batching
	{Name: "newsletter_batch_size", Default: mailer.DefaultBatchSize, Desc: "Newsletter messages sent concurrently per batch"},
	{Name: "newsletter_batch_pause", Default: "1s", Desc: "Pause between newsletter batches"},

	// File storage configuration
	{Name: "storage_type", Default: StorageLocal, Desc: "Storage backend: 'local', 's3' or 'memory'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded images"},
	{Name: "storage_local_url", Default: "/uploads", Desc: "URL prefix for serving local files"},

	// S3 configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint (e.g., MinIO); blank for AWS"},
	{Name: "storage_s3_url", Default: "", Desc: "Public base URL for stored objects (bucket website or CDN)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key (blank uses the default AWS credential chain)"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret key"},

	// Rate limiting
	{Name: "rate_limit_public", Default: 10, Desc: "Requests per minute per client for contact and newsletter forms"},
	{Name: "rate_limit_auth", Default: 20, Desc: "Requests per minute per client for login and registration"},
	{Name: "trust_proxy_headers", Default: false, Desc: "Take the client IP from X-Forwarded-For/X-Real-IP; enable only behind a proxy that sets them"},

	// Timeouts
	{Name: "timeout_ping", Default: timeouts.DefaultPing.String(), Desc: "Health check timeout"},
	{Name: "timeout_short", Default: timeouts.DefaultShort.String(), Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: timeouts.DefaultMedium.String(), Desc: "List query timeout"},
	{Name: "timeout_long", Default: timeouts.DefaultLong.String(), Desc: "Upload and multi-step write timeout"},
	{Name: "timeout_mail", Default: timeouts.DefaultMail.String(), Desc: "Per-message mail timeout"},
	{Name: "timeout_batch", Default: timeouts.DefaultBatch.String(), Desc: "Whole newsletter send timeout"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.All, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: auditlog.All, Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "seed_admin_email", Default: "", Desc: "Email of an admin account created on startup if missing"},
	{Name: "seed_admin_password", Default: "", Desc: "Password for the seeded admin account"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// environment variables (WAFFLE_* for core, AUTOMATIONHUB_* for app) and
// command-line flags, with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "AUTOMATIONHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTExpiry: appValues.Duration("jwt_expiry", 24*time.Hour),

		SiteName:    appValues.String("site_name"),
		FrontendURL: strings.TrimRight(appValues.String("frontend_url"), "/"),
		AdminEmail:  appValues.String("admin_email"),

		// Email/SMTP
		MailEnabled:  appValues.Bool("mail_enabled"),
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		NewsletterBatchSize:  appValues.Int("newsletter_batch_size"),
		NewsletterBatchPause: appValues.Duration("newsletter_batch_pause", mailer.DefaultBatchPause),

		// File storage
		StorageType:      strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3URL:       appValues.String("storage_s3_url"),
		StorageS3AccessKey: appValues.String("storage_s3_access_key"),
		StorageS3SecretKey: appValues.String("storage_s3_secret_key"),

		RateLimitPublic:   appValues.Int("rate_limit_public"),
		RateLimitAuth:     appValues.Int("rate_limit_auth"),
		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),
		TimeoutMail:   appValues.Duration("timeout_mail", timeouts.DefaultMail),
		TimeoutBatch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminPassword: appValues.String("seed_admin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// MongoDB URI format is checked here to catch configuration errors before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(coreCfg.Env, appCfg)
}

// validateAppConfig holds the checks that need no logger or network.
func validateAppConfig(env string, appCfg AppConfig) error {
	if env == "prod" && (appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < 32) {
		return fmt.Errorf("jwt_secret must be set to at least 32 random characters in production")
	}
	if appCfg.JWTExpiry <= 0 {
		return fmt.Errorf("jwt_expiry must be positive, got %s", appCfg.JWTExpiry)
	}

	switch appCfg.StorageType {
	case StorageLocal:
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type 'local' requires storage_local_path")
		}
	case StorageS3:
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type 's3' requires storage_s3_bucket")
		}
	case StorageMemory:
		if env == "prod" {
			return fmt.Errorf("storage_type 'memory' is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want local, s3 or memory)", appCfg.StorageType)
	}

	if appCfg.NewsletterBatchSize <= 0 {
		return fmt.Errorf("newsletter_batch_size must be positive, got %d", appCfg.NewsletterBatchSize)
	}
	if appCfg.NewsletterBatchPause < 0 {
		return fmt.Errorf("newsletter_batch_pause must not be negative, got %s", appCfg.NewsletterBatchPause)
	}
	if appCfg.RateLimitPublic < 0 || appCfg.RateLimitAuth < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	for name, v := range map[string]string{
		"audit_log_auth":  appCfg.AuditLogAuth,
		"audit_log_admin": appCfg.AuditLogAdmin,
	} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, v)
		}
	}

	if (appCfg.SeedAdminEmail == "") != (appCfg.SeedAdminPassword == "") {
		return fmt.Errorf("seed_admin_email and seed_admin_password must be set together")
	}
	if appCfg.SeedAdminPassword != "" && len(appCfg.SeedAdminPassword) < 6 {
		return fmt.Errorf("seed_admin_password must be at least 6 characters")
	}
	return nil
}
