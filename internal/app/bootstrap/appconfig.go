// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (AUTOMATIONHUB_*), config
// files, or command-line flags, loaded in LoadConfig. Framework settings such
// as ports, TLS, log level and body limits live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string        // HS256 signing key (must be strong in production)
	JWTExpiry time.Duration // token lifetime

	// Site identity, used in email links and greetings
	SiteName    string
	FrontendURL string // e.g. "https://automationhub.example.com"
	AdminEmail  string // receives contact form notices; blank disables them

	// Email/SMTP configuration
	MailEnabled  bool // false logs mail instead of sending it
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Newsletter batching
	NewsletterBatchSize  int
	NewsletterBatchPause time.Duration

	// File storage configuration
	StorageType      string // "local", "s3" or "memory"
	StorageLocalPath string // directory for uploaded images
	StorageLocalURL  string // URL prefix the directory is served under

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // S3-compatible endpoint such as MinIO
	StorageS3URL       string // public base URL for stored objects
	StorageS3AccessKey string
	StorageS3SecretKey string

	// Rate limits for public routes, in requests per minute per client
	RateLimitPublic   int
	RateLimitAuth     int
	TrustProxyHeaders bool // client IP from X-Forwarded-For; off unless behind a proxy

	// I/O deadlines
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
	TimeoutMail   time.Duration
	TimeoutBatch  time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Optional admin account created at startup
	SeedAdminEmail    string
	SeedAdminPassword string
}
