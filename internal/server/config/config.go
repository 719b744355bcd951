// Package config handles configuration for the server component: defaults,
// an optional JSON file, environment variables and command-line flags, applied
// in that order.
package config

import "time"

// Blob storage backends.
const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

// Config holds runtime settings for the BugSheriff server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx).
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - UploadDir: directory of the local blob store.
//   - MaxUploadSize: request body limit for report uploads, in bytes.
//   - BlobBackend: "local" or "s3".
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - CORSAllowOrigins: origins allowed by the CORS middleware; "*" allows any.
//   - LogBackend / LogLevel: "slog" or "zap", and the minimum level.
//   - SweepInterval: how often orphaned blobs are retried.
type Config struct {
	EndpointAddrHTTP             string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	UploadDir                    string
	MaxUploadSize                int64
	BlobBackend                  string
	S3RootUser                   string
	S3RootPassword               string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
	CORSAllowOrigins             []string
	LogBackend                   string
	LogLevel                     string
	SweepInterval                time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key and S3 credentials must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5000"
	c.DatabaseDSN = "postgres://admin:123456@db:5432/bugsheriff?sslmode=disable"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 24 * time.Hour
	c.UploadDir = "uploads"
	c.MaxUploadSize = 16 << 20
	c.BlobBackend = BlobBackendLocal
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "reports"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.CORSAllowOrigins = []string{"*"}
	c.LogBackend = "slog"
	c.LogLevel = "info"
	c.SweepInterval = 5 * time.Minute
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment, and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := loadDotEnv(dotEnvFile); err != nil {
		panic(err)
	}
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
