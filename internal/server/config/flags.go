package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bugsheriff/internal/flagx"
)

// parseFlags overlays command-line flags onto config. Only flags registered
// here are considered; foreign flags are dropped by flagx.FilterArgs.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP endpoint address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT signing key")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "upload directory for the local blob store")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (local or s3)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog or zap)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access token validity in minutes")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration/time.Minute), "refresh token validity in minutes")

	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-f", "-k", "-u", "-p", "-b", "-g", "-e", "-l", "-v", "-t", "-r"}))

	config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
}
