package config

import (
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that may set
// them. DATABASE_URL and JWT_SECRET_KEY keep the names used by existing
// deployments; every key also has a BUGSHERIFF_ prefixed form.
var envBindings = map[string][]string{
	"endpoint_addr_http":              {"BUGSHERIFF_ENDPOINT_ADDR_HTTP"},
	"database_dsn":                    {"BUGSHERIFF_DATABASE_DSN", "DATABASE_URL"},
	"secret_key":                      {"BUGSHERIFF_SECRET_KEY", "JWT_SECRET_KEY"},
	"access_token_validity_duration":  {"BUGSHERIFF_ACCESS_TOKEN_VALIDITY_DURATION"},
	"refresh_token_validity_duration": {"BUGSHERIFF_REFRESH_TOKEN_VALIDITY_DURATION"},
	"upload_dir":                      {"BUGSHERIFF_UPLOAD_DIR"},
	"max_upload_size":                 {"BUGSHERIFF_MAX_UPLOAD_SIZE"},
	"blob_backend":                    {"BUGSHERIFF_BLOB_BACKEND"},
	"s3_root_user":                    {"BUGSHERIFF_S3_ROOT_USER"},
	"s3_root_password":                {"BUGSHERIFF_S3_ROOT_PASSWORD"},
	"s3_bucket":                       {"BUGSHERIFF_S3_BUCKET"},
	"s3_region":                       {"BUGSHERIFF_S3_REGION"},
	"s3_base_endpoint":                {"BUGSHERIFF_S3_BASE_ENDPOINT"},
	"cors_allow_origins":              {"BUGSHERIFF_CORS_ALLOW_ORIGINS"},
	"log_backend":                     {"BUGSHERIFF_LOG_BACKEND"},
	"log_level":                       {"BUGSHERIFF_LOG_LEVEL"},
	"sweep_interval":                  {"BUGSHERIFF_SWEEP_INTERVAL"},
}

// parseEnv overlays values found in the environment. Durations use Go
// duration syntax and the origin list is space or comma separated.
func parseEnv(config *Config) {
	v := viper.New()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	stringFields := map[string]*string{
		"endpoint_addr_http": &config.EndpointAddrHTTP,
		"database_dsn":       &config.DatabaseDSN,
		"secret_key":         &config.SecretKey,
		"upload_dir":         &config.UploadDir,
		"blob_backend":       &config.BlobBackend,
		"s3_root_user":       &config.S3RootUser,
		"s3_root_password":   &config.S3RootPassword,
		"s3_bucket":          &config.S3Bucket,
		"s3_region":          &config.S3Region,
		"s3_base_endpoint":   &config.S3BaseEndpoint,
		"log_backend":        &config.LogBackend,
		"log_level":          &config.LogLevel,
	}
	for key, dst := range stringFields {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("access_token_validity_duration") {
		config.AccessTokenValidityDuration = v.GetDuration("access_token_validity_duration")
	}
	if v.IsSet("refresh_token_validity_duration") {
		config.RefreshTokenValidityDuration = v.GetDuration("refresh_token_validity_duration")
	}
	if v.IsSet("sweep_interval") {
		config.SweepInterval = v.GetDuration("sweep_interval")
	}
	if v.IsSet("max_upload_size") {
		config.MaxUploadSize = v.GetInt64("max_upload_size")
	}
	if v.IsSet("cors_allow_origins") {
		config.CORSAllowOrigins = splitList(v.GetString("cors_allow_origins"))
	}
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
