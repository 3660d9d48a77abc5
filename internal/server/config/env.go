package config

import "os"

// parseEnv overlays values from environment variables. Only the settings
// that usually come from the deployment environment (DSN, signing secrets,
// object-storage credentials) are read here; everything else stays on the
// JSON/flag path.
func parseEnv(config *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	set(&config.EndpointAddrHTTP, "HTTP_ADDR")
	set(&config.DatabaseDSN, "DATABASE_DSN")
	set(&config.AccessTokenSecret, "JWT_ACCESS_SECRET")
	set(&config.RefreshTokenSecret, "JWT_REFRESH_SECRET")
	set(&config.S3RootUser, "S3_ROOT_USER")
	set(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	set(&config.S3Bucket, "S3_BUCKET")
	set(&config.S3Region, "S3_REGION")
	set(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}
