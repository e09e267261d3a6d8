package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is the dotenv file read before the process environment is consulted.
var envFile = ".env"

// parseEnv overlays LOCKBOX_* environment variables onto config. Values from
// envFile are loaded first but never override variables already set in the
// process environment. A missing envFile is not an error; a malformed value
// panics, like the JSON and flag loaders.
func parseEnv(config *Config) {
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("LOCKBOX_HTTP_ADDR", &config.EndpointAddrHTTP)
	str("LOCKBOX_DATABASE_DSN", &config.DatabaseDSN)
	str("LOCKBOX_SECRET_KEY", &config.SecretKey)
	dur("LOCKBOX_ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	dur("LOCKBOX_REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	str("LOCKBOX_S3_ROOT_USER", &config.S3RootUser)
	str("LOCKBOX_S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("LOCKBOX_S3_BUCKET", &config.S3Bucket)
	str("LOCKBOX_S3_REGION", &config.S3Region)
	str("LOCKBOX_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	dur("LOCKBOX_PRESIGN_TTL", &config.PresignValidityDuration)
	dur("LOCKBOX_OTP_TTL", &config.OTPValidityDuration)
	dur("LOCKBOX_OTP_RETENTION", &config.OTPRetention)
	str("LOCKBOX_SMTP_ADDR", &config.SMTPAddr)
	str("LOCKBOX_SMTP_USER", &config.SMTPUser)
	str("LOCKBOX_SMTP_PASSWORD", &config.SMTPPassword)
	str("LOCKBOX_SMTP_FROM", &config.SMTPFrom)
	dur("LOCKBOX_JANITOR_INTERVAL", &config.JanitorInterval)
	dur("LOCKBOX_ORPHAN_GRACE", &config.OrphanGracePeriod)

	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				panic(err)
			}
			*dst = b
		}
	}

	boolean("LOCKBOX_OTP_INVALIDATE_PREVIOUS", &config.OTPInvalidatePrevious)
	boolean("LOCKBOX_TRUST_PROXY_HEADERS", &config.TrustProxyHeaders)
	boolean("LOCKBOX_DEV_LOG_CODES", &config.DevLogCodes)

	if v, ok := os.LookupEnv("LOCKBOX_VERIFY_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.VerifyAttemptsPerEmail = n
	}
	if v, ok := os.LookupEnv("LOCKBOX_MAX_UPLOAD_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxUploadSize = n
	}
}
