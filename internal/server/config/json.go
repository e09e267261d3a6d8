package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/flagx"
	"github.com/dmitrijs2005/lockbox/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "10m" and integer nanoseconds.
// Zero values are treated as "not set", so a partial file only overrides
// what it names. The bool fields are pointers for the same reason.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	PresignValidityDuration      timex.Duration `json:"presign_validity_duration"`
	OTPValidityDuration          timex.Duration `json:"otp_validity_duration"`
	OTPRetention                 timex.Duration `json:"otp_retention"`
	OTPInvalidatePrevious        *bool          `json:"otp_invalidate_previous"`
	MaxUploadSize                int64          `json:"max_upload_size"`
	SMTPAddr                     string         `json:"smtp_addr"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	SMTPFrom                     string         `json:"smtp_from"`
	JanitorInterval              timex.Duration `json:"janitor_interval"`
	OrphanGracePeriod            timex.Duration `json:"orphan_grace_period"`
	RateLimitRPS                 float64        `json:"rate_limit_rps"`
	RateLimitBurst               int            `json:"rate_limit_burst"`
	VerifyAttemptsPerEmail       int            `json:"verify_attempts_per_email"`
	TrustProxyHeaders            *bool          `json:"trust_proxy_headers"`
	DevLogCodes                  *bool          `json:"dev_log_codes"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, nothing is loaded. Unreadable files or invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	setStr(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.SecretKey, c.SecretKey)
	setDur(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDur(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setStr(&config.S3RootUser, c.S3RootUser)
	setStr(&config.S3RootPassword, c.S3RootPassword)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDur(&config.PresignValidityDuration, c.PresignValidityDuration)
	setDur(&config.OTPValidityDuration, c.OTPValidityDuration)
	setDur(&config.OTPRetention, c.OTPRetention)
	if c.OTPInvalidatePrevious != nil {
		config.OTPInvalidatePrevious = *c.OTPInvalidatePrevious
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setStr(&config.SMTPAddr, c.SMTPAddr)
	setStr(&config.SMTPUser, c.SMTPUser)
	setStr(&config.SMTPPassword, c.SMTPPassword)
	setStr(&config.SMTPFrom, c.SMTPFrom)
	setDur(&config.JanitorInterval, c.JanitorInterval)
	setDur(&config.OrphanGracePeriod, c.OrphanGracePeriod)
	if c.RateLimitRPS > 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	if c.VerifyAttemptsPerEmail > 0 {
		config.VerifyAttemptsPerEmail = c.VerifyAttemptsPerEmail
	}
	if c.TrustProxyHeaders != nil {
		config.TrustProxyHeaders = *c.TrustProxyHeaders
	}
	if c.DevLogCodes != nil {
		config.DevLogCodes = *c.DevLogCodes
	}
}
