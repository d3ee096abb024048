package jobs

import (
	"os"
	"strconv"
)

// EnvConfig reads service options from the environment. The binary loads a
// .env file first, so local development overrides live next to the code.
type EnvConfig struct{}

var _ Config = EnvConfig{}

func NewEnvConfig() EnvConfig {
	return EnvConfig{}
}

func (EnvConfig) GetSigningKey() string {
	return envString("JOBS_SIGNING_KEY", "")
}

func (EnvConfig) GetIssuer() string {
	return envString("JOBS_ISSUER", "go-jobs")
}

func (EnvConfig) GetTokenExpiration() int {
	return envInt("JOBS_TOKEN_EXPIRATION_HOURS", DefaultTokenExpirationHours)
}

func (EnvConfig) GetStoredTokenExpiration() int {
	return envInt("JOBS_STORED_TOKEN_EXPIRATION_HOURS", DefaultStoredTokenExpirationHours)
}

func (EnvConfig) GetRefreshFloor() int {
	return envInt("JOBS_REFRESH_FLOOR_HOURS", DefaultRefreshFloorHours)
}

func (EnvConfig) GetRememberMultiplier() int {
	return envInt("JOBS_REMEMBER_MULTIPLIER", DefaultRememberMultiplier)
}

func (EnvConfig) GetBaseURL() string {
	return envString("JOBS_BASE_URL", "http://localhost:3000")
}

func (EnvConfig) GetAdminEmail() string {
	return envString("JOBS_ADMIN_EMAIL", "")
}

func (EnvConfig) GetHTTPAddr() string {
	return envString("JOBS_HTTP_ADDR", ":3000")
}

func (EnvConfig) GetDSN() string {
	return envString("JOBS_DSN", "file::memory:?cache=shared")
}

func (EnvConfig) GetCORSAllowedOrigins() string {
	return envString("JOBS_CORS_ALLOWED_ORIGINS", "*")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
