package config

// Environment variable names shared with tests and tooling.
const (
	EnvPrefix = "adoptipet"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "ADOPTIPET_APP_ENV"
	EnvLogLevel       = "ADOPTIPET_LOG_LEVEL"
	EnvAPIBaseURL     = "ADOPTIPET_API_BASE_URL"
	EnvAPITimeout     = "ADOPTIPET_API_TIMEOUT"
	EnvSessionBackend = "ADOPTIPET_SESSION_BACKEND"
	EnvSessionToken   = "ADOPTIPET_SESSION_TOKEN_PATH"
	EnvRedisURL       = "ADOPTIPET_REDIS_URL"
)
