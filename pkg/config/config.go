package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(&cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ADOPTIPET_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"ADOPTIPET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ADOPTIPET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL   string        `envconfig:"ADOPTIPET_API_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"ADOPTIPET_API_TIMEOUT" default:"15s"`
	UserAgent string        `envconfig:"ADOPTIPET_API_USER_AGENT" default:"adoptipet-client"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api base url must be http(s), got %q", a.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api base url is missing a host: %q", a.BaseURL)
	}
	return nil
}

// SessionConfig controls where the bearer token of the current session is
// persisted between runs.
type SessionConfig struct {
	Backend   string        `envconfig:"ADOPTIPET_SESSION_BACKEND" default:"file"`
	TokenPath string        `envconfig:"ADOPTIPET_SESSION_TOKEN_PATH" default:"~/.adoptipet/session.json"`
	TTL       time.Duration `envconfig:"ADOPTIPET_SESSION_TTL" default:"720h"`
}

const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

func (s SessionConfig) validate(redis *RedisConfig) error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case SessionBackendFile:
		if strings.TrimSpace(s.TokenPath) == "" {
			return fmt.Errorf("session token path is required for the file backend")
		}
	case SessionBackendRedis:
		if redis.URL == "" && redis.Address == "" {
			return fmt.Errorf("redis url or address is required for the redis session backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", s.Backend)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"ADOPTIPET_REDIS_URL"`
	Address      string        `envconfig:"ADOPTIPET_REDIS_ADDR"`
	Password     string        `envconfig:"ADOPTIPET_REDIS_PASSWORD"`
	DB           int           `envconfig:"ADOPTIPET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ADOPTIPET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ADOPTIPET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ADOPTIPET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ADOPTIPET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ADOPTIPET_REDIS_WRITE_TIMEOUT" default:"5s"`
}
