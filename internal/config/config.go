package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Backends de almacenamiento soportados.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/diary.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	SessionSecret         string `env:"SESSION_SECRET"`
	SessionTTLHours       int    `env:"SESSION_TTL_HOURS" envDefault:"720"`
	RequirePIN            bool   `env:"AUTH_REQUIRE_PIN" envDefault:"true"`
	AuthAttemptsPerMinute int    `env:"AUTH_ATTEMPTS_PER_MINUTE" envDefault:"0"`

	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"fr"`
	LocaleDir       string `env:"LOCALE_DIR"`

	LLMAPIKey         string `env:"LLM_API_KEY"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`
	SpeechModel       string `env:"SPEECH_MODEL" envDefault:"whisper-1"`

	RandomSeed int64 `env:"RANDOM_SEED" envDefault:"0"`
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for sqlite storage", ErrInvalidConfig)
		}
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for postgres storage", ErrInvalidConfig)
		}
	case StorageRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: REDIS_ADDR is required for redis storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrInvalidConfig, c.StorageBackend)
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("%w: SESSION_TTL_HOURS must be positive", ErrInvalidConfig)
	}
	if c.AuthAttemptsPerMinute < 0 {
		return fmt.Errorf("%w: AUTH_ATTEMPTS_PER_MINUTE must not be negative", ErrInvalidConfig)
	}
	c.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.DefaultLanguage))
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "fr"
	}
	return nil
}

// RemoteEnabled indica si hay credenciales para el resolvedor remoto.
func (c *Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}
