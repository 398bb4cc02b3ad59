// Package config loads process-wide settings from the environment (and an optional YAML file).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config is built once at startup and passed by value to the components that need it.
type Config struct {
	Env   string `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP  HTTP   `yaml:"http"`
	DB    DB     `yaml:"db"`
	Redis Redis  `yaml:"redis"`
	Auth  Auth   `yaml:"auth"`
	CORS  CORS   `yaml:"cors"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// DB selects the gorm dialect. "postgres" uses the Host/Port/User fields, "sqlite" uses SQLitePath.
type DB struct {
	Driver         string        `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	Host           string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port           string        `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string        `yaml:"user" env:"DB_USER"`
	Password       string        `yaml:"password" env:"DB_PASSWORD"`
	Name           string        `yaml:"name" env:"DB_NAME"`
	SSLMode        string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	SQLitePath     string        `yaml:"sqlite_path" env:"DB_SQLITE_PATH" env-default:"./tasks.db"`
	RunMigrations  bool          `yaml:"run_migrations" env:"RUN_MIGRATIONS" env-default:"true"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"60s"`
}

// Redis is optional. An empty Host disables it.
type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Auth struct {
	JWTSecret        string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	SecretStoreKey   string        `yaml:"secret_store_key" env:"JWT_SECRET_STORE_KEY" env-default:"task_backend:jwt_secret"`
	TokenTTL         time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"24h"`
	BcryptCost       int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	LoginMaxAttempts int           `yaml:"login_max_attempts" env:"LOGIN_MAX_ATTEMPTS" env-default:"10"`
	LoginWindow      time.Duration `yaml:"login_window" env:"LOGIN_WINDOW" env-default:"15m"`

	// AllowRandomSecret opts in to a per-process random secret when no secret is configured.
	// Only accepted with APP_ENV=local.
	AllowRandomSecret bool `yaml:"allow_random_secret" env:"JWT_ALLOW_RANDOM_SECRET" env-default:"false"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:","`
}

// RedisEnabled reports whether a Redis host was configured.
func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// Load reads the YAML file at CONFIG_PATH when set, otherwise the environment only.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load that panics on error. Intended for main.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
	}
	if c.Auth.AllowRandomSecret && c.Env != EnvLocal {
		return fmt.Errorf("JWT_ALLOW_RANDOM_SECRET is only allowed with APP_ENV=%s", EnvLocal)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}
	if c.Auth.LoginMaxAttempts <= 0 || c.Auth.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	return nil
}
