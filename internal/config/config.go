package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

// Job sources
const (
	JobsSourcePostgres = "postgres"
	JobsSourceBackend  = "backend"
)

// Config holds all application configuration
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	Jobs     Jobs     `yaml:"jobs"`
	Backend  Backend  `yaml:"backend"`
	Capacity Capacity `yaml:"capacity"`
	Refresh  Refresh  `yaml:"refresh"`
	S3       S3       `yaml:"s3"`
}

// S3 holds S3/MinIO storage configuration for statistics exports
type S3 struct {
	Enabled         bool   `yaml:"enabled" env:"S3_ENABLED" env-default:"false"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"snapshots"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/snapshots"`
}

// Server holds HTTP server configuration
type Server struct {
	Host           string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"30s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	// Connection pool settings
	MaxConns     int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns     int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`
}

// Log holds logger configuration
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel maps the configured level name to a slog level. Unknown names fall back to info.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Jobs selects where production jobs are read from
type Jobs struct {
	Source string `yaml:"source" env:"JOBS_SOURCE" env-default:"postgres"`
}

// Backend holds the MaxSupply backend REST API configuration
type Backend struct {
	BaseURL string        `yaml:"base_url" env:"BACKEND_BASE_URL" env-default:"http://localhost:3000"`
	Token   string        `yaml:"token" env:"BACKEND_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"15s"`
}

// Capacity holds the daily work capacity per production type
type Capacity struct {
	Screen      int `yaml:"screen" env:"CAPACITY_SCREEN" env-default:"3000"`
	DTF         int `yaml:"dtf" env:"CAPACITY_DTF" env-default:"2500"`
	Sublimation int `yaml:"sublimation" env:"CAPACITY_SUBLIMATION" env-default:"500"`
	Embroidery  int `yaml:"embroidery" env:"CAPACITY_EMBROIDERY" env-default:"400"`
}

// Daily returns the capacity table used by the aggregator
func (c Capacity) Daily() entity.DailyCapacity {
	return entity.DailyCapacity{
		entity.ProductionTypeScreen:      c.Screen,
		entity.ProductionTypeDTF:         c.DTF,
		entity.ProductionTypeSublimation: c.Sublimation,
		entity.ProductionTypeEmbroidery:  c.Embroidery,
	}
}

// Refresh holds background statistics refresh configuration
type Refresh struct {
	Enabled  bool          `yaml:"enabled" env:"REFRESH_ENABLED" env-default:"true"`
	Debounce time.Duration `yaml:"debounce" env:"REFRESH_DEBOUNCE" env-default:"1s"`
	Interval time.Duration `yaml:"interval" env:"REFRESH_INTERVAL" env-default:"0s"`
}

// Validate checks values cleanenv cannot check by itself
func (c Config) Validate() error {
	switch c.Jobs.Source {
	case JobsSourcePostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required when JOBS_SOURCE is %q", JobsSourcePostgres)
		}
	case JobsSourceBackend:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("BACKEND_BASE_URL is required when JOBS_SOURCE is %q", JobsSourceBackend)
		}
	default:
		return fmt.Errorf("unknown JOBS_SOURCE %q", c.Jobs.Source)
	}

	if err := c.Capacity.Daily().Validate(); err != nil {
		return err
	}
	return nil
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
