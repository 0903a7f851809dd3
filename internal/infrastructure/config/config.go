package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Transport   TransportConfig   `koanf:"transport"`
	Suppression SuppressionConfig `koanf:"suppression"`
	Digest      DigestConfig      `koanf:"digest"`
	Providers   ProvidersConfig   `koanf:"providers"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// TransportConfig names the queues the suppression engine communicates over
// and tunes the Redis Streams consumer.
type TransportConfig struct {
	DecisionQueue   string        `koanf:"decision_queue" validate:"required"`
	ForwardQueue    string        `koanf:"forward_queue" validate:"required"`
	SuppressedQueue string        `koanf:"suppressed_queue"`
	ConsumerGroup   string        `koanf:"consumer_group" validate:"required"`
	ConsumerName    string        `koanf:"consumer_name"`
	BlockTimeout    time.Duration `koanf:"block_timeout"`
	MaxDeliveries   int           `koanf:"max_deliveries" validate:"min=1"`
}

type SuppressionConfig struct {
	// Store selects where windows live: "postgres" or "redis".
	Store         string        `koanf:"store" validate:"oneof=postgres redis"`
	DefaultWindow time.Duration `koanf:"default_window" validate:"min=1m"`
	PauseDuration time.Duration `koanf:"pause_duration" validate:"min=1m"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

type DigestConfig struct {
	FlushInterval time.Duration `koanf:"flush_interval" validate:"min=1s"`
	Head          int           `koanf:"head" validate:"min=1"`
	Tail          int           `koanf:"tail" validate:"min=0"`
	MaxItems      int           `koanf:"max_items" validate:"min=2"`
}

// ProvidersConfig carries outbound delivery credentials and the per-provider
// rate caps applied ahead of each call.
type ProvidersConfig struct {
	SMS   SMSProviderConfig   `koanf:"sms"`
	Email EmailProviderConfig `koanf:"email"`
	Call  CallProviderConfig  `koanf:"call"`
}

type SMSProviderConfig struct {
	APIKey            string  `koanf:"api_key"`
	FromNumber        string  `koanf:"from_number"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

type EmailProviderConfig struct {
	APIKey            string  `koanf:"api_key"`
	FromAddress       string  `koanf:"from_address"`
	FromName          string  `koanf:"from_name"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

type CallProviderConfig struct {
	APIKey            string  `koanf:"api_key"`
	FromNumber        string  `koanf:"from_number"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// Load reads configuration in precedence order: built-in defaults, then
// configs/config.yaml when present, then DNB_-prefixed environment variables.
func Load() (*Config, error) {
	return LoadFrom("configs/config.yaml")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// DNB_DATABASE_URL becomes database.url, and so on.
	if err := k.Load(env.Provider("DNB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "DNB_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL:             "postgres://localhost:5432/notify?sslmode=disable",
			MaxOpenConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL: "localhost:6379",
		},
		Transport: TransportConfig{
			DecisionQueue:   "notify.suppression.decide",
			ForwardQueue:    "notify.suppression.allowed",
			SuppressedQueue: "notify.suppression.suppressed",
			ConsumerGroup:   "notify-engine",
			BlockTimeout:    5 * time.Second,
			MaxDeliveries:   5,
		},
		Suppression: SuppressionConfig{
			Store:         "postgres",
			DefaultWindow: time.Hour,
			PauseDuration: 15 * time.Minute,
			PurgeInterval: time.Hour,
		},
		Digest: DigestConfig{
			FlushInterval: 15 * time.Second,
			Head:          3,
			Tail:          2,
			MaxItems:      20,
		},
	}
}

// IsDevelopment reports whether the environment is a development one.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}
