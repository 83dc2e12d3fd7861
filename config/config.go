package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Booking    BookingConfig    `yaml:"booking"`
	Payment    PaymentConfig    `yaml:"payment"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Batch      BatchConfig      `yaml:"batch"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the response cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                    string `yaml:"driver"` // postgres or sqlite
	DSN                       string `yaml:"dsn"`
	MaxOpenConns              int    `yaml:"max_open_conns"`
	MaxIdleConns              int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes    int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel                  string `yaml:"log_level"`
	EnableExclusionConstraint bool   `yaml:"enable_exclusion_constraint"`
}

// BookingConfig holds the reservation rules.
type BookingConfig struct {
	ExpiryMinutes         int     `yaml:"expiry_minutes"`
	TaxRate               float64 `yaml:"tax_rate"`
	CalendarHorizonMonths int     `yaml:"calendar_horizon_months"`
	UnavailableMonths     int     `yaml:"unavailable_months"`
}

// ExpiryWindow is how long a pay_now booking holds its room unpaid.
func (b BookingConfig) ExpiryWindow() time.Duration {
	return time.Duration(b.ExpiryMinutes) * time.Minute
}

// PaymentConfig holds the payment gateway settings.
type PaymentConfig struct {
	BaseURL        string  `yaml:"base_url"`
	SecretKey      string  `yaml:"secret_key"`
	WebhookSecret  string  `yaml:"webhook_secret"` // empty disables signature checks
	Currency       string  `yaml:"currency"`
	CallbackURL    string  `yaml:"callback_url"`
	ReturnURL      string  `yaml:"return_url"` // {booking_number} is substituted
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

// SweeperConfig controls the periodic expiry of unpaid bookings.
type SweeperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the event dispatcher.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// BatchConfig is used by the one-shot expiry command.
type BatchConfig struct {
	EnableTracing  bool `yaml:"enable_tracing"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

// Load reads the configuration from the given path. A .env file next to the
// working directory is loaded first; secrets in the environment win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not read .env file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"DATABASE_DSN":         &cfg.Database.DSN,
		"CHAPA_SECRET_KEY":     &cfg.Payment.SecretKey,
		"CHAPA_WEBHOOK_SECRET": &cfg.Payment.WebhookSecret,
		"CHAPA_BASE_URL":       &cfg.Payment.BaseURL,
		"VAPID_PUBLIC_KEY":     &cfg.Push.PublicKey,
		"VAPID_PRIVATE_KEY":    &cfg.Push.PrivateKey,
	}
	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Booking.ExpiryMinutes <= 0 {
		cfg.Booking.ExpiryMinutes = 15
	}
	if cfg.Booking.TaxRate <= 0 {
		cfg.Booking.TaxRate = 0.15
	}
	if cfg.Booking.CalendarHorizonMonths <= 0 {
		cfg.Booking.CalendarHorizonMonths = 12
	}
	if cfg.Booking.UnavailableMonths <= 0 {
		cfg.Booking.UnavailableMonths = 3
	}

	if cfg.Payment.BaseURL == "" {
		cfg.Payment.BaseURL = "https://api.chapa.co/v1"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "ETB"
	}
	if cfg.Payment.TimeoutSeconds <= 0 {
		cfg.Payment.TimeoutSeconds = 30
	}
	if cfg.Payment.RequestsPerSec <= 0 {
		cfg.Payment.RequestsPerSec = 5
	}

	if cfg.Sweeper.Schedule == "" {
		cfg.Sweeper.Schedule = "*/5 * * * *"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Batch.TimeoutSeconds <= 0 {
		cfg.Batch.TimeoutSeconds = 300
	}
}
