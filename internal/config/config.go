package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DenominationClass pairs a voucher face value with its validity window.
type DenominationClass struct {
	Amount       float64 `yaml:"amount"`        // Voucher face value.
	ValidityDays int     `yaml:"validity-days"` // Validity period in days.
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string `yaml:"addr"`          // Listen address.
	ReadTimeout  int    `yaml:"read-timeout"`  // Read timeout in seconds.
	WriteTimeout int    `yaml:"write-timeout"` // Write timeout in seconds.
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // PostgreSQL or SQLite DSN.
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`       // HS256 signing secret.
	ExpiryHours int    `yaml:"expiry-hours"` // Token lifetime in hours.
}

// Expiry returns the token lifetime as a duration.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// PaystackConfig holds payment gateway settings.
type PaystackConfig struct {
	SecretKey      string `yaml:"secret-key"`      // Shared secret for API calls and webhook signatures.
	BaseURL        string `yaml:"base-url"`        // Transaction API base URL.
	TimeoutSeconds int    `yaml:"timeout-seconds"` // Outbound call timeout.
}

// Timeout returns the outbound gateway call timeout.
func (c PaystackConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// VoucherConfig holds denomination settings.
type VoucherConfig struct {
	Denominations []float64                    `yaml:"denominations"` // Allowed purchase amounts.
	Classes       map[string]DenominationClass `yaml:"classes"`       // Upload classes keyed by label.
}

// AllowsAmount reports whether amount is an allowed denomination.
func (c VoucherConfig) AllowsAmount(amount float64) bool {
	for _, d := range c.Denominations {
		if d == amount {
			return true
		}
	}
	return false
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name.
	File       string `yaml:"file"`        // Log file path; empty logs to stderr.
	MaxSizeMB  int    `yaml:"max-size"`    // Rotation size threshold in MB.
	MaxBackups int    `yaml:"max-backups"` // Rotated files to keep.
	MaxAgeDays int    `yaml:"max-age"`     // Rotated file age limit in days.
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Paystack PaystackConfig `yaml:"paystack"`
	Vouchers VoucherConfig  `yaml:"vouchers"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8317",
			ReadTimeout:  15,
			WriteTimeout: 30,
		},
		Database: DatabaseConfig{
			DSN: "voucher.db",
		},
		JWT: JWTConfig{
			ExpiryHours: 24,
		},
		Paystack: PaystackConfig{
			BaseURL:        "https://api.paystack.co/transaction",
			TimeoutSeconds: 15,
		},
		Vouchers: VoucherConfig{
			Denominations: []float64{2, 5, 10, 20, 50},
			Classes: map[string]DenominationClass{
				"10 5days":  {Amount: 10, ValidityDays: 5},
				"20 10days": {Amount: 20, ValidityDays: 10},
				"50 30days": {Amount: 50, ValidityDays: 30},
			},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the YAML config at path, applies environment overrides, and
// validates the result. A missing file is not an error; defaults plus
// environment variables apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		if errRead != nil && !os.IsNotExist(errRead) {
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
		if errRead == nil {
			if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		}
	}

	applyEnvOverrides(cfg)

	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment secrets win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYSTACK_SECRET_KEY")); v != "" {
		cfg.Paystack.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYSTACK_URL")); v != "" {
		cfg.Paystack.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
}

// Validate checks that required settings are present and coherent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database dsn is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt secret is required")
	}
	if strings.TrimSpace(c.Paystack.SecretKey) == "" {
		return fmt.Errorf("config: paystack secret key is required")
	}
	if strings.TrimSpace(c.Paystack.BaseURL) == "" {
		return fmt.Errorf("config: paystack base url is required")
	}
	if len(c.Vouchers.Denominations) == 0 {
		return fmt.Errorf("config: at least one denomination is required")
	}
	for label, class := range c.Vouchers.Classes {
		if class.Amount <= 0 {
			return fmt.Errorf("config: class %q has non-positive amount", label)
		}
		if class.ValidityDays <= 0 {
			return fmt.Errorf("config: class %q has non-positive validity", label)
		}
		if !c.Vouchers.AllowsAmount(class.Amount) {
			return fmt.Errorf("config: class %q amount %v is not an allowed denomination", label, class.Amount)
		}
	}
	return nil
}
