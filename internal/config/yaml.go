package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level portfolio configuration file.
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	DataDir  string         `yaml:"data_dir" mapstructure:"data_dir"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Alert    AlertConfig    `yaml:"alert" mapstructure:"alert"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host" mapstructure:"host"`
	Port            int        `yaml:"port" mapstructure:"port"`
	MaxBodySize     string     `yaml:"max_body_size" mapstructure:"max_body_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors" mapstructure:"cors"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// AuthConfig controls admin authentication and lockout.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenExpiry   string `yaml:"token_expiry" mapstructure:"token_expiry"`
	LockThreshold int    `yaml:"lock_threshold" mapstructure:"lock_threshold"`
	LockDuration  string `yaml:"lock_duration" mapstructure:"lock_duration"`
	BcryptCost    int    `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// Alert delivery modes.
const (
	AlertModeLog     = "log"
	AlertModeWebhook = "webhook"
	AlertModeMail    = "mail"
)

// AlertConfig controls how lockout alerts leave the process.
type AlertConfig struct {
	Mode       string     `yaml:"mode" mapstructure:"mode"`
	Timeout    string     `yaml:"timeout" mapstructure:"timeout"`
	WebhookURL string     `yaml:"webhook_url" mapstructure:"webhook_url"`
	SMTP       SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
}

// SMTPConfig is used when Alert.Mode is "mail".
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
	To       string `yaml:"to" mapstructure:"to"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file on top of the
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     "1MB",
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
		},
		Auth: AuthConfig{
			TokenExpiry:   "168h",
			LockThreshold: 2,
			LockDuration:  "15m",
			BcryptCost:    12,
		},
		Alert: AlertConfig{
			Mode:    AlertModeLog,
			Timeout: "10s",
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *YAMLConfig) Validate() error {
	var errs []error

	durations := map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"auth.token_expiry":       c.Auth.TokenExpiry,
		"auth.lock_duration":      c.Auth.LockDuration,
		"alert.timeout":           c.Alert.Timeout,
	}
	for _, key := range []string{"server.shutdown_timeout", "auth.token_expiry", "auth.lock_duration", "alert.timeout"} {
		d, err := time.ParseDuration(durations[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive", key))
		}
	}

	if _, err := ParseByteSize(c.Server.MaxBodySize); err != nil {
		errs = append(errs, fmt.Errorf("server.max_body_size: %w", err))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Auth.LockThreshold < 1 {
		errs = append(errs, fmt.Errorf("auth.lock_threshold: must be at least 1, got %d", c.Auth.LockThreshold))
	}
	if _, ok := dialects[c.Database.Driver]; !ok {
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}

	switch c.Alert.Mode {
	case AlertModeLog:
	case AlertModeWebhook:
		if c.Alert.WebhookURL == "" {
			errs = append(errs, errors.New("alert.webhook_url: required when alert.mode is webhook"))
		}
	case AlertModeMail:
		if c.Alert.SMTP.Host == "" || c.Alert.SMTP.From == "" || c.Alert.SMTP.To == "" {
			errs = append(errs, errors.New("alert.smtp: host, from and to are required when alert.mode is mail"))
		}
	default:
		errs = append(errs, fmt.Errorf("alert.mode: unknown mode %q", c.Alert.Mode))
	}

	return errors.Join(errs...)
}

// TokenExpiryDuration returns auth.token_expiry, falling back to 7 days.
func (c *YAMLConfig) TokenExpiryDuration() time.Duration {
	return parseDurationOr(c.Auth.TokenExpiry, 7*24*time.Hour)
}

// LockDurationValue returns auth.lock_duration, falling back to 15 minutes.
func (c *YAMLConfig) LockDurationValue() time.Duration {
	return parseDurationOr(c.Auth.LockDuration, 15*time.Minute)
}

// AlertTimeout returns alert.timeout, falling back to 10 seconds.
func (c *YAMLConfig) AlertTimeout() time.Duration {
	return parseDurationOr(c.Alert.Timeout, 10*time.Second)
}

// ShutdownTimeout returns server.shutdown_timeout, falling back to 30 seconds.
func (c *YAMLConfig) ShutdownTimeout() time.Duration {
	return parseDurationOr(c.Server.ShutdownTimeout, 30*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ParseByteSize parses sizes such as "512KB", "1MB" or a bare byte count.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, errors.New("empty size")
	}
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %d", n)
	}
	return n * multiplier, nil
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultYAMLConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
