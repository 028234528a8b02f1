package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/alert"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// registerDefaults copies config.DefaultYAMLConfig into v key by key.
func registerDefaults(v *viper.Viper) {
	data, err := yaml.Marshal(config.DefaultYAMLConfig())
	if err != nil {
		return
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults(v, "", tree)
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig decodes and validates the effective configuration held by v.
func loadConfig(v *viper.Viper) (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// resolveDataDir returns the data directory from --data-dir, the data_dir
// setting, or ~/.portfolio as fallback.
func resolveDataDir(cfg *config.YAMLConfig) string {
	if dataDir != "" {
		return dataDir
	}
	if cfg != nil && cfg.DataDir != "" {
		return cfg.DataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".portfolio")
}

// openStore opens the store selected by the database settings.
func openStore(cfg *config.YAMLConfig) (*config.Store, error) {
	store, err := config.Open(config.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		DataDir: resolveDataDir(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	return store, nil
}

// newLogger builds the process logger from the logging settings.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", cfg.Format)
	}
}

// newDispatcher returns the alert channel selected by alert.mode.
func newDispatcher(cfg config.AlertConfig, logger *slog.Logger) alert.Dispatcher {
	switch cfg.Mode {
	case config.AlertModeWebhook:
		return alert.NewWebhookDispatcher(cfg.WebhookURL, nil)
	case config.AlertModeMail:
		return alert.NewMailDispatcher(alert.MailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		})
	default:
		return alert.LogDispatcher{Logger: logger}
	}
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
