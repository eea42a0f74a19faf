package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RoundtableYAMLConfig represents the complete roundtable.yaml file structure.
type RoundtableYAMLConfig struct {
	System   *SystemYAMLConfig       `yaml:"system"`
	Sockets  map[string]SocketConfig `yaml:"sockets"`
	Defaults *Defaults               `yaml:"defaults"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	DashboardURL     string           `yaml:"dashboard_url"`
	AllowedWSOrigins []string         `yaml:"allowed_ws_origins"`
	Slack            *SlackYAMLConfig `yaml:"slack"`
	Retention        *RetentionConfig `yaml:"retention"`
	Database         *DatabaseConfig  `yaml:"database"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load roundtable.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined socket personas
//  5. Build the socket registry
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "sockets", stats.Sockets)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userConfig, err := loader.loadRoundtableYAML()
	if err != nil {
		return nil, NewLoadError("roundtable.yaml", err)
	}

	builtinSockets := GetBuiltinSockets()
	sockets := mergeSockets(builtinSockets, userConfig.Sockets)
	socketRegistry := NewSocketRegistry(sockets)

	defaults := userConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	applyDefaults(defaults, DefaultDefaults())

	slackCfg := resolveSlackConfig(userConfig.System)
	retentionCfg := resolveRetentionConfig(userConfig.System)
	dashboardURL := resolveDashboardURL(userConfig.System)
	allowedWSOrigins := resolveAllowedWSOrigins(userConfig.System)
	dbCfg := resolveDatabaseConfig(userConfig.System)

	return &Config{
		configDir:        configDir,
		Defaults:         defaults,
		SocketRegistry:   socketRegistry,
		Database:         dbCfg,
		Slack:            slackCfg,
		Retention:        retentionCfg,
		DashboardURL:     dashboardURL,
		AllowedWSOrigins: allowedWSOrigins,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadRoundtableYAML() (*RoundtableYAMLConfig, error) {
	var cfg RoundtableYAMLConfig
	cfg.Sockets = make(map[string]SocketConfig)

	if err := l.loadYAML("roundtable.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveSlackConfig resolves Slack configuration from system YAML, applying defaults.
func resolveSlackConfig(sys *SystemYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if sys == nil || sys.Slack == nil {
		return cfg
	}

	s := sys.Slack
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveDashboardURL resolves the dashboard base URL from system YAML, applying defaults.
func resolveDashboardURL(sys *SystemYAMLConfig) string {
	if sys != nil && sys.DashboardURL != "" {
		return sys.DashboardURL
	}
	return "http://localhost:5173"
}

// resolveRetentionConfig resolves retention configuration from system YAML, applying defaults.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.MeetingRetentionDays > 0 {
		cfg.MeetingRetentionDays = r.MeetingRetentionDays
	}
	if r.ConnectionTTL > 0 {
		cfg.ConnectionTTL = r.ConnectionTTL
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}

// resolveAllowedWSOrigins returns additional WebSocket origin patterns from system YAML.
func resolveAllowedWSOrigins(sys *SystemYAMLConfig) []string {
	if sys != nil {
		return sys.AllowedWSOrigins
	}
	return nil
}

// resolveDatabaseConfig resolves Postgres connection settings from system YAML,
// applying defaults and allowing individual fields to be overridden by env vars.
func resolveDatabaseConfig(sys *SystemYAMLConfig) DatabaseConfig {
	cfg := DatabaseConfig{
		Host:         "localhost",
		Port:         5432,
		User:         "roundtable",
		Database:     "roundtable",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}

	if sys != nil && sys.Database != nil {
		d := *sys.Database
		if d.Host != "" {
			cfg.Host = d.Host
		}
		if d.Port != 0 {
			cfg.Port = d.Port
		}
		if d.User != "" {
			cfg.User = d.User
		}
		if d.Password != "" {
			cfg.Password = d.Password
		}
		if d.Database != "" {
			cfg.Database = d.Database
		}
		if d.SSLMode != "" {
			cfg.SSLMode = d.SSLMode
		}
		if d.MaxOpenConns != 0 {
			cfg.MaxOpenConns = d.MaxOpenConns
		}
		if d.MaxIdleConns != 0 {
			cfg.MaxIdleConns = d.MaxIdleConns
		}
	}

	if pw := os.Getenv("ROUNDTABLE_DB_PASSWORD"); pw != "" {
		cfg.Password = pw
	}

	return cfg
}
