// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package config assembles the server configuration from defaults, an
// optional YAML file, the environment and command-line flags, in that order.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/ironlog/ironlog/internal/auth"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full server configuration. It is built once at startup and
// passed by value.
type Config struct {
	Environment string         `koanf:"environment" json:"environment,omitempty" yaml:"environment" jsonschema:"enum=development,enum=production"`
	Auth        AuthConfig     `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	HTTP        HTTPConfig     `koanf:"http" json:"http,omitempty" yaml:"http"`
	Metrics     MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
	Database    DatabaseConfig `koanf:"database" json:"database,omitempty" yaml:"database"`
	Log         LogConfig      `koanf:"log" json:"log,omitempty" yaml:"log"`
}

// AuthConfig holds credential and session settings.
type AuthConfig struct {
	AdminEmail       string        `koanf:"admin_email" json:"admin_email,omitempty" yaml:"admin_email"`
	AdminPassword    string        `koanf:"admin_password" json:"admin_password,omitempty" yaml:"admin_password"`
	PBKDF2Iterations int           `koanf:"pbkdf2_iterations" json:"pbkdf2_iterations,omitempty" yaml:"pbkdf2_iterations"`
	SessionTTLDays   int           `koanf:"session_ttl_days" json:"session_ttl_days,omitempty" yaml:"session_ttl_days"`
	LoginRateLimit   int           `koanf:"login_rate_limit" json:"login_rate_limit,omitempty" yaml:"login_rate_limit" jsonschema:"minimum=1"`
	LoginRateWindow  time.Duration `koanf:"login_rate_window" json:"login_rate_window,omitempty" yaml:"login_rate_window"`
}

// HTTPConfig configures the web listener.
type HTTPConfig struct {
	Addr   string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
	WebDir string `koanf:"web_dir" json:"web_dir,omitempty" yaml:"web_dir"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
}

// DatabaseConfig points at PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url" json:"url,omitempty" yaml:"url"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
}

// Bootstrap returns the admin bootstrap credentials.
func (c Config) Bootstrap() auth.BootstrapConfig {
	return auth.BootstrapConfig{AdminEmail: c.Auth.AdminEmail, AdminPassword: c.Auth.AdminPassword}
}

// IsProduction reports whether secure cookies are required.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Redacted returns a copy safe to print: the admin password and any
// database password are masked.
func (c Config) Redacted() Config {
	const mask = "********"
	if c.Auth.AdminPassword != "" {
		c.Auth.AdminPassword = mask
	}
	if u, err := url.Parse(c.Database.URL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), mask)
			c.Database.URL = u.String()
		}
	}
	return c
}

func defaults() map[string]any {
	return map[string]any{
		"environment":            EnvDevelopment,
		"auth.pbkdf2_iterations": auth.DefaultPBKDF2Iterations,
		"auth.session_ttl_days":  auth.DefaultSessionTTLDays,
		"auth.login_rate_limit":  auth.DefaultLoginRateLimit,
		"auth.login_rate_window": auth.DefaultLoginRateWindow.String(),
		"http.addr":              ":8080",
		"metrics.addr":           "127.0.0.1:9100",
		"log.format":             "json",
	}
}

// envKeys maps recognized environment variables to config keys.
var envKeys = map[string]string{
	"APP_ENV":           "environment",
	"NODE_ENV":          "environment",
	"ADMIN_EMAIL":       "auth.admin_email",
	"ADMIN_PASSWORD":    "auth.admin_password",
	"PBKDF2_ITERATIONS": "auth.pbkdf2_iterations",
	"SESSION_TTL_DAYS":  "auth.session_ttl_days",
	"LOGIN_RATE_LIMIT":  "auth.login_rate_limit",
	"LOGIN_RATE_WINDOW": "auth.login_rate_window",
	"HTTP_ADDR":         "http.addr",
	"WEB_DIR":           "http.web_dir",
	"METRICS_ADDR":      "metrics.addr",
	"DATABASE_URL":      "database.url",
	"LOG_FORMAT":        "log.format",
}

// positiveIntKeys fall back to their default when the value is not a
// positive integer.
var positiveIntKeys = map[string]bool{
	"auth.pbkdf2_iterations": true,
	"auth.session_ttl_days":  true,
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"env":          "environment",
	"http-addr":    "http.addr",
	"web-dir":      "http.web_dir",
	"metrics-addr": "metrics.addr",
	"database-url": "database.url",
	"log-format":   "log.format",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", EnvDevelopment, "runtime environment (development or production)")
	fs.String("http-addr", ":8080", "HTTP listen address")
	fs.String("web-dir", "", "directory of built web assets")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics and health listen address (empty disables)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-format", "json", "log format (json or text)")
}

// Load builds a Config. path may be empty to skip the file layer; flags may
// be nil. Only flags the user changed override earlier layers.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "file").With("path", path).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "file").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue(flags)), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envValue(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}
	if name == "NODE_ENV" && !nodeEnvSelectsProduction(value) {
		return "", nil
	}
	if positiveIntKeys[key] {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return "", nil
		}
		return key, n
	}
	return key, value
}

// nodeEnvSelectsProduction reports whether NODE_ENV should switch the
// environment. APP_ENV wins when both are set; other NODE_ENV values such as
// "test" are ignored.
func nodeEnvSelectsProduction(value string) bool {
	if _, set := os.LookupEnv("APP_ENV"); set {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(value), EnvProduction)
}

func flagValue(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Auth.PBKDF2Iterations <= 0 || c.Auth.PBKDF2Iterations > auth.MaxPBKDF2Iterations {
		c.Auth.PBKDF2Iterations = auth.DefaultPBKDF2Iterations
	}
	if c.Auth.SessionTTLDays <= 0 {
		c.Auth.SessionTTLDays = auth.DefaultSessionTTLDays
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return oops.Code("CONFIG_INVALID").With("environment", c.Environment).
			Errorf("environment must be %q or %q", EnvDevelopment, EnvProduction)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("log_format", c.Log.Format).Errorf("log format must be json or text")
	}
	if c.Auth.LoginRateLimit <= 0 || c.Auth.LoginRateWindow <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("login_rate_limit", c.Auth.LoginRateLimit).
			With("login_rate_window", c.Auth.LoginRateWindow.String()).
			Errorf("login rate limit and window must be positive")
	}
	if c.IsProduction() && c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database url is required in production")
	}
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http address is required")
	}
	return nil
}
