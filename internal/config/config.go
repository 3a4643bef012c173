// ABOUTME: Configuration loading and parsing for the keyward services
// ABOUTME: YAML files with ${VAR} expansion plus legacy environment overrides

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for either keyward service. Both
// binaries share the schema; the resource service additionally reads the
// Upstream, Resources, and Audit sections.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Auth       AuthConfig                `yaml:"auth"`
	Upstream   UpstreamConfig            `yaml:"upstream"`
	Principals map[string]PrincipalEntry `yaml:"principals"`
	Resources  map[string]map[string]any `yaml:"resources"`
	Audit      AuditConfig               `yaml:"audit"`
	Logging    LoggingConfig             `yaml:"logging"`
}

// ServerConfig holds the listen address and TLS key pair paths.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AuthConfig holds token signing configuration. JWTSecret must match
// between the authority and resource services.
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	TokenExpiryMinutes int    `yaml:"token_expiry_minutes"`
}

// UpstreamConfig locates the authority service from the resource service.
type UpstreamConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// InsecureSkipVerify disables certificate verification on calls to the
	// authority. Required when the authority runs on a self-signed pair.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// PrincipalEntry is one row of the static credential table.
type PrincipalEntry struct {
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// AuditConfig holds the best-effort access log location. An empty or
// missing directory disables auditing without failing requests.
type AuditConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file, expands ${VAR} references, applies
// defaults and environment overrides, and validates the result. A missing
// file is not an error: the services can run from environment variables
// alone, matching their original deployment style.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env-only configuration
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			expanded := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.CertFile == "" {
		c.Server.CertFile = "cert.pem"
	}
	if c.Server.KeyFile == "" {
		c.Server.KeyFile = "key.pem"
	}
	if c.Auth.TokenExpiryMinutes == 0 {
		c.Auth.TokenExpiryMinutes = 60
	}
	if c.Upstream.Port == 0 {
		c.Upstream.Port = 5000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// applyEnvOverrides maps the flat environment variables the services have
// always recognized onto the structured config. Environment wins over file
// content.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("JWT_EXPIRY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			c.Auth.TokenExpiryMinutes = minutes
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("TLS_CERT_PATH"); v != "" {
		c.Server.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_PATH"); v != "" {
		c.Server.KeyFile = v
	}
	if v := os.Getenv("AUTH_SERVICE_HOST"); v != "" {
		c.Upstream.Host = v
	}
	if v := os.Getenv("AUTH_SERVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Upstream.Port = port
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Audit.Dir = v
	}
}

// Validate checks invariants shared by both services.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or set JWT_SECRET)")
	}
	if c.Auth.TokenExpiryMinutes <= 0 {
		return fmt.Errorf("auth.token_expiry_minutes must be positive, got %d", c.Auth.TokenExpiryMinutes)
	}
	if c.Upstream.Port <= 0 || c.Upstream.Port > 65535 {
		return fmt.Errorf("upstream.port out of range: %d", c.Upstream.Port)
	}
	return nil
}

// TokenTTL returns the configured token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenExpiryMinutes) * time.Minute
}

// UpstreamBaseURL returns the HTTPS base URL of the authority service.
func (c *Config) UpstreamBaseURL() string {
	return fmt.Sprintf("https://%s:%d", c.Upstream.Host, c.Upstream.Port)
}
