// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the contact relay.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = 5000
	defaultSMTPPort        = 587
	defaultSMTPTimeout     = 30 * time.Second
	defaultRateLimitWindow = 15 * time.Minute
	defaultRateLimitMax    = 5

	// defaultBodyLimit is 10 MB in bytes.
	defaultBodyLimit = 10 * 1024 * 1024
)

// devOrigins are always allowed so a locally served frontend can reach the API.
var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:3000",
}

// Config holds the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mail      MailConfig      `yaml:"mail"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	TLS       TLSConfig       `yaml:"tls"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	BodyLimit   int    `yaml:"body_limit"`
	ProxyHeader string `yaml:"proxy_header"`
}

// MailConfig holds the named values the transport selector reads.
type MailConfig struct {
	Service string      `yaml:"service"`
	User    string      `yaml:"user"`
	Pass    string      `yaml:"pass"`
	SMTP    SMTPConfig  `yaml:"smtp"`
	SES     SESConfig   `yaml:"ses"`
	Graph   GraphConfig `yaml:"graph"`
}

// SMTPConfig holds generic SMTP server settings.
type SMTPConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Secure  bool          `yaml:"secure"`
	Timeout time.Duration `yaml:"timeout"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// GraphConfig holds Microsoft Graph API application credentials.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// CORSConfig holds the origins added to the built-in development origins.
type CORSConfig struct {
	FrontendURL       string   `yaml:"frontend_url"`
	FrontendDeployURL string   `yaml:"frontend_deploy_url"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
}

// RateLimitConfig bounds contact submissions per client.
type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`
}

// TLSConfig holds TLS certificate file paths for the HTTPS listener.
type TLSConfig struct {
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	SelfSigned bool   `yaml:"self_signed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := defaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file layered over the
// defaults, then overrides with environment variables. Returns an error if
// the specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// AllowedOrigins returns the ordered, de-duplicated origin allow-list:
// development origins first, then configured extras, then the frontend URLs.
// Empty values are dropped.
func (c *Config) AllowedOrigins() []string {
	candidates := make([]string, 0, len(devOrigins)+len(c.CORS.AllowedOrigins)+2)
	candidates = append(candidates, devOrigins...)
	candidates = append(candidates, c.CORS.AllowedOrigins...)
	candidates = append(candidates, c.CORS.FrontendURL, c.CORS.FrontendDeployURL)

	seen := make(map[string]struct{}, len(candidates))
	origins := make([]string, 0, len(candidates))
	for _, o := range candidates {
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		origins = append(origins, o)
	}
	return origins
}

// TLSEnabled returns true if the HTTP listener should serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return (c.TLS.CertFile != "" && c.TLS.KeyFile != "") || c.TLS.SelfSigned
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      defaultPort,
			BodyLimit: defaultBodyLimit,
		},
		Mail: MailConfig{
			SMTP: SMTPConfig{
				Port:    defaultSMTPPort,
				Timeout: defaultSMTPTimeout,
			},
		},
		RateLimit: RateLimitConfig{
			Window: defaultRateLimitWindow,
			Max:    defaultRateLimitMax,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values; numeric
// values that fail to parse are ignored.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PROXY_HEADER"); v != "" {
		c.Server.ProxyHeader = v
	}

	if v := os.Getenv("EMAIL_SERVICE"); v != "" {
		c.Mail.Service = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		c.Mail.User = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		c.Mail.Pass = v
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Mail.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Mail.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		c.Mail.SMTP.Secure = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SMTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Mail.SMTP.Timeout = d
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.Mail.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.Mail.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.Mail.SES.SecretAccessKey = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Mail.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Mail.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Mail.Graph.ClientSecret = v
	}

	if v := os.Getenv("FRONTEND_URL"); v != "" {
		c.CORS.FrontendURL = v
	}
	if v := os.Getenv("FRONTEND_DEPLOY_URL"); v != "" {
		c.CORS.FrontendDeployURL = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RateLimit.Window = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.Max = n
		}
	}

	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}
	if v := os.Getenv("TLS_SELF_SIGNED"); v != "" {
		c.TLS.SelfSigned = strings.EqualFold(v, "true")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

// splitList splits a comma-separated list, trimming blanks.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
