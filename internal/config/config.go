// Package config loads the openai-auth CLI configuration from YAML and maps it
// onto the codex OAuth client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/router-for-me/openai-auth/internal/auth/codex"
	"github.com/router-for-me/openai-auth/internal/logging"
	"github.com/router-for-me/openai-auth/internal/util"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCallbackTimeout bounds how long a login waits for the browser redirect.
	DefaultCallbackTimeout = 5 * time.Minute
	// DefaultRequestTimeout bounds a single token endpoint request.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultLogDir is used when logging-to-file is enabled without log-dir.
	DefaultLogDir = "logs"
)

// Config is the CLI configuration file.
type Config struct {
	// ClientID overrides the public OAuth client identifier.
	ClientID string `yaml:"client-id"`
	// Issuer is the OAuth issuer base URL.
	Issuer string `yaml:"issuer" validate:"omitempty,url"`
	// AuthURL overrides the authorization endpoint.
	AuthURL string `yaml:"auth-url" validate:"omitempty,url"`
	// TokenURL overrides the token endpoint.
	TokenURL string `yaml:"token-url" validate:"omitempty,url"`
	// APIKeyURL overrides the API key exchange endpoint.
	APIKeyURL string `yaml:"api-key-url" validate:"omitempty,url"`
	// RedirectURI is the redirect URI template; "{port}" is substituted.
	RedirectURI string `yaml:"redirect-uri"`
	// RedirectPort is the local callback port.
	RedirectPort int `yaml:"redirect-port" validate:"omitempty,min=1,max=65535"`
	// Scopes replaces the requested scopes.
	Scopes []string `yaml:"scopes"`
	// APIKeyAudience toggles id_token_add_organizations. Nil keeps the default.
	APIKeyAudience *bool `yaml:"api-key-audience"`
	// APIKeyRequestedToken overrides requested_token of the API key exchange.
	APIKeyRequestedToken string `yaml:"api-key-requested-token"`
	// APIKeyField is the gjson path of the key in the exchange response.
	APIKeyField string `yaml:"api-key-field"`
	// ExtraAuthParams are added to the authorization URL; empty values remove defaults.
	ExtraAuthParams map[string]string `yaml:"extra-auth-params"`

	// ProxyURL routes token requests through an http, https or socks5 proxy.
	ProxyURL string `yaml:"proxy-url" validate:"omitempty,url"`
	// CallbackTimeout bounds the wait for the browser redirect.
	CallbackTimeout time.Duration `yaml:"callback-timeout" validate:"min=0"`
	// RequestTimeout bounds each token endpoint request.
	RequestTimeout time.Duration `yaml:"request-timeout" validate:"min=0"`
	// NoBrowser disables opening the authorization URL automatically.
	NoBrowser bool `yaml:"no-browser"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
	// LoggingToFile writes logs to a rotating file instead of stderr.
	LoggingToFile bool `yaml:"logging-to-file"`
	// LogDir is the directory used when LoggingToFile is set.
	LogDir string `yaml:"log-dir"`
	// LogsMaxTotalSizeMB caps the total size of the log directory; 0 disables the cap.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" validate:"min=0"`
}

// Default returns a configuration with the built-in timeouts and nothing overridden.
func Default() *Config {
	return &Config{
		CallbackTimeout: DefaultCallbackTimeout,
		RequestTimeout:  DefaultRequestTimeout,
		LogDir:          DefaultLogDir,
	}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional is LoadConfig that returns defaults when optional is set and
// the file is missing or empty.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(configFile) == "" {
		if optional {
			return cfg, nil
		}
		return nil, fmt.Errorf("config file path is empty")
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", codex.ErrConfigInvalid, err)
	}
	return nil
}

// CodexConfig builds the OAuth client configuration, applying only the fields set in c.
func (c *Config) CodexConfig() (*codex.Config, error) {
	b := codex.NewConfigBuilder()
	if c == nil {
		return b.Build()
	}
	if c.ClientID != "" {
		b.ClientID(c.ClientID)
	}
	if c.Issuer != "" {
		b.Issuer(c.Issuer)
	}
	if c.AuthURL != "" {
		b.AuthURL(c.AuthURL)
	}
	if c.TokenURL != "" {
		b.TokenURL(c.TokenURL)
	}
	if c.APIKeyURL != "" {
		b.APIKeyURL(c.APIKeyURL)
	}
	if c.RedirectURI != "" {
		b.RedirectURI(c.RedirectURI)
	}
	if c.RedirectPort != 0 {
		b.RedirectPort(c.RedirectPort)
	}
	if len(c.Scopes) > 0 {
		b.Scopes(c.Scopes...)
	}
	if c.APIKeyAudience != nil {
		b.APIKeyAudience(*c.APIKeyAudience)
	}
	if c.APIKeyRequestedToken != "" {
		b.APIKeyRequestedToken(c.APIKeyRequestedToken)
	}
	if c.APIKeyField != "" {
		b.APIKeyField(c.APIKeyField)
	}
	for k, v := range c.ExtraAuthParams {
		b.ExtraAuthParam(k, v)
	}
	return b.Build()
}

// LogOutput returns the logging destination described by the file.
func (c *Config) LogOutput() (logging.OutputOptions, error) {
	dir, err := util.ExpandPath(c.LogDir)
	if err != nil {
		return logging.OutputOptions{}, err
	}
	return logging.OutputOptions{
		ToFile:         c.LoggingToFile,
		Dir:            dir,
		MaxTotalSizeMB: c.LogsMaxTotalSizeMB,
	}, nil
}

// ApplyEnv overrides fields from OPENAI_AUTH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("OPENAI_AUTH_CLIENT_ID")); v != "" {
		c.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_AUTH_ISSUER")); v != "" {
		c.Issuer = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_AUTH_PROXY_URL")); v != "" {
		c.ProxyURL = v
	}
}
