package codex

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// OAuth configuration defaults for OpenAI Codex
const (
	DefaultIssuer               = "https://auth.openai.com"
	DefaultClientID             = "app_EMoamEEZ73f0CkXaXp7hrann"
	DefaultRedirectURITemplate  = "http://localhost:{port}/auth/callback"
	DefaultRedirectPort         = 1455
	DefaultAPIKeyRequestedToken = "openai-api-key"
	DefaultAPIKeyField          = "access_token"

	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/token"
	portToken     = "{port}"
)

// reservedAuthParams are set by BuildFlow and cannot be overridden by ExtraAuthParams.
var reservedAuthParams = []string{
	"response_type",
	"client_id",
	"redirect_uri",
	"scope",
	"state",
	"code_challenge",
	"code_challenge_method",
}

// DefaultScopes are requested when the builder is given none.
var DefaultScopes = []string{"openid", "profile", "email", "offline_access"}

// Config describes the OAuth client and the provider endpoints. Build it with
// NewConfigBuilder; a built Config is treated as read-only.
type Config struct {
	// ClientID is the public OAuth client identifier.
	ClientID string
	// Issuer is the base URL the endpoints are derived from.
	Issuer string
	// AuthURL is the authorization endpoint.
	AuthURL string
	// TokenURL is the token endpoint used for code and refresh grants.
	TokenURL string
	// APIKeyURL is the endpoint used for the ID token to API key exchange.
	APIKeyURL string
	// RedirectURITemplate is the redirect URI with an optional {port} placeholder.
	RedirectURITemplate string
	// RedirectPort is the local port the callback listener binds.
	RedirectPort int
	// Scopes are the requested OAuth scopes.
	Scopes []string
	// APIKeyAudience asks the issuer for an ID token carrying organization data,
	// which the API key exchange requires.
	APIKeyAudience bool
	// APIKeyRequestedToken is the requested_token value of the API key exchange.
	APIKeyRequestedToken string
	// APIKeyField is the gjson path of the API key in the exchange response.
	APIKeyField string
	// ExtraAuthParams are appended to the authorization URL.
	ExtraAuthParams map[string]string
}

// DefaultConfig returns the configuration used by the Codex CLI.
func DefaultConfig() *Config {
	cfg, err := NewConfigBuilder().Build()
	if err != nil {
		// defaults are static and always valid
		panic(err)
	}
	return cfg
}

// RedirectURI returns the redirect URI with the port substituted.
func (c *Config) RedirectURI() string {
	return strings.ReplaceAll(c.RedirectURITemplate, portToken, strconv.Itoa(c.RedirectPort))
}

// Validate checks the structural requirements of the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrConfigInvalid)
	}
	if c.RedirectPort < 1 || c.RedirectPort > 65535 {
		return fmt.Errorf("%w: redirect port %d out of range", ErrConfigInvalid, c.RedirectPort)
	}
	for name, raw := range map[string]string{
		"auth url":     c.AuthURL,
		"token url":    c.TokenURL,
		"api key url":  c.APIKeyURL,
		"redirect uri": c.RedirectURI(),
	} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, name, err)
		}
	}
	if strings.TrimSpace(c.APIKeyField) == "" {
		return fmt.Errorf("%w: api key field is required", ErrConfigInvalid)
	}
	for key := range c.ExtraAuthParams {
		if slices.Contains(reservedAuthParams, strings.ToLower(strings.TrimSpace(key))) {
			return fmt.Errorf("%w: extra auth param %q is reserved", ErrConfigInvalid, key)
		}
	}
	return nil
}

// WithRedirectPort returns a copy of c whose redirect URI uses port.
func (c *Config) WithRedirectPort(port int) (*Config, error) {
	out := c.clone()
	out.RedirectPort = port
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Config) clone() *Config {
	out := *c
	out.Scopes = append([]string(nil), c.Scopes...)
	out.ExtraAuthParams = make(map[string]string, len(c.ExtraAuthParams))
	for k, v := range c.ExtraAuthParams {
		out.ExtraAuthParams[k] = v
	}
	return &out
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// ConfigBuilder assembles a Config, applying defaults for everything left unset.
type ConfigBuilder struct {
	clientID       *string
	issuer         *string
	authURL        *string
	tokenURL       *string
	apiKeyURL      *string
	redirectURI    *string
	redirectPort   *int
	scopes         []string
	apiKeyAudience *bool
	requestedToken *string
	apiKeyField    *string
	extraParams    map[string]string
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// ClientID sets the OAuth client ID.
func (b *ConfigBuilder) ClientID(clientID string) *ConfigBuilder {
	b.clientID = &clientID
	return b
}

// Issuer sets the base URL that unset endpoints are derived from.
func (b *ConfigBuilder) Issuer(issuer string) *ConfigBuilder {
	b.issuer = &issuer
	return b
}

// AuthURL sets the authorization endpoint explicitly.
func (b *ConfigBuilder) AuthURL(authURL string) *ConfigBuilder {
	b.authURL = &authURL
	return b
}

// TokenURL sets the token endpoint explicitly.
func (b *ConfigBuilder) TokenURL(tokenURL string) *ConfigBuilder {
	b.tokenURL = &tokenURL
	return b
}

// APIKeyURL sets the API key exchange endpoint. It defaults to the token endpoint.
func (b *ConfigBuilder) APIKeyURL(apiKeyURL string) *ConfigBuilder {
	b.apiKeyURL = &apiKeyURL
	return b
}

// RedirectURI sets the redirect URI template. "{port}" is replaced by the redirect port.
// A template without the placeholder is used verbatim and its port, if any, becomes
// the redirect port unless RedirectPort is also called.
func (b *ConfigBuilder) RedirectURI(template string) *ConfigBuilder {
	b.redirectURI = &template
	return b
}

// RedirectPort sets the local callback port.
func (b *ConfigBuilder) RedirectPort(port int) *ConfigBuilder {
	b.redirectPort = &port
	return b
}

// Scopes replaces the requested scopes.
func (b *ConfigBuilder) Scopes(scopes ...string) *ConfigBuilder {
	b.scopes = append([]string(nil), scopes...)
	return b
}

// APIKeyAudience toggles requesting an ID token usable for the API key exchange.
func (b *ConfigBuilder) APIKeyAudience(enabled bool) *ConfigBuilder {
	b.apiKeyAudience = &enabled
	return b
}

// APIKeyRequestedToken overrides the requested_token value of the API key exchange.
func (b *ConfigBuilder) APIKeyRequestedToken(token string) *ConfigBuilder {
	b.requestedToken = &token
	return b
}

// APIKeyField overrides where the API key is read from in the exchange response.
func (b *ConfigBuilder) APIKeyField(path string) *ConfigBuilder {
	b.apiKeyField = &path
	return b
}

// ExtraAuthParam adds a query parameter to the authorization URL.
// An empty value removes a default parameter. Protocol parameters such as state
// or code_challenge are rejected by Build.
func (b *ConfigBuilder) ExtraAuthParam(key, value string) *ConfigBuilder {
	if b.extraParams == nil {
		b.extraParams = map[string]string{}
	}
	b.extraParams[key] = value
	return b
}

// Build validates the settings and returns the Config.
func (b *ConfigBuilder) Build() (*Config, error) {
	cfg := &Config{
		ClientID:             DefaultClientID,
		Issuer:               DefaultIssuer,
		RedirectURITemplate:  DefaultRedirectURITemplate,
		RedirectPort:         DefaultRedirectPort,
		Scopes:               append([]string(nil), DefaultScopes...),
		APIKeyAudience:       true,
		APIKeyRequestedToken: DefaultAPIKeyRequestedToken,
		APIKeyField:          DefaultAPIKeyField,
		ExtraAuthParams: map[string]string{
			"codex_cli_simplified_flow": "true",
			"originator":                "codex_cli_rs",
		},
	}

	if b.clientID != nil {
		cfg.ClientID = strings.TrimSpace(*b.clientID)
	}
	if b.issuer != nil {
		cfg.Issuer = strings.TrimRight(strings.TrimSpace(*b.issuer), "/")
	}
	cfg.AuthURL = cfg.Issuer + authorizePath
	cfg.TokenURL = cfg.Issuer + tokenPath
	if b.authURL != nil {
		cfg.AuthURL = *b.authURL
	}
	if b.tokenURL != nil {
		cfg.TokenURL = *b.tokenURL
	}
	cfg.APIKeyURL = cfg.TokenURL
	if b.apiKeyURL != nil {
		cfg.APIKeyURL = *b.apiKeyURL
	}

	if b.redirectURI != nil {
		cfg.RedirectURITemplate = *b.redirectURI
		if !strings.Contains(cfg.RedirectURITemplate, portToken) && b.redirectPort == nil {
			if u, err := url.Parse(cfg.RedirectURITemplate); err == nil && u.Port() != "" {
				if port, errAtoi := strconv.Atoi(u.Port()); errAtoi == nil {
					cfg.RedirectPort = port
				}
			}
		}
	}
	if b.redirectPort != nil {
		cfg.RedirectPort = *b.redirectPort
	}
	if b.scopes != nil {
		cfg.Scopes = b.scopes
	}
	if b.apiKeyAudience != nil {
		cfg.APIKeyAudience = *b.apiKeyAudience
	}
	if b.requestedToken != nil {
		cfg.APIKeyRequestedToken = *b.requestedToken
	}
	if b.apiKeyField != nil {
		cfg.APIKeyField = *b.apiKeyField
	}
	for k, v := range b.extraParams {
		if v == "" {
			delete(cfg.ExtraAuthParams, k)
			continue
		}
		cfg.ExtraAuthParams[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
