package codex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/router-for-me/openai-auth/internal/buildinfo"
	"github.com/router-for-me/openai-auth/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
	grantTypeTokenExchange     = "urn:ietf:params:oauth:grant-type:token-exchange"
	tokenTypeIDToken           = "urn:ietf:params:oauth:token-type:id_token"
)

// CodexAuth handles the OpenAI OAuth2 authentication flow.
// It holds only immutable configuration and a reusable HTTP client, so all
// methods are safe for concurrent use. No method retries on failure.
type CodexAuth struct {
	cfg        *Config
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes a CodexAuth.
type Option func(*CodexAuth)

// WithHTTPClient sets the HTTP client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *CodexAuth) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithProxyURL routes token requests through an HTTP(S) or SOCKS5 proxy.
func WithProxyURL(proxyURL string) Option {
	return func(o *CodexAuth) {
		o.httpClient = util.SetProxy(proxyURL, o.httpClient)
	}
}

// WithClock overrides the clock used to stamp TokenSet.IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(o *CodexAuth) {
		if now != nil {
			o.now = now
		}
	}
}

// NewCodexAuth creates a new CodexAuth service instance. A nil cfg selects
// DefaultConfig. The config is copied; later changes to cfg have no effect.
func NewCodexAuth(cfg *Config, opts ...Option) *CodexAuth {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := &CodexAuth{
		cfg:        cfg.clone(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns a copy of the client configuration.
func (o *CodexAuth) Config() *Config {
	return o.cfg.clone()
}

// ExchangeCode exchanges an authorization code for access and refresh tokens.
// verifier must be the CodeVerifier of the Flow that produced the authorization URL.
func (o *CodexAuth) ExchangeCode(ctx context.Context, code, verifier string) (*TokenSet, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}
	data := url.Values{
		"grant_type":    {grantTypeAuthorizationCode},
		"client_id":     {o.cfg.ClientID},
		"code":          {code},
		"redirect_uri":  {o.cfg.RedirectURI()},
		"code_verifier": {verifier},
	}

	body, err := o.postForm(ctx, "token exchange", o.cfg.TokenURL, data)
	if err != nil {
		return nil, err
	}
	tokens, err := o.parseTokenResponse(body)
	if err != nil {
		return nil, err
	}
	log.Debugf("codex token exchange succeeded (refresh token: %t, id token: %t)", tokens.RefreshToken != "", tokens.IDToken != "")
	return tokens, nil
}

// RefreshToken obtains a new access token using a refresh token.
// When the response carries no refresh token the supplied one is kept.
func (o *CodexAuth) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}
	data := url.Values{
		"grant_type":    {grantTypeRefreshToken},
		"refresh_token": {refreshToken},
		"client_id":     {o.cfg.ClientID},
	}

	body, err := o.postForm(ctx, "token refresh", o.cfg.TokenURL, data)
	if err != nil {
		return nil, err
	}
	tokens, err := o.parseTokenResponse(body)
	if err != nil {
		return nil, err
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

// ExchangeCodeForAPIKey exchanges the authorization code and then trades the
// returned ID token for an OpenAI API key.
//
// Partial success: an error is returned only when the code exchange itself fails.
// If the API key step fails, the tokens from the code exchange are returned with
// an empty APIKey and the failure recorded in TokenSet.APIKeyErr. Callers that
// need the key must check APIKeyErr.
func (o *CodexAuth) ExchangeCodeForAPIKey(ctx context.Context, code, verifier string) (*TokenSet, error) {
	tokens, err := o.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	if tokens.IDToken == "" {
		tokens.APIKeyErr = fmt.Errorf("%w: no id_token to exchange for an API key", ErrMalformedResponse)
		log.Warnf("codex api key exchange skipped: %v", tokens.APIKeyErr)
		return tokens, nil
	}

	apiKey, errKey := o.ObtainAPIKey(ctx, tokens.IDToken)
	if errKey != nil {
		tokens.APIKeyErr = errKey
		log.Warnf("codex api key exchange failed, continuing without api key: %v", errKey)
		return tokens, nil
	}
	tokens.APIKey = apiKey
	return tokens, nil
}

// ObtainAPIKey exchanges an ID token for an OpenAI API key using the
// token-exchange grant.
func (o *CodexAuth) ObtainAPIKey(ctx context.Context, idToken string) (string, error) {
	if idToken == "" {
		return "", fmt.Errorf("%w: id token is required", ErrMalformedToken)
	}
	data := url.Values{
		"grant_type":         {grantTypeTokenExchange},
		"client_id":          {o.cfg.ClientID},
		"requested_token":    {o.cfg.APIKeyRequestedToken},
		"subject_token":      {idToken},
		"subject_token_type": {tokenTypeIDToken},
	}

	body, err := o.postForm(ctx, "api key exchange", o.cfg.APIKeyURL, data)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: api key response is not valid JSON", ErrMalformedResponse)
	}
	key := gjson.GetBytes(body, o.cfg.APIKeyField)
	if !key.Exists() || key.Type != gjson.String || key.String() == "" {
		return "", fmt.Errorf("%w: api key response missing %q", ErrMalformedResponse, o.cfg.APIKeyField)
	}
	return key.String(), nil
}

// ExtractAccountID extracts the ChatGPT account ID from an access token.
// The token signature is not verified.
func (o *CodexAuth) ExtractAccountID(accessToken string) (string, error) {
	return ExtractAccountID(accessToken)
}

// postForm issues a form-encoded POST and returns the body of a 2xx response.
func (o *CodexAuth) postForm(ctx context.Context, op, endpoint string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "openai-auth/"+buildinfo.Version)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		exErr := &ExchangeError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
		if gjson.ValidBytes(body) {
			exErr.Code = gjson.GetBytes(body, "error").String()
			exErr.Description = gjson.GetBytes(body, "error_description").String()
		}
		log.Debugf("codex %s rejected with status %d", op, resp.StatusCode)
		return nil, exErr
	}
	return body, nil
}

func (o *CodexAuth) parseTokenResponse(body []byte) (*TokenSet, error) {
	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %q has wrong type", ErrMalformedResponse, typeErr.Field)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedResponse)
	}
	if tokenResp.ExpiresIn != nil && *tokenResp.ExpiresIn > maxExpiresIn {
		return nil, fmt.Errorf("%w: expires_in %d out of range", ErrMalformedResponse, *tokenResp.ExpiresIn)
	}
	return newTokenSet(&tokenResp, o.now()), nil
}
