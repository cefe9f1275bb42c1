package codex

import (
	"fmt"
	"sort"

	"golang.org/x/oauth2"
)

// oauth2Config maps the Config onto golang.org/x/oauth2 for URL construction.
func (c *Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: c.RedirectURI(),
		Scopes:      c.Scopes,
	}
}

// BuildFlow constructs the authorization URL for the given PKCE pair and state.
// It performs no I/O and fails only on an invalid Config.
func BuildFlow(cfg *Config, pkceCodes *PKCECodes, state string) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pkceCodes == nil || pkceCodes.CodeVerifier == "" {
		return nil, fmt.Errorf("PKCE codes are required")
	}
	if state == "" {
		return nil, fmt.Errorf("state is required")
	}

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(pkceCodes.CodeVerifier)}
	if cfg.APIKeyAudience {
		opts = append(opts, oauth2.SetAuthURLParam("id_token_add_organizations", "true"))
	}
	keys := make([]string, 0, len(cfg.ExtraAuthParams))
	for k := range cfg.ExtraAuthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, cfg.ExtraAuthParams[k]))
	}

	return &Flow{
		AuthorizationURL: cfg.oauth2Config().AuthCodeURL(state, opts...),
		CodeVerifier:     pkceCodes.CodeVerifier,
		CodeChallenge:    pkceCodes.CodeChallenge,
		State:            state,
	}, nil
}

// StartFlow generates a fresh PKCE pair and state and returns the Flow the
// caller must keep until the code exchange.
func (o *CodexAuth) StartFlow() (*Flow, error) {
	pkceCodes, err := GeneratePKCECodes()
	if err != nil {
		return nil, err
	}
	state, err := GenerateRandomState()
	if err != nil {
		return nil, fmt.Errorf("codex state generation failed: %w", err)
	}
	return BuildFlow(o.cfg, pkceCodes, state)
}
