package codex

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// RefreshingTokenSource adapts a TokenSet to golang.org/x/oauth2. It serves the
// current access token and refreshes it through RefreshToken once IsExpired
// reports true. Each refresh is a single attempt; failures go to the caller.
type RefreshingTokenSource struct {
	auth *CodexAuth
	ctx  context.Context

	mu      sync.Mutex
	current *TokenSet
}

var _ oauth2.TokenSource = (*RefreshingTokenSource)(nil)

// TokenSource returns a RefreshingTokenSource seeded with tokens. ctx is used for
// refresh requests. Wrap it with oauth2.NewClient to get an authenticated client.
func (o *CodexAuth) TokenSource(ctx context.Context, tokens *TokenSet) *RefreshingTokenSource {
	return &RefreshingTokenSource{auth: o, ctx: ctx, current: tokens}
}

// Token returns a valid token, refreshing when necessary.
func (s *RefreshingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.AccessToken != "" && !s.current.IsExpiredAt(s.auth.now()) {
		return s.current.OAuth2Token(), nil
	}

	refreshToken := ""
	if s.current != nil {
		refreshToken = s.current.RefreshToken
	}
	next, err := s.auth.RefreshToken(s.ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if next.IDToken == "" && s.current != nil {
		next.IDToken = s.current.IDToken
	}
	if next.APIKey == "" && s.current != nil {
		next.APIKey = s.current.APIKey
	}
	s.current = next
	return next.OAuth2Token(), nil
}

// Current returns the most recent TokenSet, including a rotated refresh token.
func (s *RefreshingTokenSource) Current() *TokenSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
