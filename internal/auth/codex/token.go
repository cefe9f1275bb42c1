package codex

import (
	"math"
	"time"

	"golang.org/x/oauth2"
)

// ExpirySafetyMargin is subtracted from the expiry instant so a token is reported
// expired slightly early, covering the gap between checking and using it.
const ExpirySafetyMargin = 30 * time.Second

// NeverExpires is what Remaining reports for a token without an expiry.
const NeverExpires time.Duration = -1

// maxExpiresIn is the largest lifetime in seconds that fits a time.Duration.
const maxExpiresIn = math.MaxInt64 / int64(time.Second)

// TokenSet is the result of a code, refresh or API key exchange.
type TokenSet struct {
	// AccessToken is the OAuth2 access token used for authenticating API requests.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens. Empty when not issued.
	RefreshToken string `json:"refresh_token,omitempty"`
	// IDToken is the JWT ID token containing user claims. Empty when not issued.
	IDToken string `json:"id_token,omitempty"`
	// APIKey is the OpenAI API key obtained from the ID token exchange, if requested.
	APIKey string `json:"api_key,omitempty"`
	// IssuedAt is when the token response was received.
	IssuedAt time.Time `json:"issued_at"`
	// ExpiresIn is the lifetime in seconds reported by the server. Zero means the
	// server reported none and the token is treated as never expiring.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// APIKeyErr records why the API key could not be obtained by
	// ExchangeCodeForAPIKey. The other fields remain valid when it is set.
	APIKeyErr error `json:"-"`
}

// ExpiresAt returns the expiry instant and false when the token never expires.
func (t *TokenSet) ExpiresAt() (time.Time, bool) {
	if t.ExpiresIn <= 0 {
		return time.Time{}, false
	}
	return t.IssuedAt.Add(time.Duration(min(t.ExpiresIn, maxExpiresIn)) * time.Second), true
}

// IsExpired reports whether the access token is expired or within
// ExpirySafetyMargin of expiring.
func (t *TokenSet) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt is IsExpired evaluated at now.
func (t *TokenSet) IsExpiredAt(now time.Time) bool {
	expiresAt, ok := t.ExpiresAt()
	if !ok {
		return false
	}
	return !now.Before(expiresAt.Add(-ExpirySafetyMargin))
}

// Remaining returns the time left before expiry at now, zero when already expired.
// Tokens without expiry report NeverExpires.
func (t *TokenSet) Remaining(now time.Time) time.Duration {
	expiresAt, ok := t.ExpiresAt()
	if !ok {
		return NeverExpires
	}
	if d := expiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// OAuth2Token converts the set to an *oauth2.Token. The ID token and API key are
// available through Extra("id_token") and Extra("api_key").
func (t *TokenSet) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if expiresAt, ok := t.ExpiresAt(); ok {
		tok.Expiry = expiresAt
	}
	extra := map[string]any{}
	if t.IDToken != "" {
		extra["id_token"] = t.IDToken
	}
	if t.APIKey != "" {
		extra["api_key"] = t.APIKey
	}
	if len(extra) > 0 {
		tok = tok.WithExtra(extra)
	}
	return tok
}

func newTokenSet(resp *tokenResponse, issuedAt time.Time) *TokenSet {
	ts := &TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		IDToken:      resp.IDToken,
		IssuedAt:     issuedAt,
	}
	if resp.ExpiresIn != nil && *resp.ExpiresIn > 0 {
		ts.ExpiresIn = *resp.ExpiresIn
	}
	return ts
}
