package codex

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierEntropyBytes yields a 128 character verifier, the RFC 7636 maximum.
	verifierEntropyBytes = 96
	// minVerifierEntropyBytes yields a 43 character verifier, the RFC 7636 minimum.
	minVerifierEntropyBytes = 32
	// stateEntropyBytes is the number of random bytes behind the anti-CSRF state.
	stateEntropyBytes = 32
)

// GeneratePKCECodes generates a new pair of PKCE (Proof Key for Code Exchange) codes.
// It creates a cryptographically random code verifier and its corresponding
// SHA256 code challenge, as specified in RFC 7636.
func GeneratePKCECodes() (*PKCECodes, error) {
	bytes := make([]byte, verifierEntropyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return PKCECodesFromBytes(bytes)
}

// PKCECodesFromBytes derives a PKCE pair from caller supplied entropy.
// The result is deterministic for the same input. Between 32 and 96 bytes are
// accepted so the encoded verifier stays within the 43-128 character range.
func PKCECodesFromBytes(entropy []byte) (*PKCECodes, error) {
	if len(entropy) < minVerifierEntropyBytes || len(entropy) > verifierEntropyBytes {
		return nil, fmt.Errorf("pkce entropy must be %d-%d bytes, got %d", minVerifierEntropyBytes, verifierEntropyBytes, len(entropy))
	}
	codeVerifier := base64.RawURLEncoding.EncodeToString(entropy)
	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: generateCodeChallenge(codeVerifier),
	}, nil
}

// generateCodeChallenge creates a code challenge from a given code verifier
// using the S256 method: base64url(sha256(ascii(verifier))) without padding.
func generateCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateRandomState generates a cryptographically secure random state parameter
// for OAuth2 flows to prevent CSRF attacks. The value is URL-safe and opaque.
func GenerateRandomState() (string, error) {
	bytes := make([]byte, stateEntropyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
