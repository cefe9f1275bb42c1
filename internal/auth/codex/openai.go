package codex

import "fmt"

// PKCECodes holds the verification codes for the OAuth2 PKCE (Proof Key for Code Exchange) flow.
// PKCE is an extension to the Authorization Code flow to prevent authorization code injection attacks.
type PKCECodes struct {
	// CodeVerifier is the cryptographically random string used to correlate
	// the authorization request to the token request
	CodeVerifier string `json:"code_verifier"`
	// CodeChallenge is the SHA256 hash of the code verifier, base64url-encoded
	CodeChallenge string `json:"code_challenge"`
}

// Flow is the state of one authentication attempt. The caller keeps it until the
// authorization code has been exchanged.
//
// A Flow is single-use: exchanging a second code with the same verifier, or
// validating a second callback against the same state, is undefined behaviour.
// Flows must never be persisted; the verifier is a secret.
type Flow struct {
	// AuthorizationURL is the URL the user must visit in a browser.
	AuthorizationURL string
	// CodeVerifier is the PKCE verifier to present at exchange time.
	CodeVerifier string
	// CodeChallenge is the S256 challenge embedded in AuthorizationURL.
	CodeChallenge string
	// State is the anti-CSRF value the callback must echo back exactly.
	State string
}

// String implements fmt.Stringer without revealing the verifier.
func (f *Flow) String() string {
	if f == nil {
		return "<nil flow>"
	}
	return fmt.Sprintf("Flow{AuthorizationURL: %s, CodeVerifier: [redacted], State: %s}", f.AuthorizationURL, f.State)
}

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    *int64 `json:"expires_in"`
}
