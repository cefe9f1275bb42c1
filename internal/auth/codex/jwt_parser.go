package codex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// OpenAIAuthClaim is the namespaced claim holding Codex account details.
const OpenAIAuthClaim = "https://api.openai.com/auth"

// segmentDecoder decodes base64url JWT segments, tolerating padding.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// Claims is the decoded payload of a JWT. Unknown claims are kept and ignored.
// The standard registered-claim helpers (GetExpirationTime, GetSubject, ...)
// come from jwt.MapClaims.
type Claims struct {
	jwt.MapClaims
}

// CodexAuthInfo contains authentication-related details specific to Codex.
type CodexAuthInfo struct {
	ChatgptAccountID string          `json:"chatgpt_account_id"`
	ChatgptPlanType  string          `json:"chatgpt_plan_type"`
	ChatgptUserID    string          `json:"chatgpt_user_id"`
	UserID           string          `json:"user_id"`
	Organizations    []Organizations `json:"organizations"`
}

// Organizations holds information about one organization the user belongs to.
type Organizations struct {
	ID        string `json:"id"`
	IsDefault bool   `json:"is_default"`
	Role      string `json:"role"`
	Title     string `json:"title"`
}

// ParseClaims decodes the payload segment of a compact JWT.
//
// THE SIGNATURE IS NOT VERIFIED. The returned claims are only as trustworthy as
// the channel the token arrived on; never use them for authorization decisions.
func ParseClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	payload, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode payload: %v", ErrMalformedToken, err)
	}

	claims := jwt.MapClaims{}
	if err = json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal payload: %v", ErrMalformedToken, err)
	}
	return &Claims{MapClaims: claims}, nil
}

// ExtractClaim returns a single claim from a token without verifying it.
func ExtractClaim(token, name string) (any, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	return claims.Claim(name)
}

// ExtractAccountID returns the ChatGPT account identifier carried by an access
// or ID token. The signature is not verified.
func ExtractAccountID(token string) (string, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.AccountID()
}

// Claim returns the named top-level claim or ErrClaimNotFound.
func (c *Claims) Claim(name string) (any, error) {
	v, ok := c.MapClaims[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrClaimNotFound, name)
	}
	return v, nil
}

// StringClaim returns the named claim as a string. Non-string values are ErrClaimNotFound.
func (c *Claims) StringClaim(name string) (string, error) {
	v, err := c.Claim(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s is not a string", ErrClaimNotFound, name)
	}
	return s, nil
}

// AuthInfo decodes the namespaced Codex claim.
func (c *Claims) AuthInfo() (*CodexAuthInfo, error) {
	raw, err := c.Claim(OpenAIAuthClaim)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var info CodexAuthInfo
	if err = json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedToken, OpenAIAuthClaim, err)
	}
	return &info, nil
}

// AccountID extracts the ChatGPT account ID from the namespaced claim, falling
// back to a top-level account_id claim.
func (c *Claims) AccountID() (string, error) {
	if info, err := c.AuthInfo(); err == nil && info.ChatgptAccountID != "" {
		return info.ChatgptAccountID, nil
	}
	if id, err := c.StringClaim("account_id"); err == nil {
		return id, nil
	}
	return "", fmt.Errorf("%w: chatgpt_account_id", ErrClaimNotFound)
}

// Email returns the email claim, empty when absent.
func (c *Claims) Email() string {
	email, _ := c.StringClaim("email")
	return email
}

// PlanType returns the ChatGPT plan type, empty when absent.
func (c *Claims) PlanType() string {
	if info, err := c.AuthInfo(); err == nil {
		return strings.TrimSpace(info.ChatgptPlanType)
	}
	return ""
}
