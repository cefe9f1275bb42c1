// Package misc holds small helpers for the interactive login: parsing a redirect
// URL the user pasted by hand when the local callback listener is unreachable.
package misc

import (
	"fmt"
	"net/url"
	"strings"
)

// OAuthCallback captures the parsed OAuth callback parameters.
type OAuthCallback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Query returns the parameters as a redirect query, suitable for the same
// decision table the callback listener applies.
func (c *OAuthCallback) Query() url.Values {
	q := url.Values{}
	if c == nil {
		return q
	}
	for key, value := range map[string]string{
		"code":              c.Code,
		"state":             c.State,
		"error":             c.Error,
		"error_description": c.ErrorDescription,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q
}

// ParseOAuthCallback extracts OAuth parameters from a pasted callback URL. It
// accepts a full URL, a host/path without scheme, a bare "?query" or "k=v&..."
// string. Parameters in the fragment fill in ones missing from the query.
// It returns nil, nil when the input is empty.
func ParseOAuthCallback(input string) (*OAuthCallback, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		switch {
		case strings.HasPrefix(candidate, "?"):
			candidate = "http://localhost/" + candidate
		case strings.ContainsAny(candidate, "/?#") || strings.Contains(candidate, ":"):
			candidate = "http://" + candidate
		case strings.Contains(candidate, "="):
			candidate = "http://localhost/?" + candidate
		default:
			return nil, fmt.Errorf("invalid callback URL")
		}
	}

	parsedURL, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("invalid callback URL: %w", err)
	}

	query := parsedURL.Query()
	if parsedURL.Fragment != "" {
		if fragQuery, errFrag := url.ParseQuery(parsedURL.Fragment); errFrag == nil {
			for key := range fragQuery {
				if strings.TrimSpace(query.Get(key)) == "" {
					query.Set(key, fragQuery.Get(key))
				}
			}
		}
	}

	cb := &OAuthCallback{
		Code:             strings.TrimSpace(query.Get("code")),
		State:            strings.TrimSpace(query.Get("state")),
		Error:            strings.TrimSpace(query.Get("error")),
		ErrorDescription: strings.TrimSpace(query.Get("error_description")),
	}

	// some terminals mangle "&state=" into "#"
	if cb.Code != "" && cb.State == "" && strings.Contains(cb.Code, "#") {
		parts := strings.SplitN(cb.Code, "#", 2)
		cb.Code, cb.State = parts[0], parts[1]
	}

	if cb.Error == "" && cb.ErrorDescription != "" {
		cb.Error, cb.ErrorDescription = cb.ErrorDescription, ""
	}
	if cb.Code == "" && cb.Error == "" {
		return nil, fmt.Errorf("callback URL missing code")
	}
	return cb, nil
}
