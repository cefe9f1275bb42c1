package cmd

import (
	"fmt"
	"io"
	"time"

	sdkAuth "github.com/router-for-me/openai-auth/sdk/auth"
	"github.com/tidwall/sjson"
)

// writeResult prints a login or refresh result, as JSON or as text.
func writeResult(w io.Writer, result *sdkAuth.LoginResult, asJSON bool) error {
	if asJSON {
		doc, err := resultJSON(result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, doc)
		return err
	}

	tokens := result.Tokens
	_, _ = fmt.Fprintf(w, "access_token:  %s\n", tokens.AccessToken)
	if tokens.RefreshToken != "" {
		_, _ = fmt.Fprintf(w, "refresh_token: %s\n", tokens.RefreshToken)
	}
	if tokens.APIKey != "" {
		_, _ = fmt.Fprintf(w, "api_key:       %s\n", tokens.APIKey)
	}
	if result.AccountID != "" {
		_, _ = fmt.Fprintf(w, "account_id:    %s\n", result.AccountID)
	}
	if result.Email != "" {
		_, _ = fmt.Fprintf(w, "email:         %s\n", result.Email)
	}
	if expiresAt, ok := tokens.ExpiresAt(); ok {
		_, _ = fmt.Fprintf(w, "expires_at:    %s\n", expiresAt.Format(time.RFC3339))
	}
	return nil
}

// resultJSON renders the result with sjson. Optional fields are omitted when empty.
func resultJSON(result *sdkAuth.LoginResult) (string, error) {
	tokens := result.Tokens
	doc := "{}"
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}

	set("access_token", tokens.AccessToken)
	for _, field := range [][2]string{
		{"refresh_token", tokens.RefreshToken},
		{"id_token", tokens.IDToken},
		{"api_key", tokens.APIKey},
		{"account_id", result.AccountID},
		{"email", result.Email},
		{"plan_type", result.PlanType},
	} {
		if field[1] != "" {
			set(field[0], field[1])
		}
	}
	set("issued_at", tokens.IssuedAt.UTC().Format(time.RFC3339))
	if tokens.ExpiresIn > 0 {
		set("expires_in", tokens.ExpiresIn)
	}
	if expiresAt, ok := tokens.ExpiresAt(); ok {
		set("expires_at", expiresAt.UTC().Format(time.RFC3339))
	}
	if tokens.APIKeyErr != nil {
		set("api_key_error", tokens.APIKeyErr.Error())
	}
	if err != nil {
		return "", fmt.Errorf("render result: %w", err)
	}
	return doc, nil
}

func writeJSONField(options *LoginOptions, key, value string) int {
	doc, err := sjson.Set("{}", key, value)
	if err != nil {
		return reportError(options.stderr(), "Failed to write result", err)
	}
	_, _ = fmt.Fprintln(options.stdout(), doc)
	return ExitOK
}
