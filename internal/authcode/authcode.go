// Package authcode recognises the OAuth callback and pulls the single-use
// authorization code out of it.
package authcode

import (
	"net/url"
	"strings"
	"unicode"
)

// CallbackPath is the native callback path the authorization server
// redirects to once the user approves access.
const CallbackPath = "/oauth/authorize/native"

// ExtractCode returns the code carried by a callback URL. It reports false for
// every other URL, meaning navigation should simply continue.
func ExtractCode(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	return codeFromURL(u)
}

func codeFromURL(u *url.URL) (string, bool) {
	if u == nil || u.Path != CallbackPath {
		return "", false
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", false
	}
	return code, true
}

// ParseInput accepts what a user pastes after approving access in a browser:
// either the full callback URL or the bare code shown by the out-of-band page.
func ParseInput(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "/") {
		return ExtractCode(trimmed)
	}
	if strings.ContainsAny(trimmed, " \t/?&=") {
		return "", false
	}
	return trimmed, true
}

// AuthorizeParams describe the authorization page request.
type AuthorizeParams struct {
	Endpoint    string
	ClientID    string
	RedirectURI string
	Scope       string
}

// AuthorizeURL builds the page the user signs in on. Scopes are joined with a
// literal '+', which the service expects; each scope is query-escaped.
func AuthorizeURL(p AuthorizeParams) (string, error) {
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("client_id", p.ClientID)
	values.Set("redirect_uri", p.RedirectURI)
	values.Set("response_type", "code")
	query := values.Encode()
	if scope := encodeScope(p.Scope); scope != "" {
		query += "&scope=" + scope
	}
	u.RawQuery = query
	return u.String(), nil
}

// encodeScope accepts scopes separated by '+' or whitespace.
func encodeScope(scope string) string {
	parts := strings.FieldsFunc(scope, func(r rune) bool {
		return r == '+' || unicode.IsSpace(r)
	})
	for i, part := range parts {
		parts[i] = url.QueryEscape(part)
	}
	return strings.Join(parts, "+")
}
