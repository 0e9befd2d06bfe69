package gateway

import (
	"fmt"
	"net/url"
	"strings"
)

// Many providers need more than one wire-level identifier to act on a prior
// transaction (transaction id plus approval code, customer id plus card id).
// Adapters pack those into one opaque authorization string so callers can
// chain capture/void/refund without knowing the provider's vocabulary.
//
// Parts are percent-escaped before joining, so a provider identifier that
// happens to contain the delimiter still round-trips losslessly.

const authorizationDelimiter = "|"

// EncodeAuthorization joins wire-level identifiers into a single opaque
// authorization string.
func EncodeAuthorization(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.QueryEscape(p)
	}
	return strings.Join(escaped, authorizationDelimiter)
}

// DecodeAuthorization splits an authorization produced by
// EncodeAuthorization back into its parts, verifying the expected count.
func DecodeAuthorization(authorization string, n int) ([]string, error) {
	if authorization == "" {
		return nil, fmt.Errorf("authorization is required")
	}
	raw := strings.Split(authorization, authorizationDelimiter)
	if len(raw) != n {
		return nil, fmt.Errorf("malformed authorization: expected %d parts, got %d", n, len(raw))
	}
	parts := make([]string, len(raw))
	for i, p := range raw {
		unescaped, err := url.QueryUnescape(p)
		if err != nil {
			return nil, fmt.Errorf("malformed authorization part %d: %w", i, err)
		}
		parts[i] = unescaped
	}
	return parts, nil
}
