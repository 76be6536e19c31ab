package auth

import (
	"fmt"
	"strings"
)

// DefaultDisplayPrefix is how many leading characters MaskToken keeps.
const DefaultDisplayPrefix = 8

// TokenKind names a GitHub token family.
type TokenKind string

// GitHub token families, identified by prefix.
const (
	TokenClassic     TokenKind = "classic personal access token"
	TokenFineGrained TokenKind = "fine-grained personal access token"
	TokenOAuth       TokenKind = "OAuth access token"
	TokenUserServer  TokenKind = "user-to-server token"
	TokenServer      TokenKind = "server-to-server token"
	TokenRefresh     TokenKind = "refresh token"
	TokenUnknown     TokenKind = "unknown"
)

var tokenPrefixes = []struct {
	prefix string
	kind   TokenKind
}{
	{"github_pat_", TokenFineGrained},
	{"ghp_", TokenClassic},
	{"gho_", TokenOAuth},
	{"ghu_", TokenUserServer},
	{"ghs_", TokenServer},
	{"ghr_", TokenRefresh},
}

// Kind classifies a token by its prefix.
func Kind(token string) TokenKind {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p.prefix) {
			return p.kind
		}
	}
	return TokenUnknown
}

// MaskToken returns the token's display prefix followed by "...".
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= DefaultDisplayPrefix {
		return strings.Repeat("*", len(token))
	}
	return token[:DefaultDisplayPrefix] + "..."
}

// ValidateTokenFormat checks that a token looks like a GitHub token:
// no whitespace, a known prefix, and a plausible length. Legacy
// 40-character hex tokens are accepted too.
func ValidateTokenFormat(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidToken)
	}
	if Kind(token) != TokenUnknown {
		if len(token) < 20 {
			return fmt.Errorf("%w: too short", ErrInvalidToken)
		}
		return nil
	}
	if len(token) == 40 && isHex(token) {
		return nil
	}
	return fmt.Errorf("%w: unrecognized prefix", ErrInvalidToken)
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
