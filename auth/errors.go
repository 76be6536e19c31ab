package auth

import "errors"

// ErrInvalidToken indicates the token does not look like a GitHub token.
var ErrInvalidToken = errors.New("invalid GitHub token")
