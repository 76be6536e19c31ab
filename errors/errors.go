package errors

import "errors"

// Sentinels for conditions that are not owned by a domain package.
var (
	// ErrNotAuthenticated indicates GitHub rejected or was never given a token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConnectionFailed indicates GitHub is unreachable.
	ErrConnectionFailed = errors.New("connection failed")
)
