package errors

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/randalmurphal/ghswitch/auth"
	"github.com/randalmurphal/ghswitch/ghapi"
	"github.com/randalmurphal/ghswitch/runner"
)

// IsAuthError checks if an error is token-related.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ghapi.ErrUnauthorized) ||
		errors.Is(err, ghapi.ErrTokenRequired) ||
		errors.Is(err, auth.ErrInvalidToken) {
		return true
	}

	var apiErr *ghapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
		return true
	}
	return false
}

// IsConnectionError checks if an error is connection-related.
// This includes DNS failures, refused connections and timeouts.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrConnectionFailed) || IsTimeoutError(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "could not resolve hostname") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "connection timed out") ||
		strings.Contains(errStr, "dial tcp")
}

// IsTimeoutError checks if an error means something ran out of time.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, runner.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}

// IsPermissionError checks if an error is permission-related.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, fs.ErrPermission) {
		return true
	}

	var apiErr *ghapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 403 {
		return true
	}
	return false
}
