// Package errors turns domain errors into CLI errors with user-friendly messaging.
//
// Core types:
//   - CLIError: Wraps errors with message, suggestion, and details
//   - ErrorMessenger: Interface for customizing error messages
//
// Wrap recognises the sentinels exported by the account, project, backup,
// ghapi, git, runner and auth/ssh packages and attaches an actionable
// suggestion. Errors it does not recognise are returned unchanged.
//
// Example usage:
//
//	if err := reg.Remove(ctx, alias); err != nil {
//	    return errors.Wrap(err)
//	}
//
//	if errors.IsTimeoutError(err) {
//	    // retry with a longer connect_timeout
//	}
package errors
