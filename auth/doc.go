// Package auth handles GitHub access tokens stored with accounts.
//
// Tokens are opaque to ghswitch; they are only sent to the GitHub API.
// This package classifies them by prefix, checks their shape before they
// are saved, and renders them safely for display:
//
//	if err := auth.ValidateTokenFormat(tok); err != nil {
//	    return err
//	}
//	fmt.Println(auth.MaskToken(tok), auth.TokenFingerprint(tok))
//
// The SSH side of authentication lives in the ssh subpackage.
package auth
