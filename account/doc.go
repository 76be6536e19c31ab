// Package account holds the GitHub identities managed by ghswitch and
// keeps the SSH config in step with them.
//
// A Registry is the single owner of account state. Add and Remove write
// the matching "Host github.com-<alias>" block through a HostFile and then
// persist the JSON document; if either write fails the in-memory change
// and the SSH config text are rolled back, so the registry and the SSH
// config never diverge after a successful call.
//
// Scans and validation read a Snapshot, an immutable copy taken on the
// primary goroutine.
package account
