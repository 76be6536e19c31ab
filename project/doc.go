// Package project rebinds local repositories to managed accounts.
//
// Switch points an existing origin at an account's SSH alias and sets the
// repository-local identity. ConfigureNewProject does the same for a
// repository with no origin and can create the repository on GitHub.
// Both record the owner mapping so later scans classify HTTPS remotes
// for the same owner.
package project
