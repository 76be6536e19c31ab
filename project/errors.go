package project

import "errors"

// Project errors.
var (
	// ErrInvalidRepoName indicates a repository name GitHub would reject.
	ErrInvalidRepoName = errors.New("invalid repository name")

	// ErrHasRemote indicates a new-project setup on a repository that
	// already has an origin.
	ErrHasRemote = errors.New("repository already has an origin remote")

	// ErrNoRemote indicates a switch on a repository without an origin.
	ErrNoRemote = errors.New("repository has no origin remote")

	// ErrNotGitHub indicates the origin is not a recognized GitHub URL.
	ErrNotGitHub = errors.New("origin is not a GitHub repository URL")
)
