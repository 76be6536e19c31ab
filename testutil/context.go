package testutil

import (
	"context"
	"testing"
	"time"
)

// commandBudget bounds tests that shell out to git or ssh-keygen so a hung
// subprocess fails the test instead of stalling the whole run.
const commandBudget = 30 * time.Second

// Context returns a context canceled at test cleanup. It expires after
// commandBudget, or earlier when the test binary's own deadline is closer.
func Context(t *testing.T) context.Context {
	t.Helper()

	budget := commandBudget
	if deadline, ok := t.Deadline(); ok {
		if left := time.Until(deadline); left < budget {
			budget = left
		}
	}
	return ContextTimeout(t, budget)
}

// ContextTimeout returns a context that expires after d.
func ContextTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
