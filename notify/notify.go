package notify

import (
	"context"
	"time"
)

// =============================================================================
// Notification Types
// =============================================================================

// EventType represents the kind of change that happened.
type EventType string

// Event type constants.
const (
	EventAccountAdded     EventType = "account_added"
	EventAccountRemoved   EventType = "account_removed"
	EventAccountUpdated   EventType = "account_updated"
	EventOwnerMapped      EventType = "owner_mapped"
	EventRepoSwitched     EventType = "repo_switched"
	EventProjectCreated   EventType = "project_configured"
	EventRepoCreated      EventType = "github_repo_created"
	EventKeyGenerated     EventType = "key_generated"
	EventFixApplied       EventType = "fix_applied"
	EventBackupCreated    EventType = "backup_created"
	EventBackupRestored   EventType = "backup_restored"
	EventConfigReset      EventType = "config_reset"
	EventValidationFailed EventType = "validation_failed"
)

// Severity constants for notifications and validation findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Event describes a change to accounts, repositories or the SSH setup.
type Event struct {
	Type      EventType      `json:"type"`
	Account   string         `json:"account,omitempty"`
	Repo      string         `json:"repo,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"` // SeverityInfo, SeverityWarning, SeverityError
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEvent creates an info event stamped with the current time.
func NewEvent(typ EventType, account, message string) Event {
	return Event{
		Type:      typ,
		Account:   account,
		Message:   message,
		Severity:  SeverityInfo,
		Timestamp: time.Now().UTC(),
	}
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier sends notifications about events.
type Notifier interface {
	// Notify sends a notification. Implementations should be non-blocking
	// and handle errors gracefully (log, don't crash).
	Notify(ctx context.Context, event Event) error
}

// =============================================================================
// Context Injection
// =============================================================================

type serviceContextKey string

const notifierServiceKey serviceContextKey = "ghswitch.notifier"

// WithNotifier adds a Notifier to the context.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierServiceKey, n)
}

// NotifierFromContext extracts the Notifier from context.
// Returns nil if no notifier is configured.
func NotifierFromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierServiceKey).(Notifier); ok {
		return n
	}
	return nil
}

// Send delivers event to the context's notifier, if any. Delivery errors
// are returned for logging only.
func Send(ctx context.Context, event Event) error {
	n := NotifierFromContext(ctx)
	if n == nil {
		return nil
	}
	return n.Notify(ctx, event)
}
