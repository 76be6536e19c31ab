package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

var severityLevels = map[string]slog.Level{
	SeverityInfo:    slog.LevelInfo,
	SeverityWarning: slog.LevelWarn,
	SeverityError:   slog.LevelError,
}

// LogNotifier writes events to a structured logger. It never fails.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier returns a LogNotifier; nil means slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	level, ok := severityLevels[event.Severity]
	if !ok {
		level = slog.LevelInfo
	}
	n.Logger.LogAttrs(ctx, level, event.Message, eventAttrs(event)...)
	return nil
}

func eventAttrs(event Event) []slog.Attr {
	attrs := []slog.Attr{slog.String("type", string(event.Type))}
	if event.Account != "" {
		attrs = append(attrs, slog.String("account", event.Account))
	}
	if event.Repo != "" {
		attrs = append(attrs, slog.String("repo", event.Repo))
	}
	if len(event.Metadata) > 0 {
		meta := make([]any, 0, len(event.Metadata))
		for _, k := range slices.Sorted(maps.Keys(event.Metadata)) {
			meta = append(meta, slog.Any(k, event.Metadata[k]))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}
	return attrs
}

// Fanout delivers each event to every notifier in order. A failing
// notifier is logged and does not stop the rest.
type Fanout struct {
	notifiers []Notifier
	Logger    *slog.Logger
}

// NewFanout drops nil notifiers.
func NewFanout(notifiers ...Notifier) *Fanout {
	f := &Fanout{Logger: slog.Default()}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Notify implements Notifier. The result joins every delivery error.
func (f *Fanout) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range f.notifiers {
		err := n.Notify(ctx, event)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if f.Logger != nil {
			f.Logger.LogAttrs(ctx, slog.LevelWarn, "notifier failed",
				slog.String("notifier", fmt.Sprintf("%T", n)),
				slog.String("event_type", string(event.Type)),
				slog.Any("error", err))
		}
	}
	return errors.Join(errs...)
}
