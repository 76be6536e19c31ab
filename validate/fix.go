package validate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/randalmurphal/ghswitch/notify"
)

// ErrNotFixable is returned by AutoFix for findings without a repair.
var ErrNotFixable = errors.New("finding cannot be fixed automatically")

// FixResult reports the outcome of one repair.
type FixResult struct {
	Finding Finding
	Fixed   bool
	Message string
	Err     error
}

// AutoFix applies the repair named by the finding's Action. It touches
// only the filesystem and ssh-agent.
func (v *Validator) AutoFix(ctx context.Context, f Finding) error {
	if !f.Fixable() {
		return ErrNotFixable
	}

	var err error
	switch f.Action {
	case ActionCreateSSHDir:
		err = os.MkdirAll(f.Target, sshDirMode)
		if err == nil && !v.skipPermissions {
			// MkdirAll is subject to umask.
			err = os.Chmod(f.Target, sshDirMode)
		}
	case ActionChmodSSHDir:
		err = v.chmod(f.Target, sshDirMode)
	case ActionChmodKey:
		err = v.chmod(f.Target, privateKeyMode)
	case ActionAgentAdd:
		err = v.loader.AddToAgent(ctx, f.Target)
	default:
		return ErrNotFixable
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", f.Action, f.Target, err)
	}

	ev := notify.NewEvent(notify.EventFixApplied, f.Account, f.Message)
	ev.Metadata = map[string]any{"action": string(f.Action), "target": f.Target}
	if err := notify.Send(ctx, ev); err != nil {
		v.logger.Warn("notification failed", "event", ev.Type, "error", err)
	}
	return nil
}

func (v *Validator) chmod(path string, mode os.FileMode) error {
	if v.skipPermissions {
		return ErrNotFixable
	}
	return os.Chmod(path, mode)
}

// AutoFixAll attempts every fixable finding and reports each outcome.
// Failures are recorded in the results and never returned.
func (v *Validator) AutoFixAll(ctx context.Context, findings []Finding) []FixResult {
	var results []FixResult
	for _, f := range findings {
		if !f.Fixable() {
			continue
		}
		res := FixResult{Finding: f}
		if err := v.AutoFix(ctx, f); err != nil {
			v.logger.Debug("auto-fix failed", "action", f.Action, "target", f.Target, "error", err)
			res.Err = err
			res.Message = f.Message + " could not be automatically fixed: " + f.Fix
		} else {
			res.Fixed = true
			res.Message = "Fixed: " + f.Message
		}
		results = append(results, res)
	}
	return results
}

// CountFixed returns how many results succeeded.
func CountFixed(results []FixResult) int {
	n := 0
	for _, r := range results {
		if r.Fixed {
			n++
		}
	}
	return n
}
