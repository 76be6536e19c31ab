package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/notify"
)

// ResetDescription labels the automatic backup taken by Reset.
const ResetDescription = "Before emergency reset"

// asideSuffix is appended to the SSH config path when Reset moves it away.
const asideSuffix = ".backup"

// Resettable is the part of the account registry Reset clears.
type Resettable interface {
	Snapshot() account.Snapshot
	Reset(ctx context.Context) error
}

// ResetResult describes a completed emergency reset.
type ResetResult struct {
	Backup Info
	// SSHConfigAside is where the SSH config was moved; "" when there
	// was none.
	SSHConfigAside string
}

// Reset backs up the current state, moves the SSH config aside and
// clears the registry. Key files stay where they are. When the registry
// cannot be cleared the SSH config is moved back.
func (m *Manager) Reset(ctx context.Context, reg Resettable) (ResetResult, error) {
	info, err := m.Create(ctx, ResetDescription, reg.Snapshot())
	if err != nil {
		return ResetResult{}, fmt.Errorf("backup current state: %w", err)
	}
	res := ResetResult{Backup: info}

	aside := m.sshConfigPath + asideSuffix
	if m.sshConfigPath != "" {
		err := os.Rename(m.sshConfigPath, aside)
		switch {
		case err == nil:
			res.SSHConfigAside = aside
		case !errors.Is(err, fs.ErrNotExist):
			return res, fmt.Errorf("move ssh config aside: %w", err)
		}
	}

	if err := reg.Reset(ctx); err != nil {
		if res.SSHConfigAside != "" {
			if rbErr := os.Rename(aside, m.sshConfigPath); rbErr != nil {
				m.logger.Error("put ssh config back after failed reset", "error", rbErr, "reset_error", err)
			}
		}
		return ResetResult{Backup: info}, fmt.Errorf("clear registry: %w", err)
	}

	m.logger.Warn("configuration reset", "backup", info.ID, "ssh_config_aside", res.SSHConfigAside)
	ev := notify.NewEvent(notify.EventConfigReset, "", "configuration reset, backup "+info.ID)
	ev.Severity = notify.SeverityWarning
	ev.Metadata = map[string]any{"backup": info.ID}
	m.send(ctx, ev)
	return res, nil
}
