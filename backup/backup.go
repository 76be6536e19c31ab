package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/moby/sys/atomicwriter"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/notify"
)

// File names inside a backup directory.
const (
	manifestFile  = "manifest.json"
	registryFile  = "registry.json"
	sshConfigFile = "ssh_config"
	keysDir       = "keys"
)

// PreRestoreDescription labels the automatic backup taken by Restore.
const PreRestoreDescription = "Before restore"

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 6
	idTimeFmt  = "20060102-150405"
	lockRetry  = 50 * time.Millisecond
)

// Backup errors.
var (
	// ErrNotFound indicates no backup has the requested ID.
	ErrNotFound = errors.New("backup not found")

	// ErrNoBackups indicates the backup directory holds no backups.
	ErrNoBackups = errors.New("no backups available")
)

// KeyFile records where a backed-up key came from.
type KeyFile struct {
	Account  string `json:"account"`
	Original string `json:"original"`
	Stored   string `json:"stored"`
	Private  bool   `json:"private"`
}

// Info is the manifest of one backup.
type Info struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
	Accounts    int       `json:"accounts"`
	Registry    bool      `json:"registry"`
	SSHConfig   bool      `json:"ssh_config"`
	Keys        []KeyFile `json:"keys,omitempty"`

	// Dir is the backup directory; not persisted.
	Dir string `json:"-"`
}

// Manager creates, lists and restores backups.
type Manager struct {
	dir           string
	registryPath  string
	sshConfigPath string
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager storing backups in dir.
func NewManager(dir, registryPath, sshConfigPath string, opts ...Option) *Manager {
	m := &Manager{
		dir:           dir,
		registryPath:  registryPath,
		sshConfigPath: sshConfigPath,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the backup root.
func (m *Manager) Dir() string {
	return m.dir
}

// Create backs up the registry document, the SSH config and the key
// files of every account in snap. Missing files are skipped.
func (m *Manager) Create(ctx context.Context, description string, snap account.Snapshot) (Info, error) {
	created := m.now().UTC()
	suffix, err := nanoid.Generate(idAlphabet, idLength)
	if err != nil {
		return Info{}, fmt.Errorf("generate backup id: %w", err)
	}

	info := Info{
		ID:          created.Format(idTimeFmt) + "-" + suffix,
		CreatedAt:   created,
		Description: description,
		Accounts:    snap.Len(),
	}
	info.Dir = filepath.Join(m.dir, info.ID)

	if err := os.MkdirAll(filepath.Join(info.Dir, keysDir), 0o700); err != nil {
		return Info{}, fmt.Errorf("create backup directory: %w", err)
	}

	if info.Registry, err = copyIfExists(m.registryPath, filepath.Join(info.Dir, registryFile)); err != nil {
		return Info{}, err
	}
	if info.SSHConfig, err = copyIfExists(m.sshConfigPath, filepath.Join(info.Dir, sshConfigFile)); err != nil {
		return Info{}, err
	}

	n := 0
	for _, a := range snap.Accounts() {
		for _, k := range []struct {
			path    string
			private bool
		}{{a.SSHKeyPath, true}, {a.PublicKeyPath(), false}} {
			stored := filepath.Join(keysDir, strconv.Itoa(n)+"_"+filepath.Base(k.path))
			ok, err := copyIfExists(k.path, filepath.Join(info.Dir, stored))
			if err != nil {
				return Info{}, err
			}
			if !ok {
				m.logger.Warn("key file missing, not backed up", "account", a.Name, "path", k.path)
				continue
			}
			info.Keys = append(info.Keys, KeyFile{Account: a.Name, Original: k.path, Stored: stored, Private: k.private})
			n++
		}
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := atomicwriter.WriteFile(filepath.Join(info.Dir, manifestFile), append(data, '\n'), 0o600); err != nil {
		return Info{}, fmt.Errorf("write manifest: %w", err)
	}

	m.logger.Info("backup created", "id", info.ID, "accounts", info.Accounts, "keys", len(info.Keys))
	ev := notify.NewEvent(notify.EventBackupCreated, "", "backup "+info.ID+" created")
	ev.Metadata = map[string]any{"id": info.ID, "description": description}
	m.send(ctx, ev)
	return info, nil
}

// List returns all readable backups, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := m.read(e.Name())
		if err != nil {
			m.logger.Debug("skipping unreadable backup", "dir", e.Name(), "error", err)
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID > infos[j].ID
	})
	return infos, nil
}

// Get returns the backup with the given ID. A unique ID prefix is
// accepted, and "latest" selects the newest backup.
func (m *Manager) Get(id string) (Info, error) {
	infos, err := m.List()
	if err != nil {
		return Info{}, err
	}
	if len(infos) == 0 {
		return Info{}, ErrNoBackups
	}
	if id == "latest" {
		return infos[0], nil
	}

	var match []Info
	for _, info := range infos {
		if info.ID == id {
			return info, nil
		}
		if strings.HasPrefix(info.ID, id) {
			match = append(match, info)
		}
	}
	if len(match) == 1 {
		return match[0], nil
	}
	if len(match) > 1 {
		return Info{}, fmt.Errorf("%w: %q matches %d backups", ErrNotFound, id, len(match))
	}
	return Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Restore takes a "Before restore" backup of the current state, then
// copies the backed-up files back into place. Private keys are restored
// with mode 0600. Callers must reload the registry afterwards.
func (m *Manager) Restore(ctx context.Context, id string, current account.Snapshot) (Info, error) {
	info, err := m.Get(id)
	if err != nil {
		return Info{}, err
	}

	if _, err := m.Create(ctx, PreRestoreDescription, current); err != nil {
		return Info{}, fmt.Errorf("backup current state: %w", err)
	}

	if info.Registry {
		if err := m.restoreRegistry(ctx, filepath.Join(info.Dir, registryFile)); err != nil {
			return Info{}, err
		}
	}
	if info.SSHConfig {
		if err := os.MkdirAll(filepath.Dir(m.sshConfigPath), 0o700); err != nil {
			return Info{}, fmt.Errorf("create ssh directory: %w", err)
		}
		if err := copyFile(filepath.Join(info.Dir, sshConfigFile), m.sshConfigPath, 0o600); err != nil {
			return Info{}, err
		}
	}
	for _, k := range info.Keys {
		mode := fs.FileMode(0o644)
		if k.Private {
			mode = 0o600
		}
		if err := os.MkdirAll(filepath.Dir(k.Original), 0o700); err != nil {
			return Info{}, fmt.Errorf("create key directory: %w", err)
		}
		if err := copyFile(filepath.Join(info.Dir, k.Stored), k.Original, mode); err != nil {
			return Info{}, err
		}
		if k.Private && runtime.GOOS != "windows" {
			if err := os.Chmod(k.Original, 0o600); err != nil {
				return Info{}, fmt.Errorf("chmod %s: %w", k.Original, err)
			}
		}
	}

	m.logger.Info("backup restored", "id", info.ID)
	ev := notify.NewEvent(notify.EventBackupRestored, "", "backup "+info.ID+" restored")
	ev.Severity = notify.SeverityWarning
	ev.Metadata = map[string]any{"id": info.ID}
	m.send(ctx, ev)
	return info, nil
}

// restoreRegistry writes the registry document under the same advisory
// lock the registry uses for its own saves.
func (m *Manager) restoreRegistry(ctx context.Context, src string) error {
	if err := os.MkdirAll(filepath.Dir(m.registryPath), 0o700); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	lock := flock.New(m.registryPath + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock registry %s: held by another process", m.registryPath)
	}
	defer lock.Unlock()

	return copyFile(src, m.registryPath, 0o600)
}

func (m *Manager) read(id string) (Info, error) {
	dir := filepath.Join(m.dir, id)
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parse manifest: %w", err)
	}
	info.ID = id
	info.Dir = dir
	return info, nil
}

func (m *Manager) send(ctx context.Context, ev notify.Event) {
	if err := notify.Send(ctx, ev); err != nil {
		m.logger.Warn("notification failed", "event", ev.Type, "error", err)
	}
}

// copyIfExists copies src to dst with mode 0600 and reports whether src
// existed.
func copyIfExists(src, dst string) (bool, error) {
	if src == "" {
		return false, nil
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := copyFile(src, dst, 0o600); err != nil {
		return false, err
	}
	return true, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := atomicwriter.WriteFile(dst, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
