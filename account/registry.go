package account

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/randalmurphal/ghswitch/notify"
	"github.com/randalmurphal/ghswitch/sshconfig"
)

// HostFile is the SSH config the registry keeps in sync.
// *sshconfig.File implements it.
type HostFile interface {
	Exists() bool
	Load() (string, error)
	Save(text string) error
	Remove() error
}

// Registry owns the account map, the owner mappings and the last
// scanned path. It is safe for concurrent use, but mutations are meant
// to run on the primary goroutine.
type Registry struct {
	mu     sync.Mutex
	store  *Store
	hosts  HostFile
	logger *slog.Logger
	state  state
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for rollback and lookup warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns an empty registry persisted at path. Call Load to read
// existing state.
func New(path string, hosts HostFile, opts ...Option) *Registry {
	r := &Registry{
		store:  NewStore(path),
		hosts:  hosts,
		logger: slog.Default(),
		state: state{
			accounts: make(map[string]Account),
			owners:   make(map[string]string),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates a registry and loads it from path.
func Open(path string, hosts HostFile, opts ...Option) (*Registry, error) {
	r := New(path, hosts, opts...)
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the registry document path.
func (r *Registry) Path() string {
	return r.store.Path()
}

// Load replaces in-memory state with the document on disk. A missing
// document loads as an empty registry.
func (r *Registry) Load() error {
	st, err := r.store.load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
	return nil
}

// Save persists the current state.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.save(ctx, r.state)
}

// Add validates and registers a new account, then writes its SSH host
// block. Validation, duplicate and missing-key errors are returned before
// any side effect.
func (r *Registry) Add(ctx context.Context, n NewAccount) (Account, error) {
	if err := n.validate(); err != nil {
		return Account{}, err
	}

	acct, err := r.add(ctx, n)
	if err != nil {
		return Account{}, err
	}
	r.emit(ctx, notify.NewEvent(notify.EventAccountAdded, acct.Name, "account "+acct.Name+" added"))
	return acct, nil
}

func (r *Registry) add(ctx context.Context, n NewAccount) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.accounts[n.Name]; ok {
		return Account{}, fmt.Errorf("%w: %s", ErrDuplicateAlias, n.Name)
	}
	if _, err := os.Stat(n.SSHKeyPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Account{}, fmt.Errorf("%w: %s", ErrKeyNotFound, n.SSHKeyPath)
		}
		return Account{}, fmt.Errorf("stat ssh key %s: %w", n.SSHKeyPath, err)
	}

	acct := Account(n)
	prev := r.cloneState()
	r.state.accounts[acct.Name] = acct

	if err := r.commit(ctx, prev, func(text string) string {
		return sshconfig.UpsertBlock(text, acct.Name, acct.SSHKeyPath)
	}); err != nil {
		return Account{}, fmt.Errorf("add account %s: %w", acct.Name, err)
	}
	return acct, nil
}

// Remove deletes an account, its SSH host block and any owner mappings
// pointing at it. Key files are never touched.
func (r *Registry) Remove(ctx context.Context, alias string) error {
	if err := r.remove(ctx, alias); err != nil {
		return err
	}
	r.emit(ctx, notify.NewEvent(notify.EventAccountRemoved, alias, "account "+alias+" removed"))
	return nil
}

func (r *Registry) remove(ctx context.Context, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.accounts[alias]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, alias)
	}

	prev := r.cloneState()
	delete(r.state.accounts, alias)
	for owner, mapped := range r.state.owners {
		if mapped == alias {
			delete(r.state.owners, owner)
		}
	}

	if err := r.commit(ctx, prev, func(text string) string {
		return sshconfig.RemoveBlock(text, alias)
	}); err != nil {
		return fmt.Errorf("remove account %s: %w", alias, err)
	}
	return nil
}

// Update applies a partial update. The alias and key path cannot change.
func (r *Registry) Update(ctx context.Context, alias string, u Update) (Account, error) {
	if err := u.validate(); err != nil {
		return Account{}, err
	}

	acct, err := r.update(ctx, alias, u)
	if err != nil {
		return Account{}, err
	}
	r.emit(ctx, notify.NewEvent(notify.EventAccountUpdated, alias, "account "+alias+" updated"))
	return acct, nil
}

func (r *Registry) update(ctx context.Context, alias string, u Update) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.state.accounts[alias]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, alias)
	}

	prev := r.cloneState()
	acct = u.apply(acct)
	r.state.accounts[alias] = acct

	if err := r.commit(ctx, prev, nil); err != nil {
		return Account{}, fmt.Errorf("update account %s: %w", alias, err)
	}
	return acct, nil
}

// MapOwner records which account owns repositories under owner, used to
// classify HTTPS remotes.
func (r *Registry) MapOwner(ctx context.Context, owner, alias string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}

	changed, err := r.mapOwner(ctx, owner, alias)
	if err != nil || !changed {
		return err
	}

	ev := notify.NewEvent(notify.EventOwnerMapped, alias, "owner "+owner+" mapped to "+alias)
	ev.Metadata = map[string]any{"owner": owner}
	r.emit(ctx, ev)
	return nil
}

func (r *Registry) mapOwner(ctx context.Context, owner, alias string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.accounts[alias]; !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, alias)
	}
	if r.state.owners[owner] == alias {
		return false, nil
	}

	prev := r.cloneState()
	r.state.owners[owner] = alias
	if err := r.commit(ctx, prev, nil); err != nil {
		return false, fmt.Errorf("map owner %s: %w", owner, err)
	}
	return true, nil
}

// Reset forgets every account, owner mapping and the last scanned path.
// The SSH config and key files are not touched.
func (r *Registry) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.cloneState()
	r.state = state{
		accounts: make(map[string]Account),
		owners:   make(map[string]string),
	}
	return r.commit(ctx, prev, nil)
}

// SetLastScannedPath remembers the last scan root.
func (r *Registry) SetLastScannedPath(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.lastScanned == path {
		return nil
	}
	prev := r.cloneState()
	r.state.lastScanned = path
	return r.commit(ctx, prev, nil)
}

// LastScannedPath returns the last scan root, "" if none.
func (r *Registry) LastScannedPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.lastScanned
}

// Get returns the account for alias.
func (r *Registry) Get(alias string) (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.state.accounts[alias]
	return a, ok
}

// OwnerAccount returns the alias mapped to owner.
func (r *Registry) OwnerAccount(owner string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alias, ok := r.state.owners[owner]
	return alias, ok
}

// Accounts returns all accounts sorted by name.
func (r *Registry) Accounts() []Account {
	return r.Snapshot().Accounts()
}

// Len returns the number of accounts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.accounts)
}

// ResolveByKeyPath returns the alias using the key at path, checking the
// registry first and the SSH config second.
func (r *Registry) ResolveByKeyPath(path string) (string, bool) {
	clean := filepath.Clean(path)

	r.mu.Lock()
	for alias, a := range r.state.accounts {
		if a.SSHKeyPath == path || filepath.Clean(a.SSHKeyPath) == clean {
			r.mu.Unlock()
			return alias, true
		}
	}
	r.mu.Unlock()

	text, err := r.hosts.Load()
	if err != nil {
		r.logger.Warn("read ssh config for key lookup", "error", err)
		return "", false
	}
	return sshconfig.FindAliasForKey(text, path)
}

// Snapshot returns an immutable copy of the accounts and owner mappings.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		accounts: maps.Clone(r.state.accounts),
		owners:   maps.Clone(r.state.owners),
	}
}

// commit writes the SSH config (when edit is non-nil) and the document.
// On any failure it restores prev and the original SSH config text.
// Callers hold r.mu.
func (r *Registry) commit(ctx context.Context, prev state, edit func(string) string) error {
	var (
		original string
		existed  bool
	)
	if edit != nil {
		existed = r.hosts.Exists()
		text, err := r.hosts.Load()
		if err != nil {
			r.state = prev
			return err
		}
		original = text
		if err := r.hosts.Save(edit(text)); err != nil {
			r.state = prev
			return err
		}
	}

	if err := r.store.save(ctx, r.state); err != nil {
		r.state = prev
		if edit != nil {
			if rbErr := r.restoreHosts(original, existed); rbErr != nil {
				r.logger.Error("restore ssh config after failed save",
					"error", rbErr,
					"registry_error", err,
				)
			}
		}
		return err
	}
	return nil
}

// restoreHosts puts the SSH config back the way commit found it. A file
// that did not exist is removed rather than saved empty.
func (r *Registry) restoreHosts(original string, existed bool) error {
	if !existed {
		return r.hosts.Remove()
	}
	return r.hosts.Save(original)
}

func (r *Registry) cloneState() state {
	return state{
		lastScanned: r.state.lastScanned,
		accounts:    maps.Clone(r.state.accounts),
		owners:      maps.Clone(r.state.owners),
	}
}

// emit delivers ev. Callers must not hold r.mu: webhook and Slack
// delivery can block for the notifier timeout.
func (r *Registry) emit(ctx context.Context, ev notify.Event) {
	if err := notify.Send(ctx, ev); err != nil {
		r.logger.Warn("notification failed", "type", ev.Type, "error", err)
	}
}

// Snapshot is a read-only view of the registry at one point in time.
type Snapshot struct {
	accounts map[string]Account
	owners   map[string]string
}

// NewSnapshot builds a snapshot directly, mainly for tests.
func NewSnapshot(accounts []Account, owners map[string]string) Snapshot {
	s := Snapshot{
		accounts: make(map[string]Account, len(accounts)),
		owners:   maps.Clone(owners),
	}
	if s.owners == nil {
		s.owners = make(map[string]string)
	}
	for _, a := range accounts {
		s.accounts[a.Name] = a
	}
	return s
}

// Account returns the account for alias.
func (s Snapshot) Account(alias string) (Account, bool) {
	a, ok := s.accounts[alias]
	return a, ok
}

// Has reports whether alias is registered.
func (s Snapshot) Has(alias string) bool {
	_, ok := s.accounts[alias]
	return ok
}

// OwnerAccount returns the alias mapped to owner.
func (s Snapshot) OwnerAccount(owner string) (string, bool) {
	alias, ok := s.owners[owner]
	return alias, ok
}

// Accounts returns the accounts sorted by name.
func (s Snapshot) Accounts() []Account {
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Owners returns a copy of the owner mappings.
func (s Snapshot) Owners() map[string]string {
	return maps.Clone(s.owners)
}

// Len returns the number of accounts.
func (s Snapshot) Len() int {
	return len(s.accounts)
}
