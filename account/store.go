package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/moby/sys/atomicwriter"
)

// lockRetry is how often a blocked writer retries the file lock.
const lockRetry = 50 * time.Millisecond

type document struct {
	LastScannedPath string                 `json:"last_scanned_path"`
	Accounts        map[string]wireAccount `json:"accounts"`
	OwnerMappings   map[string]string      `json:"owner_mappings"`
}

type wireAccount struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	SSHKeyPath     string  `json:"ssh_key_path"`
	GitHubUsername *string `json:"github_username"`
	Token          *string `json:"token"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type state struct {
	lastScanned string
	accounts    map[string]Account
	owners      map[string]string
}

// Store reads and writes the registry JSON document.
type Store struct {
	path string
}

// NewStore returns a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (state, error) {
	st := state{
		accounts: make(map[string]Account),
		owners:   make(map[string]string),
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read registry %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return st, fmt.Errorf("parse registry %s: %w", s.path, err)
	}

	st.lastScanned = doc.LastScannedPath
	for alias, w := range doc.Accounts {
		st.accounts[alias] = Account{
			Name:           alias,
			Email:          w.Email,
			SSHKeyPath:     w.SSHKeyPath,
			GitHubUsername: deref(w.GitHubUsername),
			Token:          deref(w.Token),
		}
	}
	for owner, alias := range doc.OwnerMappings {
		st.owners[owner] = alias
	}
	return st, nil
}

// save writes st atomically while holding an advisory lock, so a second
// ghswitch process never interleaves its write with ours.
func (s *Store) save(ctx context.Context, st state) error {
	doc := document{
		LastScannedPath: st.lastScanned,
		Accounts:        make(map[string]wireAccount, len(st.accounts)),
		OwnerMappings:   make(map[string]string, len(st.owners)),
	}
	for alias, a := range st.accounts {
		doc.Accounts[alias] = wireAccount{
			Name:           a.Name,
			Email:          a.Email,
			SSHKeyPath:     a.SSHKeyPath,
			GitHubUsername: optional(a.GitHubUsername),
			Token:          optional(a.Token),
		}
	}
	for owner, alias := range st.owners {
		doc.OwnerMappings[owner] = alias
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock registry %s: held by another process", s.path)
	}
	defer lock.Unlock()

	// The document may hold tokens.
	if err := atomicwriter.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write registry %s: %w", s.path, err)
	}
	return nil
}
