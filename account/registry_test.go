package account

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/ghswitch/notify"
	"github.com/randalmurphal/ghswitch/sshconfig"
	"github.com/randalmurphal/ghswitch/testutil"
)

// memHosts is an in-memory HostFile.
type memHosts struct {
	text    string
	absent  bool
	loadErr error
	saveErr error
	saves   int
	removes int
}

func (m *memHosts) Exists() bool {
	return !m.absent
}

func (m *memHosts) Load() (string, error) {
	return m.text, m.loadErr
}

func (m *memHosts) Save(text string) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.text, m.absent = text, false
	return nil
}

func (m *memHosts) Remove() error {
	m.removes++
	m.text, m.absent = "", true
	return nil
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	reg   *Registry
	hosts *memHosts
	path  string
	keys  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	hosts := &memHosts{text: "Host bastion\n    User ops\n"}
	path := filepath.Join(dir, "config", "accounts.json")
	return &fixture{
		reg:   New(path, hosts),
		hosts: hosts,
		path:  path,
		keys:  testutil.SSHDir(t),
	}
}

func (f *fixture) key(t *testing.T, name string) string {
	t.Helper()
	return testutil.WriteKeyPair(t, f.keys, name, 0o600)
}

func TestRegistry_Add(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, "id_work")

	acct, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if acct.Name != "work" || acct.SSHKeyPath != key {
		t.Errorf("Add() = %+v", acct)
	}

	if !sshconfig.HasBlock(f.hosts.text, "work") {
		t.Errorf("ssh config missing block:\n%s", f.hosts.text)
	}
	if !strings.HasPrefix(f.hosts.text, "Host bastion\n    User ops\n") {
		t.Errorf("unrelated content changed:\n%s", f.hosts.text)
	}

	reopened, err := Open(f.path, f.hosts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got, ok := reopened.Get("work")
	if !ok || got != acct {
		t.Errorf("reopened Get(work) = %+v, %v, want %+v", got, ok, acct)
	}
}

func TestRegistry_Add_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, "id_work")

	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key}); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	textBefore := f.hosts.text
	docBefore := testutil.ReadFile(t, f.path)
	savesBefore := f.hosts.saves

	other := f.key(t, "id_other")
	_, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "o@x.io", SSHKeyPath: other})
	if !errors.Is(err, ErrDuplicateAlias) {
		t.Fatalf("second Add() error = %v, want ErrDuplicateAlias", err)
	}

	if f.hosts.text != textBefore || f.hosts.saves != savesBefore {
		t.Error("ssh config touched by rejected add")
	}
	if got := testutil.ReadFile(t, f.path); got != docBefore {
		t.Errorf("registry document changed:\n%s", got)
	}
	if a, _ := f.reg.Get("work"); a.Email != "w@x.io" {
		t.Errorf("existing account modified: %+v", a)
	}
}

func TestRegistry_Add_Rejected(t *testing.T) {
	f := newFixture(t)
	key := f.key(t, "id_work")

	tests := []struct {
		name    string
		input   NewAccount
		wantErr error
	}{
		{"bad name", NewAccount{Name: "bad name", Email: "w@x.io", SSHKeyPath: key}, ErrInvalidField},
		{"bad email", NewAccount{Name: "work", Email: "nope", SSHKeyPath: key}, ErrInvalidField},
		{"bad username", NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key, GitHubUsername: "-x"}, ErrInvalidField},
		{"missing key", NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: filepath.Join(f.keys, "missing")}, ErrKeyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reg.Add(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, tt.wantErr)
			}
			if f.hosts.saves != 0 {
				t.Error("ssh config written before validation finished")
			}
			if f.reg.Len() != 0 {
				t.Error("account registered despite error")
			}
		})
	}
}

func TestRegistry_Add_RollsBackOnSSHConfigFailure(t *testing.T) {
	f := newFixture(t)
	f.hosts.saveErr = errors.New("disk full")
	original := f.hosts.text

	_, err := f.reg.Add(context.Background(), NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: f.key(t, "id_work")})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Add() error = %v, want disk full", err)
	}

	if f.reg.Len() != 0 {
		t.Error("in-memory account not rolled back")
	}
	if f.hosts.text != original {
		t.Error("ssh config changed")
	}
	if _, err := os.Stat(f.path); !os.IsNotExist(err) {
		t.Errorf("registry document written: %v", err)
	}
}

func TestRegistry_Add_RollsBackOnPersistFailure(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the registry directory should be.
	blocker := testutil.WriteFile(t, dir, "blocker", "")
	hosts := &memHosts{text: "Host bastion\n"}
	reg := New(filepath.Join(blocker, "accounts.json"), hosts)

	key := testutil.WriteKeyPair(t, testutil.SSHDir(t), "id_work", 0o600)
	_, err := reg.Add(context.Background(), NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key})
	if err == nil {
		t.Fatal("Add() succeeded with unwritable registry")
	}

	if reg.Len() != 0 {
		t.Error("in-memory account not rolled back")
	}
	if hosts.text != "Host bastion\n" {
		t.Errorf("ssh config not restored:\n%s", hosts.text)
	}
	if hosts.saves != 2 {
		t.Errorf("ssh config saves = %d, want write then restore", hosts.saves)
	}
}

func TestRegistry_Add_RemovesCreatedSSHConfigOnPersistFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := testutil.WriteFile(t, dir, "blocker", "")
	hostsPath := filepath.Join(dir, "ssh", "config")
	reg := New(filepath.Join(blocker, "accounts.json"), sshconfig.NewFile(hostsPath))

	key := testutil.WriteKeyPair(t, testutil.SSHDir(t), "id_work", 0o600)
	if _, err := reg.Add(context.Background(), NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key}); err == nil {
		t.Fatal("Add() succeeded with unwritable registry")
	}

	if _, err := os.Stat(hostsPath); !os.IsNotExist(err) {
		t.Errorf("ssh config left behind: stat error = %v", err)
	}
}

func TestRegistry_Remove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, "id_work")

	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := f.reg.MapOwner(ctx, "acme", "work"); err != nil {
		t.Fatalf("MapOwner() error = %v", err)
	}

	if err := f.reg.Remove(ctx, "work"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if sshconfig.HasBlock(f.hosts.text, "work") {
		t.Error("ssh block left behind")
	}
	if f.hosts.text != "Host bastion\n    User ops\n" {
		t.Errorf("ssh config = %q, want original", f.hosts.text)
	}
	if _, ok := f.reg.OwnerAccount("acme"); ok {
		t.Error("owner mapping to removed account kept")
	}
	if _, err := os.Stat(key); err != nil {
		t.Errorf("key file touched: %v", err)
	}

	if err := f.reg.Remove(ctx, "work"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(unknown) error = %v, want ErrNotFound", err)
	}
}

// addMapped registers "work" and maps acme to it, returning the SSH config
// text afterwards.
func (f *fixture) addMapped(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: f.key(t, "id_work")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := f.reg.MapOwner(ctx, "acme", "work"); err != nil {
		t.Fatalf("MapOwner() error = %v", err)
	}
	return f.hosts.text
}

func (f *fixture) assertWorkIntact(t *testing.T, wantText string) {
	t.Helper()
	if _, ok := f.reg.Get("work"); !ok {
		t.Error("account not restored")
	}
	if alias, ok := f.reg.OwnerAccount("acme"); !ok || alias != "work" {
		t.Errorf("OwnerAccount(acme) = %q, %v, want work", alias, ok)
	}
	if f.hosts.text != wantText {
		t.Errorf("ssh config = %q, want %q", f.hosts.text, wantText)
	}
}

func TestRegistry_Remove_RollsBackOnSSHConfigFailure(t *testing.T) {
	f := newFixture(t)
	text := f.addMapped(t)
	docBefore := testutil.ReadFile(t, f.path)
	f.hosts.saveErr = errors.New("disk full")

	err := f.reg.Remove(context.Background(), "work")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Remove() error = %v, want disk full", err)
	}

	f.assertWorkIntact(t, text)
	if got := testutil.ReadFile(t, f.path); got != docBefore {
		t.Errorf("registry document changed:\n%s", got)
	}
}

func TestRegistry_Remove_RollsBackOnPersistFailure(t *testing.T) {
	f := newFixture(t)
	text := f.addMapped(t)
	savesBefore := f.hosts.saves

	// Replace the registry directory with a regular file.
	regDir := filepath.Dir(f.path)
	if err := os.RemoveAll(regDir); err != nil {
		t.Fatalf("remove registry dir: %v", err)
	}
	testutil.WriteFile(t, filepath.Dir(regDir), filepath.Base(regDir), "")

	if err := f.reg.Remove(context.Background(), "work"); err == nil {
		t.Fatal("Remove() succeeded with unwritable registry")
	}

	f.assertWorkIntact(t, text)
	if got := f.hosts.saves - savesBefore; got != 2 {
		t.Errorf("ssh config saves = %d, want write then restore", got)
	}
}

func TestRegistry_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, "id_work")

	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key, GitHubUsername: "octo"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	textBefore := f.hosts.text

	email := "new@x.io"
	empty := ""
	token := "ghp_secret"
	got, err := f.reg.Update(ctx, "work", Update{Email: &email, GitHubUsername: &empty, Token: &token})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	want := Account{Name: "work", Email: email, SSHKeyPath: key, Token: token}
	if got != want {
		t.Errorf("Update() = %+v, want %+v", got, want)
	}
	if f.hosts.text != textBefore {
		t.Error("update rewrote ssh config")
	}

	bad := "nope"
	if _, err := f.reg.Update(ctx, "work", Update{Email: &bad}); !errors.Is(err, ErrInvalidField) {
		t.Errorf("Update(bad email) error = %v, want ErrInvalidField", err)
	}
	if _, err := f.reg.Update(ctx, "ghost", Update{Email: &email}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ResolveByKeyPath(t *testing.T) {
	f := newFixture(t)
	key := f.key(t, "id_work")

	if _, err := f.reg.Add(context.Background(), NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// A block written by hand, unknown to the registry.
	f.hosts.text = sshconfig.UpsertBlock(f.hosts.text, "legacy", "/keys/legacy")

	tests := []struct {
		path      string
		wantAlias string
		wantOK    bool
	}{
		{key, "work", true},
		{"/keys/legacy", "legacy", true},
		{"/keys/unknown", "", false},
	}
	for _, tt := range tests {
		alias, ok := f.reg.ResolveByKeyPath(tt.path)
		if alias != tt.wantAlias || ok != tt.wantOK {
			t.Errorf("ResolveByKeyPath(%q) = %q, %v, want %q, %v", tt.path, alias, ok, tt.wantAlias, tt.wantOK)
		}
	}
}

func TestRegistry_MapOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.reg.MapOwner(ctx, "acme", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MapOwner(unknown alias) error = %v, want ErrNotFound", err)
	}
	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: f.key(t, "id_work")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := f.reg.MapOwner(ctx, "-bad", "work"); !errors.Is(err, ErrInvalidField) {
		t.Errorf("MapOwner(bad owner) error = %v, want ErrInvalidField", err)
	}
	if err := f.reg.MapOwner(ctx, "acme", "work"); err != nil {
		t.Fatalf("MapOwner() error = %v", err)
	}

	reopened, err := Open(f.path, f.hosts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if alias, ok := reopened.OwnerAccount("acme"); !ok || alias != "work" {
		t.Errorf("OwnerAccount(acme) = %q, %v", alias, ok)
	}
}

func TestRegistry_LoadMissingAndSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	reg, err := Open(path, &memHosts{})
	if err != nil {
		t.Fatalf("Open() missing file error = %v", err)
	}
	if reg.Len() != 0 || reg.LastScannedPath() != "" {
		t.Fatal("missing file should load as an empty registry")
	}

	if err := reg.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(testutil.ReadFile(t, path)), &doc); err != nil {
		t.Fatalf("saved document is not JSON: %v", err)
	}
	if string(doc["accounts"]) != "{}" {
		t.Errorf("accounts = %s, want {}", doc["accounts"])
	}

	again, err := Open(path, &memHosts{})
	if err != nil {
		t.Fatalf("Open() after save error = %v", err)
	}
	if again.Len() != 0 {
		t.Errorf("Len() = %d, want 0", again.Len())
	}
}

func TestRegistry_DocumentFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, "id_work")

	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := f.reg.SetLastScannedPath(ctx, "/src"); err != nil {
		t.Fatalf("SetLastScannedPath() error = %v", err)
	}

	var doc struct {
		LastScannedPath string                    `json:"last_scanned_path"`
		Accounts        map[string]map[string]any `json:"accounts"`
	}
	if err := json.Unmarshal([]byte(testutil.ReadFile(t, f.path)), &doc); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	if doc.LastScannedPath != "/src" {
		t.Errorf("last_scanned_path = %q", doc.LastScannedPath)
	}
	work := doc.Accounts["work"]
	if work["name"] != "work" || work["email"] != "w@x.io" || work["ssh_key_path"] != key {
		t.Errorf("account record = %v", work)
	}
	for _, field := range []string{"github_username", "token"} {
		v, present := work[field]
		if !present || v != nil {
			t.Errorf("%s = %v (present %v), want null", field, v, present)
		}
	}
}

func TestRegistry_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "accounts.json", "{not json")

	if _, err := Open(path, &memHosts{}); err == nil {
		t.Error("Open() on corrupt document succeeded")
	}
}

func TestRegistry_SnapshotIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap := f.reg.Snapshot()
	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: f.key(t, "id_work")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if snap.Len() != 0 || snap.Has("work") {
		t.Error("snapshot changed after Add")
	}
	if got := f.reg.Snapshot(); !got.Has("work") {
		t.Error("new snapshot missing account")
	}
}

func TestRegistry_Accounts_Sorted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := f.reg.Add(ctx, NewAccount{Name: name, Email: name + "@x.io", SSHKeyPath: f.key(t, "id_"+name)}); err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
	}

	var names []string
	for _, a := range f.reg.Accounts() {
		names = append(names, a.Name)
	}
	if strings.Join(names, ",") != "alpha,mid,zeta" {
		t.Errorf("Accounts() order = %v", names)
	}
}

func TestRegistry_Notifies(t *testing.T) {
	f := newFixture(t)
	rec := &recordingNotifier{}
	ctx := notify.WithNotifier(context.Background(), rec)

	if _, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: f.key(t, "id_work")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := f.reg.Remove(ctx, "work"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("events = %d, want 2", len(rec.events))
	}
	if rec.events[0].Type != notify.EventAccountAdded || rec.events[1].Type != notify.EventAccountRemoved {
		t.Errorf("event types = %s, %s", rec.events[0].Type, rec.events[1].Type)
	}
}

func TestRegistry_Reset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	text := f.addMapped(t)
	if err := f.reg.SetLastScannedPath(ctx, "/src"); err != nil {
		t.Fatal(err)
	}

	if err := f.reg.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if f.reg.Len() != 0 || f.reg.LastScannedPath() != "" {
		t.Errorf("state after Reset: len %d, last %q", f.reg.Len(), f.reg.LastScannedPath())
	}
	if _, ok := f.reg.OwnerAccount("acme"); ok {
		t.Error("owner mapping kept")
	}
	if f.hosts.text != text {
		t.Error("ssh config changed by Reset")
	}

	reopened, err := Open(f.path, f.hosts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reopened.Len() != 0 {
		t.Errorf("reopened Len() = %d", reopened.Len())
	}
}

// lenNotifier reads the registry while handling an event.
type lenNotifier struct {
	reg  *Registry
	lens []int
}

func (n *lenNotifier) Notify(_ context.Context, _ notify.Event) error {
	n.lens = append(n.lens, n.reg.Len())
	return nil
}

func TestRegistry_NotifiesAfterUnlock(t *testing.T) {
	f := newFixture(t)
	n := &lenNotifier{reg: f.reg}
	ctx := notify.WithNotifier(context.Background(), n)
	key := f.key(t, "id_work")

	done := make(chan error, 1)
	go func() {
		_, err := f.reg.Add(ctx, NewAccount{Name: "work", Email: "w@x.io", SSHKeyPath: key})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Add() blocked while the notifier read the registry")
	}
	if len(n.lens) != 1 || n.lens[0] != 1 {
		t.Errorf("lens seen by notifier = %v, want [1]", n.lens)
	}
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot([]Account{{Name: "b"}, {Name: "a"}}, map[string]string{"acme": "a"})

	if snap.Len() != 2 || snap.Accounts()[0].Name != "a" {
		t.Errorf("Accounts() = %+v", snap.Accounts())
	}
	if alias, ok := snap.OwnerAccount("acme"); !ok || alias != "a" {
		t.Errorf("OwnerAccount(acme) = %q, %v", alias, ok)
	}
	if _, ok := NewSnapshot(nil, nil).OwnerAccount("acme"); ok {
		t.Error("empty snapshot has an owner mapping")
	}
}
