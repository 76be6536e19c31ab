package ssh

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gossh "golang.org/x/crypto/ssh"
)

var (
	// ErrNoSSHKeys means the SSH directory holds no private key files.
	ErrNoSSHKeys = errors.New("no SSH keys found")

	// ErrInvalidKeyFormat means a .pub file is not in authorized_keys format.
	ErrInvalidKeyFormat = errors.New("invalid SSH public key format")
)

// KeyInfo describes a parsed public key.
type KeyInfo struct {
	Path        string
	PublicKey   string // authorized_keys line, trimmed
	KeyType     string // e.g. "ssh-ed25519"
	Fingerprint string // SHA256:...
	Comment     string
}

// ReadPublicKey reads and parses a public key file.
func ReadPublicKey(path string) (*KeyInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the registry or the user
	if err != nil {
		return nil, err
	}
	return ParsePublicKey(path, string(data))
}

// ParsePublicKey parses keyData, recording path on the result.
func ParsePublicKey(path, keyData string) (*KeyInfo, error) {
	line := strings.TrimSpace(keyData)
	if strings.Count(line, " ") == 0 {
		return nil, ErrInvalidKeyFormat
	}

	pub, comment, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	return &KeyInfo{
		Path:        path,
		PublicKey:   line,
		KeyType:     pub.Type(),
		Fingerprint: gossh.FingerprintSHA256(pub),
		Comment:     comment,
	}, nil
}

// notKeys are files OpenSSH keeps next to keys.
var notKeys = []string{
	"allowed_signers",
	"authorized_keys",
	"authorized_keys2",
	"config",
	"environment",
	"known_hosts",
	"known_hosts.old",
}

func isKeyCandidate(entry fs.DirEntry) bool {
	name := entry.Name()
	switch {
	case !entry.Type().IsRegular():
		return false
	case strings.HasPrefix(name, "."), strings.HasSuffix(name, ".pub"):
		return false
	default:
		return !slices.Contains(notKeys, name)
	}
}

// KeyPair is a private key file and, when its .pub sibling parses, the
// public half.
type KeyPair struct {
	PrivatePath string
	Public      *KeyInfo
}

// DiscoverKeyPairs lists candidate private keys in sshDir, sorted by path.
// ErrNoSSHKeys is returned when the directory is missing or has none.
func DiscoverKeyPairs(sshDir string) ([]KeyPair, error) {
	entries, err := os.ReadDir(sshDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSSHKeys
	}
	if err != nil {
		return nil, fmt.Errorf("read ssh directory: %w", err)
	}

	// ReadDir sorts by name, so the result is already ordered.
	var pairs []KeyPair
	for _, entry := range entries {
		if !isKeyCandidate(entry) {
			continue
		}
		pair := KeyPair{PrivatePath: filepath.Join(sshDir, entry.Name())}
		if info, err := ReadPublicKey(pair.PrivatePath + ".pub"); err == nil {
			pair.Public = info
		}
		pairs = append(pairs, pair)
	}

	if len(pairs) == 0 {
		return nil, ErrNoSSHKeys
	}
	return pairs, nil
}
