package sshconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// File is the SSH client config on disk. It never caches content;
// callers Load before each edit session.
type File struct {
	path string
}

// NewFile returns a File for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the config file path.
func (f *File) Path() string {
	return f.path
}

// Exists reports whether the file is present.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Load returns the file content, or "" if the file does not exist.
func (f *File) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read ssh config %s: %w", f.path, err)
	}
	return string(data), nil
}

// Save replaces the file atomically with mode 0600, creating the parent
// directory with mode 0700 when needed.
func (f *File) Save(text string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create ssh directory: %w", err)
	}
	if err := atomicwriter.WriteFile(f.path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write ssh config %s: %w", f.path, err)
	}
	return nil
}

// Remove deletes the file. A missing file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove ssh config %s: %w", f.path, err)
	}
	return nil
}
