// Package secret keeps small secrets, such as the reload token, encrypted on
// disk. One file per secret.
//
// On Windows values are protected with DPAPI for the current user. Elsewhere
// they are sealed with a key embedded in the binary, which keeps them out of
// plain text but does not protect against someone holding the binary.
package secret

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/kardianos/gatelist/internal/atomicfile"
)

// Names of the secrets the binary reads.
const (
	ReloadToken = "reload_token"
)

// ErrNotFound is returned by Get when the secret has not been set.
var ErrNotFound = errors.New("secret: not found")

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// InvalidNameError is returned for names that are not usable as file names.
type InvalidNameError struct {
	Name string
}

func (e InvalidNameError) Error() string {
	return fmt.Sprintf("secret: invalid name %q", e.Name)
}

// DefaultDir returns the per-user secret directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gatelist", "secret"), nil
}

// Store reads and writes encrypted secrets in a directory.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// Open returns a store rooted at dir, creating it with mode 0700.
// Environment references such as $HOME are expanded.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("secret: directory is required")
	}
	dir = filepath.Clean(os.Expand(dir, os.Getenv))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create secret directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", InvalidNameError{Name: name}
	}
	return filepath.Join(s.dir, name), nil
}

// Get returns the decrypted secret.
func (s *Store) Get(name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	plain, err := decrypt(data)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", name, err)
	}
	return string(plain), nil
}

// Lookup returns the secret, or "" when it has not been set.
func (s *Store) Lookup(name string) (string, error) {
	v, err := s.Get(name)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Set encrypts and stores value, replacing any previous value.
func (s *Store) Set(name, value string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	sealed, err := encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicfile.Write(p, sealed, 0600)
}

// Delete removes the secret. Deleting a missing secret is not an error.
func (s *Store) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Names lists the stored secrets in sorted order.
func (s *Store) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !validName.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}
