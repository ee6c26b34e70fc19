package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kardianos/gatelist/internal/atomicfile"
)

// File names used by FileStore. The access list is read by the game server.
const (
	ApplicationsFile = "whitelist.json"
	AccessListFile   = "allowlist.json"
)

// WriteMode selects how FileStore replaces a file.
type WriteMode string

const (
	// WriteAtomic writes a temp file and renames it over the target.
	WriteAtomic WriteMode = "atomic"
	// WriteDirect truncates and rewrites the target in place. A reader racing
	// the write can observe a partial file. Use only where rename across the
	// data directory is unavailable, such as some bind-mounted single files.
	WriteDirect WriteMode = "direct"
)

// FileConfig configures a FileStore.
type FileConfig struct {
	// Dir holds both JSON files and the lock file.
	Dir string

	// Mode selects the write strategy. Empty means WriteAtomic.
	Mode WriteMode

	// Logger receives corruption warnings. Nil uses slog.Default.
	Logger *slog.Logger

	// OnCorrupt is called after a collection has been reset.
	OnCorrupt func(CorruptionEvent)
}

// FileStore keeps each collection in a JSON file.
type FileStore struct {
	dir    string
	mode   WriteMode
	write  func(path string, data []byte, perm os.FileMode) error
	lock   *dirLock
	report corruptionReporter

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens a file store in cfg.Dir, creating the directory if needed.
// The directory stays locked against other processes until Close.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	s := &FileStore{
		dir:    cfg.Dir,
		mode:   cfg.Mode,
		report: newCorruptionReporter(cfg.Logger, cfg.OnCorrupt),
	}
	switch s.mode {
	case "", WriteAtomic:
		s.mode = WriteAtomic
		s.write = atomicfile.Write
	case WriteDirect:
		s.write = atomicfile.WriteDirect
	default:
		return nil, fmt.Errorf("unknown write mode %q", cfg.Mode)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	lock, err := lockDir(s.dir)
	if err != nil {
		return nil, err
	}
	s.lock = lock
	return s, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Mode returns the write strategy in use.
func (s *FileStore) Mode() WriteMode {
	return s.mode
}

func (s *FileStore) LoadApplications(ctx context.Context) (*Applications, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadJSON(s, CollectionApplications, ApplicationsFile, NewApplications, validateApplications)
}

func (s *FileStore) SaveApplications(ctx context.Context, apps *Applications) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if apps == nil {
		apps = NewApplications()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(ApplicationsFile, apps)
}

func (s *FileStore) LoadAccessList(ctx context.Context) (AccessList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadJSON(s, CollectionAccessList, AccessListFile, func() AccessList { return AccessList{} }, validateAccessList)
}

func (s *FileStore) SaveAccessList(ctx context.Context, list AccessList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if list == nil {
		list = AccessList{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(AccessListFile, list)
}

// Close releases the directory lock.
func (s *FileStore) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.unlock()
	s.lock = nil
	return err
}

// loadJSON reads name into a fresh empty value. A missing file yields the
// empty value. An undecodable file is reset on disk and also yields the empty
// value.
func loadJSON[T any](s *FileStore, c Collection, name string, empty func() T, validate func(T) error) (T, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty(), nil
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read %s: %w", name, err)
	}

	v := empty()
	err = json.Unmarshal(data, &v)
	if err == nil {
		err = validate(v)
	}
	if err == nil {
		return v, nil
	}

	v = empty()
	if werr := s.saveJSON(name, v); werr != nil {
		var zero T
		return zero, fmt.Errorf("reset %s after decode error %v: %w", name, err, werr)
	}
	s.report.report(CorruptionEvent{Collection: c, Resource: path, Err: err})
	return v, nil
}

func (s *FileStore) saveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	data = append(data, '\n')
	if err := s.write(filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
