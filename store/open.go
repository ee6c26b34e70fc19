package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Kind selects a backend.
type Kind string

const (
	KindFile   Kind = "file"
	KindBolt   Kind = "bolt"
	KindSQLite Kind = "sqlite"
)

// Database file names inside Config.Dir.
const (
	BoltFile   = "gatelist.db"
	SQLiteFile = "gatelist.sqlite"
)

// Config selects and configures a backend.
type Config struct {
	Kind Kind
	Dir  string

	// WriteMode applies to KindFile.
	WriteMode WriteMode

	Logger    *slog.Logger
	OnCorrupt func(CorruptionEvent)
}

// Open opens the configured backend. The database backends export the access
// list to <Dir>/allowlist.json so the game server reads the same file in every
// configuration.
func Open(cfg Config) (Store, error) {
	export := filepath.Join(cfg.Dir, AccessListFile)
	switch cfg.Kind {
	case "", KindFile:
		return NewFileStore(FileConfig{
			Dir:       cfg.Dir,
			Mode:      cfg.WriteMode,
			Logger:    cfg.Logger,
			OnCorrupt: cfg.OnCorrupt,
		})
	case KindBolt:
		return NewBoltStore(BoltConfig{
			Path:       filepath.Join(cfg.Dir, BoltFile),
			ExportPath: export,
			Logger:     cfg.Logger,
			OnCorrupt:  cfg.OnCorrupt,
		})
	case KindSQLite:
		return NewSQLStore(SQLConfig{
			Path:       filepath.Join(cfg.Dir, SQLiteFile),
			ExportPath: export,
			Logger:     cfg.Logger,
			OnCorrupt:  cfg.OnCorrupt,
		})
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
