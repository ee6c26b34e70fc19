package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kardianos/gatelist/internal/atomicfile"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS applications (
	seq          INTEGER PRIMARY KEY,
	gamertag     TEXT NOT NULL UNIQUE,
	requester_id TEXT NOT NULL,
	status       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS allowlist (
	seq  INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	xuid TEXT NOT NULL UNIQUE
);`

// SQLConfig configures a SQLStore.
type SQLConfig struct {
	// Path is the SQLite database file.
	Path string

	// ExportPath, if set, receives a JSON copy of the access list on open and
	// after every access list write.
	ExportPath string

	Logger    *slog.Logger
	OnCorrupt func(CorruptionEvent)
}

// SQLStore keeps both collections in SQLite tables ordered by seq.
type SQLStore struct {
	db         *sql.DB
	path       string
	exportPath string
	report     corruptionReporter
}

var (
	_ Store     = (*SQLStore)(nil)
	_ Committer = (*SQLStore)(nil)
	_ Exporter  = (*SQLStore)(nil)
)

// NewSQLStore opens the database at cfg.Path and creates the tables. A file
// SQLite rejects as damaged is moved aside and replaced by an empty database.
// The export file is rewritten from the stored access list.
func NewSQLStore(cfg SQLConfig) (*SQLStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(cfg.Path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	report := newCorruptionReporter(cfg.Logger, cfg.OnCorrupt)

	db, err := openSQLite(cleanPath)
	if isSQLiteDamaged(err) {
		aside, qerr := quarantine(cleanPath, time.Now())
		if qerr != nil {
			return nil, qerr
		}
		// The journal belongs to the damaged file.
		os.Remove(cleanPath + "-wal")
		os.Remove(cleanPath + "-shm")
		report.reportDatabaseReset(aside, err)
		db, err = openSQLite(cleanPath)
	}
	if err != nil {
		return nil, err
	}

	s := &SQLStore{
		db:         db,
		path:       cleanPath,
		exportPath: cfg.ExportPath,
		report:     report,
	}
	if err := s.Export(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

func isSQLiteDamaged(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return true
	}
	return false
}

func (s *SQLStore) LoadApplications(ctx context.Context) (*Applications, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT gamertag, requester_id, status FROM applications ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	apps := NewApplications()
	for rows.Next() {
		var tag, requester, status string
		if err := rows.Scan(&tag, &requester, &status); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps.Put(tag, Application{RequesterID: requester, Status: Status(status)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	rows.Close()

	if verr := validateApplications(apps); verr != nil {
		apps = NewApplications()
		if err := s.inTx(ctx, func(tx *sql.Tx) error { return insertApplications(ctx, tx, apps) }); err != nil {
			return nil, fmt.Errorf("reset applications: %w", err)
		}
		s.report.report(CorruptionEvent{Collection: CollectionApplications, Resource: s.path + "#applications", Err: verr})
	}
	return apps, nil
}

func (s *SQLStore) SaveApplications(ctx context.Context, apps *Applications) error {
	if err := s.inTx(ctx, func(tx *sql.Tx) error { return insertApplications(ctx, tx, apps) }); err != nil {
		return fmt.Errorf("save applications: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadAccessList(ctx context.Context) (AccessList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, xuid FROM allowlist ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query access list: %w", err)
	}
	defer rows.Close()

	list := AccessList{}
	for rows.Next() {
		var e AccessEntry
		if err := rows.Scan(&e.Name, &e.XUID); err != nil {
			return nil, fmt.Errorf("scan access entry: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access list: %w", err)
	}
	return list, nil
}

func (s *SQLStore) SaveAccessList(ctx context.Context, list AccessList) error {
	if err := s.inTx(ctx, func(tx *sql.Tx) error { return insertAccessList(ctx, tx, list) }); err != nil {
		return fmt.Errorf("save access list: %w", err)
	}
	return s.export(list)
}

// Commit replaces both collections in one transaction.
func (s *SQLStore) Commit(ctx context.Context, apps *Applications, list AccessList) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertAccessList(ctx, tx, list); err != nil {
			return err
		}
		return insertApplications(ctx, tx, apps)
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return s.export(list)
}

// Export rewrites the export file from the stored access list.
func (s *SQLStore) Export(ctx context.Context) error {
	if s.exportPath == "" {
		return nil
	}
	list, err := s.LoadAccessList(ctx)
	if err != nil {
		return err
	}
	return s.export(list)
}

// Close closes the SQLite handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) export(list AccessList) error {
	if s.exportPath == "" {
		return nil
	}
	if list == nil {
		list = AccessList{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode access list export: %w", err)
	}
	if err := atomicfile.Write(s.exportPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("export access list: %w", err)
	}
	return nil
}

func insertApplications(ctx context.Context, tx *sql.Tx, apps *Applications) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM applications`); err != nil {
		return err
	}
	if apps == nil {
		return nil
	}
	for i, e := range apps.Entries() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO applications (seq, gamertag, requester_id, status) VALUES (?, ?, ?, ?)`,
			i, e.Gamertag, e.Application.RequesterID, string(e.Application.Status),
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", e.Gamertag, err)
		}
	}
	return nil
}

func insertAccessList(ctx context.Context, tx *sql.Tx, list AccessList) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM allowlist`); err != nil {
		return err
	}
	for i, e := range list {
		_, err := tx.ExecContext(ctx, `INSERT INTO allowlist (seq, name, xuid) VALUES (?, ?, ?)`, i, e.Name, e.XUID)
		if err != nil {
			return fmt.Errorf("insert %q: %w", e.Name, err)
		}
	}
	return nil
}
