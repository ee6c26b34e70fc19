package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/kardianos/gatelist/internal/atomicfile"
	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

var (
	bucketApplications = []byte("applications")
	bucketAccessList   = []byte("allowlist")
)

// boltApplication is the stored form of one application.
type boltApplication struct {
	Gamertag    string `cbor:"1,keyasint"`
	RequesterID string `cbor:"2,keyasint"`
	Status      Status `cbor:"3,keyasint"`
}

// BoltConfig configures a BoltStore.
type BoltConfig struct {
	// Path is the database file.
	Path string

	// ExportPath, if set, receives a JSON copy of the access list on open and
	// after every access list write, in the same format FileStore uses.
	ExportPath string

	Logger    *slog.Logger
	OnCorrupt func(CorruptionEvent)
}

// BoltStore keeps both collections in one bbolt database. Keys are big-endian
// sequence numbers so a cursor walk returns insertion order.
type BoltStore struct {
	db         *bbolt.DB
	exportPath string
	report     corruptionReporter
}

var (
	_ Store     = (*BoltStore)(nil)
	_ Committer = (*BoltStore)(nil)
	_ Exporter  = (*BoltStore)(nil)
)

// NewBoltStore opens or creates the database at cfg.Path. A file bbolt
// rejects as damaged is moved aside and replaced by an empty database. The
// export file is rewritten from the stored access list.
func NewBoltStore(cfg BoltConfig) (*BoltStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	report := newCorruptionReporter(cfg.Logger, cfg.OnCorrupt)

	db, err := openBolt(cfg.Path)
	if isBoltDamaged(err) {
		aside, qerr := quarantine(cfg.Path, time.Now())
		if qerr != nil {
			return nil, qerr
		}
		report.reportDatabaseReset(aside, err)
		db, err = openBolt(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &BoltStore{
		db:         db,
		exportPath: cfg.ExportPath,
		report:     report,
	}
	if err := s.Export(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func openBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketApplications, bucketAccessList} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return db, nil
}

func isBoltDamaged(err error) bool {
	return errors.Is(err, berrors.ErrInvalid) ||
		errors.Is(err, berrors.ErrChecksum) ||
		errors.Is(err, berrors.ErrVersionMismatch)
}

func seqKey(i int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(i))
	return k[:]
}

func (s *BoltStore) LoadApplications(ctx context.Context) (*Applications, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	apps := NewApplications()
	var decodeErr error
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketApplications).ForEach(func(k, v []byte) error {
			var rec boltApplication
			if err := cbor.Unmarshal(v, &rec); err != nil {
				decodeErr = fmt.Errorf("key %x: %w", k, err)
				return decodeErr
			}
			apps.Put(rec.Gamertag, Application{RequesterID: rec.RequesterID, Status: rec.Status})
			return nil
		})
	})
	if decodeErr == nil && err == nil {
		decodeErr = validateApplications(apps)
	}
	if decodeErr != nil {
		apps = NewApplications()
		if err := s.db.Update(func(tx *bbolt.Tx) error { return putApplications(tx, apps) }); err != nil {
			return nil, fmt.Errorf("reset applications: %w", err)
		}
		s.report.report(CorruptionEvent{Collection: CollectionApplications, Resource: s.db.Path() + "#applications", Err: decodeErr})
		return apps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	return apps, nil
}

func (s *BoltStore) SaveApplications(ctx context.Context, apps *Applications) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error { return putApplications(tx, apps) }); err != nil {
		return fmt.Errorf("save applications: %w", err)
	}
	return nil
}

func (s *BoltStore) LoadAccessList(ctx context.Context) (AccessList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := AccessList{}
	var decodeErr error
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccessList).ForEach(func(k, v []byte) error {
			var e AccessEntry
			if err := cbor.Unmarshal(v, &e); err != nil {
				decodeErr = fmt.Errorf("key %x: %w", k, err)
				return decodeErr
			}
			list = append(list, e)
			return nil
		})
	})
	if decodeErr != nil {
		list = AccessList{}
		if err := s.db.Update(func(tx *bbolt.Tx) error { return putAccessList(tx, list) }); err != nil {
			return nil, fmt.Errorf("reset access list: %w", err)
		}
		if err := s.export(list); err != nil {
			return nil, err
		}
		s.report.report(CorruptionEvent{Collection: CollectionAccessList, Resource: s.db.Path() + "#allowlist", Err: decodeErr})
		return list, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load access list: %w", err)
	}
	return list, nil
}

func (s *BoltStore) SaveAccessList(ctx context.Context, list AccessList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error { return putAccessList(tx, list) }); err != nil {
		return fmt.Errorf("save access list: %w", err)
	}
	return s.export(list)
}

// Commit replaces both collections in one transaction.
func (s *BoltStore) Commit(ctx context.Context, apps *Applications, list AccessList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := putAccessList(tx, list); err != nil {
			return err
		}
		return putApplications(tx, apps)
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return s.export(list)
}

// Export rewrites the export file from the stored access list.
func (s *BoltStore) Export(ctx context.Context) error {
	if s.exportPath == "" {
		return nil
	}
	list, err := s.LoadAccessList(ctx)
	if err != nil {
		return err
	}
	return s.export(list)
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) export(list AccessList) error {
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

// resetBucket drops and recreates name so stale sequence keys cannot survive.
func resetBucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	if tx.Bucket(name) != nil {
		if err := tx.DeleteBucket(name); err != nil {
			return nil, err
		}
	}
	return tx.CreateBucket(name)
}

func putApplications(tx *bbolt.Tx, apps *Applications) error {
	b, err := resetBucket(tx, bucketApplications)
	if err != nil {
		return err
	}
	if apps == nil {
		return nil
	}
	for i, e := range apps.Entries() {
		v, err := cbor.Marshal(boltApplication{
			Gamertag:    e.Gamertag,
			RequesterID: e.Application.RequesterID,
			Status:      e.Application.Status,
		})
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(i), v); err != nil {
			return err
		}
	}
	return nil
}

func putAccessList(tx *bbolt.Tx, list AccessList) error {
	b, err := resetBucket(tx, bucketAccessList)
	if err != nil {
		return err
	}
	for i, e := range list {
		v, err := cbor.Marshal(e)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(i), v); err != nil {
			return err
		}
	}
	return nil
}
