// Package store persists the two record sets of the whitelist: gamertag
// applications and the resolved access list read by the game server.
//
// Every backend loads a missing collection as its empty default. A collection
// that exists but cannot be decoded is reset to the empty default, rewritten
// durably, and reported as a CorruptionEvent. Saves replace the whole
// collection and return an error whenever the new content may not have been
// committed.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"
)

// Status is the review state of an application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved
}

// Application is a submitted gamertag.
type Application struct {
	RequesterID string `json:"discordId"`
	Status      Status `json:"status"`
}

// AccessEntry is an approved gamertag with its resolved external identifier.
type AccessEntry struct {
	Name string `json:"name" cbor:"1,keyasint"`
	XUID string `json:"xuid" cbor:"2,keyasint"`
}

// AccessList is the ordered list of access grants.
type AccessList []AccessEntry

// HasXUID reports whether any entry carries xuid.
func (l AccessList) HasXUID(xuid string) bool {
	return slices.ContainsFunc(l, func(e AccessEntry) bool { return e.XUID == xuid })
}

// WithoutName returns the list minus every entry named name, and whether
// anything was removed. The receiver is not modified.
func (l AccessList) WithoutName(name string) (AccessList, bool) {
	out := make(AccessList, 0, len(l))
	for _, e := range l {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out, len(out) != len(l)
}

// Collection names one persisted record set.
type Collection string

const (
	CollectionApplications Collection = "applications"
	CollectionAccessList   Collection = "allowlist"
)

// CorruptionEvent describes a collection that failed to decode and was reset
// to its empty default. The previous content is lost.
type CorruptionEvent struct {
	Collection Collection
	Resource   string // File path, bucket or table.
	Err        error
}

// ErrLocked is returned when another process holds the data directory.
var ErrLocked = errors.New("store: data directory is locked by another process")

// Store loads and saves both collections.
type Store interface {
	// LoadApplications returns the persisted applications, or an empty set.
	LoadApplications(ctx context.Context) (*Applications, error)
	// SaveApplications replaces the persisted applications.
	SaveApplications(ctx context.Context, apps *Applications) error
	// LoadAccessList returns the persisted access list, or an empty list.
	LoadAccessList(ctx context.Context) (AccessList, error)
	// SaveAccessList replaces the persisted access list.
	SaveAccessList(ctx context.Context, list AccessList) error
	// Close releases the store.
	Close() error
}

// Committer is implemented by stores that can replace both collections in a
// single transaction.
type Committer interface {
	Commit(ctx context.Context, apps *Applications, list AccessList) error
}

// Exporter is implemented by stores that mirror the access list into a file
// read by the game server. Export rewrites that file from the stored list.
type Exporter interface {
	Export(ctx context.Context) error
}

// quarantine renames a damaged database file aside and returns the new name.
func quarantine(path string, now time.Time) (string, error) {
	aside := path + ".corrupt-" + now.UTC().Format("20060102T150405Z")
	if err := os.Rename(path, aside); err != nil {
		return "", fmt.Errorf("move damaged database aside: %w", err)
	}
	return aside, nil
}

// reportDatabaseReset reports both collections of a database that was moved
// aside and recreated empty.
func (r corruptionReporter) reportDatabaseReset(aside string, err error) {
	for _, c := range []Collection{CollectionApplications, CollectionAccessList} {
		r.report(CorruptionEvent{Collection: c, Resource: aside, Err: err})
	}
}

// corruptionReporter is shared by the backends.
type corruptionReporter struct {
	log       *slog.Logger
	onCorrupt func(CorruptionEvent)
}

func newCorruptionReporter(log *slog.Logger, onCorrupt func(CorruptionEvent)) corruptionReporter {
	if log == nil {
		log = slog.Default()
	}
	return corruptionReporter{log: log, onCorrupt: onCorrupt}
}

func (r corruptionReporter) report(ev CorruptionEvent) {
	r.log.Warn("collection unreadable, reset to empty",
		"collection", string(ev.Collection),
		"resource", ev.Resource,
		"err", ev.Err,
	)
	if r.onCorrupt != nil {
		r.onCorrupt(ev)
	}
}

// validateApplications rejects decoded content that is well-formed but
// unusable.
func validateApplications(apps *Applications) error {
	if apps == nil {
		return errors.New("null document")
	}
	var err error
	apps.Range(func(tag string, app Application) bool {
		if !app.Status.Valid() {
			err = fmt.Errorf("gamertag %q: unknown status %q", tag, app.Status)
			return false
		}
		return true
	})
	return err
}

func validateAccessList(list AccessList) error {
	if list == nil {
		return errors.New("null document")
	}
	return nil
}
