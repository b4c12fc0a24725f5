// Package store keeps at most one memory-mapped strategy table per paytable
// and serves record lookups against them.
//
// Tables are opened lazily on first use. Concurrent first lookups for the
// same paytable share a single open; once a table is resident, lookups only
// take a read lock and run in parallel. The mapping itself is the working
// set: nothing is decoded into the heap beyond the records asked for.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/singleflight"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/fileutil"
	"github.com/lox/vpstrat/internal/table"
)

// ErrNoTable is returned when no file backs a paytable id.
var ErrNoTable = errors.New("no strategy table")

// Info describes a resident table.
type Info struct {
	PaytableID string
	Path       string
	Entries    int
	KeyLen     int
	Wild       bool
	LoadedAt   time.Time
}

type resident struct {
	table *table.Table
	info  Info
}

// Store owns the paytable id -> mapped table cache.
type Store struct {
	resolver Resolver
	logger   *log.Logger
	clock    quartz.Clock

	mu     sync.RWMutex
	tables map[string]*resident
	opens  singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp load times.
func WithClock(clock quartz.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New creates a store resolving files through resolver.
func New(resolver Resolver, logger *log.Logger, opts ...Option) *Store {
	s := &Store{
		resolver: resolver,
		logger:   logger.WithPrefix("store"),
		clock:    quartz.NewReal(),
		tables:   make(map[string]*resident),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the file resolver the store was built with
func (s *Store) Resolver() Resolver {
	return s.resolver
}

// Lookup returns the record for key in paytableID's table. It reports false
// when the table is missing or invalid, or the key is not in it; those
// conditions are logged, never returned.
func (s *Store) Lookup(paytableID string, key canonical.Key) (*table.Record, bool) {
	// A concurrent Unload can drop the table between load and read; retry
	// once rather than loop.
	for range 2 {
		rec, resident, found := s.lookupResident(paytableID, key)
		if resident {
			return rec, found
		}
		if err := s.load(paytableID); err != nil {
			return nil, false
		}
	}
	return nil, false
}

func (s *Store) lookupResident(paytableID string, key canonical.Key) (*table.Record, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.tables[paytableID]
	if !ok {
		return nil, false, false
	}

	rec, err := r.table.Lookup([]byte(key))
	switch {
	case err == nil:
		return &rec, true, true
	case errors.Is(err, table.ErrKeyLength):
		s.logger.Error("Key does not match table",
			"paytable", paytableID, "path", r.info.Path, "key", key, "error", err)
	default:
		s.logger.Warn("Hand missing from table", "paytable", paytableID, "key", key)
	}
	return nil, true, false
}

// Preload opens and validates paytableID's table ahead of its first lookup.
// It reports whether the table is resident afterwards.
func (s *Store) Preload(paytableID string) bool {
	return s.load(paytableID) == nil
}

// IsLoaded reports whether paytableID's table is resident
func (s *Store) IsLoaded(paytableID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[paytableID]
	return ok
}

func (s *Store) load(paytableID string) error {
	_, err, _ := s.opens.Do(paytableID, func() (any, error) {
		if s.IsLoaded(paytableID) {
			return nil, nil
		}

		path, ok := s.resolver.Path(paytableID)
		if !ok {
			s.logger.Debug("No strategy table", "paytable", paytableID)
			return nil, fmt.Errorf("%w for %s", ErrNoTable, paytableID)
		}

		t, err := table.Open(path)
		if err != nil {
			s.logger.Error("Rejected strategy table", "paytable", paytableID, "path", path, "error", err)
			return nil, err
		}

		info := Info{
			PaytableID: paytableID,
			Path:       path,
			Entries:    t.Len(),
			KeyLen:     t.KeyLen(),
			Wild:       t.Wild(),
			LoadedAt:   s.clock.Now(),
		}

		s.mu.Lock()
		s.tables[paytableID] = &resident{table: t, info: info}
		s.mu.Unlock()

		s.logger.Info("Loaded strategy table",
			"paytable", paytableID,
			"path", path,
			"entries", info.Entries,
			"keyLen", info.KeyLen,
			"wild", info.Wild)
		return nil, nil
	})
	return err
}

// Table returns the resident table for paytableID, opening it if needed.
// The table stays valid until Unload or Clear.
func (s *Store) Table(paytableID string) (*table.Table, error) {
	if err := s.load(paytableID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.tables[paytableID]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoTable, paytableID)
	}
	return r.table, nil
}

// Unload drops and unmaps paytableID's table.
func (s *Store) Unload(paytableID string) {
	s.mu.Lock()
	r, ok := s.tables[paytableID]
	delete(s.tables, paytableID)
	s.mu.Unlock()

	if ok {
		s.closeTable(r)
	}
}

// Clear drops and unmaps every resident table.
func (s *Store) Clear() {
	s.mu.Lock()
	tables := s.tables
	s.tables = make(map[string]*resident)
	s.mu.Unlock()

	for _, r := range tables {
		s.closeTable(r)
	}
}

// Close releases all mappings.
func (s *Store) Close() error {
	s.Clear()
	return nil
}

func (s *Store) closeTable(r *resident) {
	// The write lock taken by the caller has drained every reader.
	if err := r.table.Close(); err != nil {
		s.logger.Warn("Failed to unmap table", "paytable", r.info.PaytableID, "error", err)
		return
	}
	s.logger.Debug("Unloaded strategy table", "paytable", r.info.PaytableID)
}

// HasData reports whether a table file exists for paytableID. It does not
// open or validate the file.
func (s *Store) HasData(paytableID string) bool {
	_, ok := s.resolver.Path(paytableID)
	return ok
}

// Available lists paytable ids with a table file, bundled or downloaded.
func (s *Store) Available() []string {
	return s.resolver.Available()
}

// Loaded describes the resident tables, sorted by paytable id.
func (s *Store) Loaded() []Info {
	s.mu.RLock()
	infos := make([]Info, 0, len(s.tables))
	for _, r := range s.tables {
		infos = append(infos, r.info)
	}
	s.mu.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int {
		switch {
		case a.PaytableID < b.PaytableID:
			return -1
		case a.PaytableID > b.PaytableID:
			return 1
		default:
			return 0
		}
	})
	return infos
}

// InstallPath is where a downloader must place paytableID's table.
func (s *Store) InstallPath(paytableID string) string {
	return s.resolver.CachePath(paytableID)
}

// Install writes a downloaded table from r into the cache directory. The
// file is validated before it replaces any existing download, and a
// resident mapping of the old file is dropped.
func (s *Store) Install(paytableID string, r io.Reader) error {
	if !ValidID(paytableID) {
		return fmt.Errorf("install: invalid paytable id %q", paytableID)
	}
	dest := s.InstallPath(paytableID)
	staging := dest + ".download"

	n, err := fileutil.WriteAtomic(staging, r, 0o644)
	if err != nil {
		return fmt.Errorf("install %s: %w", paytableID, err)
	}

	t, err := table.Open(staging)
	if err != nil {
		os.Remove(staging)
		s.logger.Error("Rejected downloaded table", "paytable", paytableID, "bytes", n, "error", err)
		return fmt.Errorf("install %s: %w", paytableID, err)
	}
	entries := t.Len()
	t.Close()

	if err := os.Rename(staging, dest); err != nil {
		os.Remove(staging)
		return fmt.Errorf("install %s: %w", paytableID, err)
	}

	s.Unload(paytableID)

	if path, _ := s.resolver.Path(paytableID); path != dest {
		s.logger.Warn("Installed table is shadowed by bundled table", "paytable", paytableID, "bundle", path)
	}
	s.logger.Info("Installed strategy table", "paytable", paytableID, "path", dest, "entries", entries, "bytes", n)
	return nil
}
