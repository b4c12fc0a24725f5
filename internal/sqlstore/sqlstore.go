// Package sqlstore serves strategy records from a SQLite database. It backs
// paytables that were imported from JSON exports rather than shipped as
// binary tables, and is consulted after them.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	_ "modernc.org/sqlite"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS strategies (
	paytable_id TEXT NOT NULL,
	hand_key    TEXT NOT NULL,
	best_hold   INTEGER NOT NULL,
	best_ev     REAL NOT NULL,
	hold_evs    TEXT NOT NULL,
	PRIMARY KEY (paytable_id, hand_key)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS paytable_meta (
	paytable_id   TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	version       INTEGER NOT NULL,
	hand_count    INTEGER NOT NULL,
	imported_at   TEXT
);
`

// batchSize is how many rows Import commits per transaction
const batchSize = 10000

// Meta describes an imported paytable.
type Meta struct {
	PaytableID  string
	DisplayName string
	Version     int
	HandCount   int
	ImportedAt  time.Time
}

// Store is a SQLite-backed strategy source. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *log.Logger
	clock  quartz.Clock
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure %s: %w", path, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	return &Store{
		db:     db,
		logger: logger.WithPrefix("sqlite"),
		clock:  quartz.NewReal(),
	}, nil
}

// SetClock replaces the clock used to stamp imports
func (s *Store) SetClock(clock quartz.Clock) {
	s.clock = clock
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the record for key. Records carry decoded EVs only; Raw
// and Scale are zero.
func (s *Store) Lookup(paytableID string, key canonical.Key) (*table.Record, bool) {
	var (
		bestHold int
		bestEV   float64
		holdEVs  string
	)
	err := s.db.QueryRow(
		"SELECT best_hold, best_ev, hold_evs FROM strategies WHERE paytable_id = ? AND hand_key = ?",
		paytableID, string(key),
	).Scan(&bestHold, &bestEV, &holdEVs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Error("Lookup failed", "paytable", paytableID, "key", key, "error", err)
		return nil, false
	}

	rec := &table.Record{BestHold: hold.Mask(bestHold) & hold.All}
	if err := decodeEVs(holdEVs, &rec.EVs); err != nil {
		s.logger.Warn("Ignoring malformed hold EVs", "paytable", paytableID, "key", key, "error", err)
	}
	rec.EVs[rec.BestHold] = bestEV
	return rec, true
}

func decodeEVs(text string, evs *[hold.NumMasks]float64) error {
	var byMask map[string]float64
	if err := json.Unmarshal([]byte(text), &byMask); err != nil {
		return err
	}
	for name, ev := range byMask {
		m, err := strconv.Atoi(name)
		if err != nil || m < 0 || m >= hold.NumMasks {
			return fmt.Errorf("invalid hold mask %q", name)
		}
		evs[m] = ev
	}
	return nil
}

func encodeEVs(evs *[hold.NumMasks]float64) (string, error) {
	byMask := make(map[string]float64, hold.NumMasks)
	for m, ev := range evs {
		byMask[strconv.Itoa(m)] = ev
	}
	b, err := json.Marshal(byMask)
	return string(b), err
}

// Count returns how many hands are stored for paytableID.
func (s *Store) Count(paytableID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM strategies WHERE paytable_id = ?", paytableID).Scan(&n)
	return n, err
}

// HasData reports whether any hands are stored for paytableID.
func (s *Store) HasData(paytableID string) bool {
	n, err := s.Count(paytableID)
	if err != nil {
		s.logger.Error("Count failed", "paytable", paytableID, "error", err)
		return false
	}
	return n > 0
}

// Preload is HasData; there is nothing to warm.
func (s *Store) Preload(paytableID string) bool {
	return s.HasData(paytableID)
}

// Available lists imported paytable ids, sorted.
func (s *Store) Available() []string {
	rows, err := s.db.Query("SELECT DISTINCT paytable_id FROM strategies ORDER BY paytable_id")
	if err != nil {
		s.logger.Error("Listing paytables failed", "error", err)
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			s.logger.Error("Listing paytables failed", "error", err)
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

// Paytables returns metadata for every import.
func (s *Store) Paytables(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT paytable_id, display_name, version, hand_count, imported_at FROM paytable_meta ORDER BY paytable_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var (
			m          Meta
			importedAt sql.NullString
		)
		if err := rows.Scan(&m.PaytableID, &m.DisplayName, &m.Version, &m.HandCount, &importedAt); err != nil {
			return nil, err
		}
		if importedAt.Valid {
			m.ImportedAt, _ = time.Parse(time.RFC3339, importedAt.String)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Import replaces paytableID's hands with entries. Rows are committed in
// batches, so a failed import can leave a partial paytable behind; re-run
// it or Delete.
func (s *Store) Import(ctx context.Context, meta Meta, entries []table.Entry) (int, error) {
	if meta.PaytableID == "" {
		return 0, fmt.Errorf("import: empty paytable id")
	}
	if err := s.Delete(ctx, meta.PaytableID); err != nil {
		return 0, err
	}

	imported := 0
	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		if err := s.insertBatch(ctx, meta.PaytableID, entries[start:end]); err != nil {
			return imported, fmt.Errorf("import %s: %w", meta.PaytableID, err)
		}
		imported = end
	}

	if meta.Version == 0 {
		meta.Version = 1
	}
	if meta.DisplayName == "" {
		meta.DisplayName = meta.PaytableID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO paytable_meta (paytable_id, display_name, version, hand_count, imported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		meta.PaytableID, meta.DisplayName, meta.Version, imported, s.clock.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return imported, fmt.Errorf("import %s: %w", meta.PaytableID, err)
	}

	s.logger.Info("Imported strategies", "paytable", meta.PaytableID, "hands", imported)
	return imported, nil
}

func (s *Store) insertBatch(ctx context.Context, paytableID string, entries []table.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO strategies (paytable_id, hand_key, best_hold, best_ev, hold_evs) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if e.BestHold > hold.All {
			return fmt.Errorf("%s: hold %d out of range", e.Key, e.BestHold)
		}
		evs, err := encodeEVs(&e.EVs)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, paytableID, e.Key, int(e.BestHold), e.EVs[e.BestHold], evs); err != nil {
			return fmt.Errorf("%s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}

// Delete removes every hand and the metadata of paytableID.
func (s *Store) Delete(ctx context.Context, paytableID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM strategies WHERE paytable_id = ?", paytableID); err != nil {
		return fmt.Errorf("delete %s: %w", paytableID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM paytable_meta WHERE paytable_id = ?", paytableID); err != nil {
		return fmt.Errorf("delete %s: %w", paytableID, err)
	}
	return tx.Commit()
}
