// Package stratjson reads and writes the JSON strategy export that tables
// are generated from. Files may be gzip-compressed.
package stratjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/table"
)

// File is one paytable's exported strategy.
type File struct {
	Game       string              `json:"game,omitempty"`
	PaytableID string              `json:"paytable_id"`
	Version    int                 `json:"version"`
	Generated  string              `json:"generated,omitempty"`
	HandCount  int                 `json:"hand_count"`
	Strategies map[string]Strategy `json:"strategies"`
}

// Strategy is the exported decision for one canonical key. HoldEVs is keyed
// by the decimal hold mask.
type Strategy struct {
	Hold    int                `json:"hold"`
	EV      float64            `json:"ev"`
	HoldEVs map[string]float64 `json:"hold_evs,omitempty"`
}

// Read decodes an export, transparently decompressing gzip input.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return decode(zr)
	}
	return decode(br)
}

func decode(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode strategy export: %w", err)
	}
	if f.Strategies == nil {
		return nil, fmt.Errorf("decode strategy export: no strategies object")
	}
	return &f, nil
}

// ReadFile reads an export from disk.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write encodes f, gzip-compressed when compress is set.
func Write(w io.Writer, f *File, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(f)
	}
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(f); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Wild reports whether any key holds the joker.
func (f *File) Wild() bool {
	for key := range f.Strategies {
		if strings.ContainsRune(key, 'W') {
			return true
		}
	}
	return false
}

// Entries converts the export into table entries sorted by key. A hand
// with no per-hold EVs gets only its best EV filled in.
func (f *File) Entries() ([]table.Entry, error) {
	keys := slices.Sorted(maps.Keys(f.Strategies))

	entries := make([]table.Entry, 0, len(keys))
	for _, key := range keys {
		s := f.Strategies[key]
		if s.Hold < 0 || s.Hold >= hold.NumMasks {
			return nil, fmt.Errorf("%s: hold %d out of range", key, s.Hold)
		}
		e := table.Entry{Key: key, BestHold: hold.Mask(s.Hold)}
		for name, ev := range s.HoldEVs {
			mask, err := strconv.Atoi(name)
			if err != nil || mask < 0 || mask >= hold.NumMasks {
				return nil, fmt.Errorf("%s: invalid hold mask %q", key, name)
			}
			e.EVs[mask] = ev
		}
		if len(s.HoldEVs) == 0 {
			e.EVs[e.BestHold] = s.EV
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FromEntries builds an export from decoded table entries.
func FromEntries(paytableID string, entries []table.Entry) *File {
	f := &File{
		PaytableID: paytableID,
		Version:    1,
		HandCount:  len(entries),
		Strategies: make(map[string]Strategy, len(entries)),
	}
	for _, e := range entries {
		evs := make(map[string]float64, hold.NumMasks)
		for m, ev := range e.EVs {
			evs[strconv.Itoa(m)] = ev
		}
		f.Strategies[e.Key] = Strategy{
			Hold:    int(e.BestHold),
			EV:      e.EVs[e.BestHold],
			HoldEVs: evs,
		}
	}
	return f
}
