package table

import (
	"encoding/binary"
	"math"

	"github.com/lox/vpstrat/internal/hold"
)

// LegacyRecord is a legacy-format entry: a best hold and its EV only.
type LegacyRecord struct {
	Hold hold.Mask
	EV   float32
}

// LegacyTable is an opened legacy (VPST) table. It is kept for comparing old
// generated files against extended tables; lookups are served from the
// extended format.
type LegacyTable struct {
	*mapped
}

// OpenLegacy maps and validates a legacy-format table.
func OpenLegacy(path string) (*LegacyTable, error) {
	m, err := openMapped(path, LegacyMagic, LegacyRecordSize)
	if err != nil {
		return nil, err
	}
	return &LegacyTable{mapped: m}, nil
}

// Record decodes entry i. i must be in [0, Len()).
func (t *LegacyTable) Record(i int) LegacyRecord {
	b := t.record(i)
	return LegacyRecord{
		Hold: hold.Mask(b[0]) & hold.All,
		EV:   math.Float32frombits(binary.LittleEndian.Uint32(b[1:5])),
	}
}

// Lookup searches for key and decodes its record.
func (t *LegacyTable) Lookup(key []byte) (LegacyRecord, error) {
	i, err := t.Search(key)
	if err != nil {
		return LegacyRecord{}, err
	}
	return t.Record(i), nil
}
