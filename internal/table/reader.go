package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"os"

	"github.com/lox/vpstrat/internal/hold"
)

// maxKeyLen bounds the on-stack padding buffer used by Search.
const maxKeyLen = 32

// mapped is a validated, read-only view over a table file shared by both
// formats. Its bytes are never written.
type mapped struct {
	path       string
	data       []byte
	header     Header
	count      int
	keyLen     int
	recordSize int
	dataOff    int
	unmap      func() error
}

func openMapped(path string, magic [4]byte, recordSize int) (*mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if size < HeaderSize {
		return nil, fmt.Errorf("%s: %w: %d bytes, need %d", path, ErrTooSmall, size, HeaderSize)
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("%s: %w: %d bytes", path, ErrBadHeader, size)
	}

	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}

	m, err := validate(path, data, magic, recordSize)
	if err != nil {
		_ = unmap()
		return nil, err
	}
	m.unmap = unmap
	return m, nil
}

func validate(path string, data []byte, magic [4]byte, recordSize int) (*mapped, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%s: %w: expected %q, got %q", path, ErrBadMagic, magic[:], h.Magic[:])
	}
	if h.KeyLen != StandardKeyLen && h.KeyLen != WildKeyLen {
		return nil, fmt.Errorf("%s: %w: key length %d, expected %d or %d",
			path, ErrBadHeader, h.KeyLen, StandardKeyLen, WildKeyLen)
	}
	if need := h.Size(recordSize); int64(len(data)) < need {
		return nil, fmt.Errorf("%s: %w: %d entries need %d bytes, have %d",
			path, ErrTruncated, h.Count, need, len(data))
	}

	count := int(h.Count)
	keyLen := int(h.KeyLen)
	return &mapped{
		path:       path,
		data:       data,
		header:     h,
		count:      count,
		keyLen:     keyLen,
		recordSize: recordSize,
		dataOff:    HeaderSize + count*keyLen,
	}, nil
}

// Path returns the file the table was opened from
func (m *mapped) Path() string { return m.path }

// Header returns the decoded file header
func (m *mapped) Header() Header { return m.header }

// Len returns the number of entries
func (m *mapped) Len() int { return m.count }

// KeyLen returns the width of each key in the index
func (m *mapped) KeyLen() int { return m.keyLen }

// Wild reports whether the table was generated for a wild-card game
func (m *mapped) Wild() bool { return m.header.Wild() }

// Search returns the record index of key using binary search over the
// mapped index section. A key shorter than a wild table's key width is
// compared as if zero-padded, which is how generators store 10-byte hands in
// 12-byte slots.
func (m *mapped) Search(key []byte) (int, error) {
	k := m.keyLen
	if len(key) != k {
		if len(key) > k || !m.header.Wild() {
			return -1, fmt.Errorf("%w: table %d, query %d", ErrKeyLength, k, len(key))
		}
		var padded [maxKeyLen]byte
		copy(padded[:], key)
		return m.search(padded[:k])
	}
	return m.search(key)
}

func (m *mapped) search(key []byte) (int, error) {
	k := m.keyLen
	index := m.data[HeaderSize:m.dataOff]

	lo, hi := 0, m.count-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch cmp := bytes.Compare(index[mid*k:mid*k+k], key); {
		case cmp == 0:
			return mid, nil
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1, ErrNotFound
}

// KeyAt returns the raw index key of entry i, including any zero padding.
// The slice aliases the mapping and must not be modified.
func (m *mapped) KeyAt(i int) []byte {
	off := HeaderSize + i*m.keyLen
	return m.data[off : off+m.keyLen : off+m.keyLen]
}

// Keys iterates over the index in stored order.
func (m *mapped) Keys() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		for i := 0; i < m.count; i++ {
			if !yield(i, m.KeyAt(i)) {
				return
			}
		}
	}
}

func (m *mapped) record(i int) []byte {
	off := m.dataOff + i*m.recordSize
	return m.data[off : off+m.recordSize]
}

// Close releases the mapping. The table must not be used afterwards.
func (m *mapped) Close() error {
	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.unmap = nil
	m.data = nil
	return err
}

// Record is a decoded extended-format entry. Hold masks index canonical
// (sorted) card positions.
type Record struct {
	BestHold hold.Mask
	Scale    uint8
	Raw      [hold.NumMasks]uint16
	EVs      [hold.NumMasks]float64
}

// BestEV returns the EV of the best hold
func (r *Record) BestEV() float64 {
	return r.EVs[r.BestHold&hold.All]
}

// Table is an opened extended-format (VPS2) strategy table.
type Table struct {
	*mapped
}

// Open maps and validates an extended-format table. Any validation failure
// releases the mapping; a returned Table is always fully valid.
func Open(path string) (*Table, error) {
	m, err := openMapped(path, Magic, RecordSize)
	if err != nil {
		return nil, err
	}
	return &Table{mapped: m}, nil
}

// Record decodes entry i straight from the mapped data section. i must be
// in [0, Len()).
func (t *Table) Record(i int) Record {
	b := t.record(i)
	r := Record{
		BestHold: hold.Mask(b[0]) & hold.All,
		Scale:    b[1],
	}
	for mask := range r.Raw {
		raw := binary.LittleEndian.Uint16(b[2+2*mask:])
		r.Raw[mask] = raw
		r.EVs[mask] = DecodeEV(raw, r.Scale)
	}
	return r
}

// Lookup searches for key and decodes its record.
func (t *Table) Lookup(key []byte) (Record, error) {
	i, err := t.Search(key)
	if err != nil {
		return Record{}, err
	}
	return t.Record(i), nil
}
