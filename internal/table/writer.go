package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/lox/vpstrat/internal/fileutil"
	"github.com/lox/vpstrat/internal/hold"
)

// Entry is one hand's strategy as produced by an offline solver.
type Entry struct {
	Key      string
	BestHold hold.Mask
	EVs      [hold.NumMasks]float64
}

// LegacyEntry is one hand's strategy in the legacy format.
type LegacyEntry struct {
	Key  string
	Hold hold.Mask
	EV   float32
}

// Build encodes entries as an extended-format table. Keys are sorted; wild
// tables use 12-byte key slots with short keys zero-padded.
func Build(entries []Entry, wild bool) ([]byte, error) {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return build(Magic, RecordSize, keys, wild, func(i int, dst []byte) {
		e := &entries[i]
		scale := ChooseScale(&e.EVs)
		dst[0] = byte(e.BestHold & hold.All)
		dst[1] = scale
		for m, ev := range e.EVs {
			binary.LittleEndian.PutUint16(dst[2+2*m:], EncodeEV(ev, scale))
		}
	})
}

// BuildLegacy encodes entries as a legacy-format table.
func BuildLegacy(entries []LegacyEntry, wild bool) ([]byte, error) {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return build(LegacyMagic, LegacyRecordSize, keys, wild, func(i int, dst []byte) {
		dst[0] = byte(entries[i].Hold & hold.All)
		binary.LittleEndian.PutUint32(dst[1:5], math.Float32bits(entries[i].EV))
	})
}

func build(magic [4]byte, recordSize int, keys []string, wild bool, encode func(i int, dst []byte)) ([]byte, error) {
	keyLen := StandardKeyLen
	var flags uint16
	if wild {
		keyLen = WildKeyLen
		flags |= FlagWild
	}

	padded := make([][]byte, len(keys))
	order := make([]int, len(keys))
	for i, key := range keys {
		if len(key) == 0 || len(key) > keyLen {
			return nil, fmt.Errorf("%w: key %q does not fit %d bytes", ErrKeyLength, key, keyLen)
		}
		padded[i] = make([]byte, keyLen)
		copy(padded[i], key)
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return bytes.Compare(padded[a], padded[b])
	})

	h := Header{
		Magic:   magic,
		Version: Version,
		Flags:   flags,
		Count:   uint32(len(keys)),
		KeyLen:  uint8(keyLen),
	}
	buf := make([]byte, h.Size(recordSize))
	hdr, _ := h.MarshalBinary()
	copy(buf, hdr)

	dataOff := HeaderSize + len(keys)*keyLen
	var prev []byte
	for pos, i := range order {
		slot := buf[HeaderSize+pos*keyLen : HeaderSize+(pos+1)*keyLen]
		copy(slot, padded[i])
		if prev != nil && bytes.Equal(prev, slot) {
			return nil, fmt.Errorf("duplicate key %q", keys[i])
		}
		prev = slot

		off := dataOff + pos*recordSize
		encode(i, buf[off:off+recordSize])
	}
	return buf, nil
}

// WriteFile writes an encoded table so that readers never observe a partial
// file.
func WriteFile(path string, data []byte) error {
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
