// Package table reads and writes the binary strategy table format.
//
// A table file is laid out as
//
//	header  64 bytes: magic[4] version:u16 flags:u16 count:u32 keylen:u8 reserved[51]
//	index   count*keylen bytes of canonical keys, ascending by byte value
//	data    count fixed-size records
//
// All integers are little-endian. Extended ("VPS2", .vpstrat2) records are
// best_hold:u8 scale:u8 evs:[32]u16 and decode as evs[m]*Scales[scale].
// Legacy ("VPST", .vpstrat) records are hold:u8 ev:f32 with no per-mask EVs.
//
// Tables are opened through a read-only memory mapping and searched in place;
// nothing beyond the header is decoded until a record is asked for.
package table

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// HeaderSize is the fixed size of the file header
	HeaderSize = 64

	// Version is the format version written by this package
	Version uint16 = 2

	// FlagWild marks tables for games with a joker/wild card
	FlagWild uint16 = 1 << 0

	// StandardKeyLen and WildKeyLen are the two key widths in use
	StandardKeyLen = 10
	WildKeyLen     = 12

	// RecordSize is the size of one extended record: hold, scale, 32 EV codes
	RecordSize = 2 + 2*32

	// LegacyRecordSize is the size of one legacy record: hold, float32 EV
	LegacyRecordSize = 1 + 4

	// Ext and LegacyExt are the file extensions of the two formats
	Ext       = ".vpstrat2"
	LegacyExt = ".vpstrat"
)

var (
	// Magic identifies extended tables
	Magic = [4]byte{'V', 'P', 'S', '2'}
	// LegacyMagic identifies legacy float-EV tables
	LegacyMagic = [4]byte{'V', 'P', 'S', 'T'}
)

// Scales are the fixed-point step sizes selected by a record's scale byte.
var Scales = [4]float64{0.0001, 0.001, 0.01, 0.1}

var (
	ErrTooSmall  = errors.New("file too small for header")
	ErrBadMagic  = errors.New("invalid magic number")
	ErrBadHeader = errors.New("invalid header")
	ErrTruncated = errors.New("file truncated")
	ErrKeyLength = errors.New("key length mismatch")
	ErrNotFound  = errors.New("key not found")
)

// Header is the decoded fixed-size file header.
type Header struct {
	Magic   [4]byte
	Version uint16
	Flags   uint16
	Count   uint32
	KeyLen  uint8
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTooSmall, len(b))
	}
	var h Header
	copy(h.Magic[:], b[0:4])
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	h.Flags = binary.LittleEndian.Uint16(b[6:8])
	h.Count = binary.LittleEndian.Uint32(b[8:12])
	h.KeyLen = b[12]
	return h, nil
}

// MarshalBinary encodes the header into HeaderSize bytes, reserved bytes zero.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	copy(b[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.Flags)
	binary.LittleEndian.PutUint32(b[8:12], h.Count)
	b[12] = h.KeyLen
	return b, nil
}

// Wild reports whether the table covers a wild-card game
func (h Header) Wild() bool {
	return h.Flags&FlagWild != 0
}

// Size returns the minimum file size implied by the header for the given
// record size.
func (h Header) Size(recordSize int) int64 {
	n := int64(h.Count)
	return HeaderSize + n*int64(h.KeyLen) + n*int64(recordSize)
}

// DecodeEV converts a raw EV code with the given scale selector into an EV.
// Selectors above 3 are treated as 3.
func DecodeEV(raw uint16, scale uint8) float64 {
	return float64(raw) * Scales[min(scale, 3)]
}

// ChooseScale returns the finest scale selector able to represent every EV
// in evs within a 16-bit code.
func ChooseScale(evs *[32]float64) uint8 {
	maxEV := 0.0
	for _, ev := range evs {
		maxEV = math.Max(maxEV, ev)
	}
	switch {
	case maxEV <= 6.5535:
		return 0
	case maxEV <= 65.535:
		return 1
	case maxEV <= 655.35:
		return 2
	default:
		return 3
	}
}

// EncodeEV rounds ev to the nearest code at the given scale, clamped to the
// u16 range.
func EncodeEV(ev float64, scale uint8) uint16 {
	code := math.Round(ev / Scales[min(scale, 3)])
	switch {
	case code <= 0 || math.IsNaN(code):
		return 0
	case code >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(code)
	}
}
