package verify

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/store"
	"github.com/lox/vpstrat/internal/table"
)

func entry(key string, best hold.Mask, evs map[hold.Mask]float64) table.Entry {
	e := table.Entry{Key: key, BestHold: best}
	for m, ev := range evs {
		e.EVs[m] = ev
	}
	return e
}

func goodEntries() []table.Entry {
	return []table.Entry{
		entry("9aJbQbKbAb", 30, map[hold.Mask]float64{30: 18.362, 16: 0.475, 0: 0.359}),
		entry("2a3b4c5d7d", 0, map[hold.Mask]float64{0: 0.359, 1: 0.3}),
		entry("TaTbJcQdAa", 3, map[hold.Mask]float64{3: 0.823, 16: 0.47}),
	}
}

func openTable(t *testing.T, data []byte) *table.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy_test.vpstrat2")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	tbl, err := table.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func build(t *testing.T, entries []table.Entry) []byte {
	t.Helper()
	data, err := table.Build(entries, false)
	require.NoError(t, err)
	return data
}

func TestCheckTableClean(t *testing.T) {
	r := CheckTable(openTable(t, build(t, goodEntries())), 1e-4)
	assert.True(t, r.OK(), "%v", r.Problems)
	assert.Equal(t, 3, r.Entries)
	assert.Empty(t, r.Problems)
}

func TestCheckTableInconsistentBestHold(t *testing.T) {
	entries := goodEntries()
	entries[1] = entry("2a3b4c5d7d", 1, map[hold.Mask]float64{0: 0.359, 1: 0.3})

	r := CheckTable(openTable(t, build(t, entries)), 1e-4)
	assert.False(t, r.OK())
	assert.Equal(t, 1, r.Inconsistent)
	require.Len(t, r.Problems, 1)
	assert.Equal(t, "2a3b4c5d7d", r.Problems[0].Key)

	// A gap inside the tolerance is a tie, not a defect.
	entries[1] = entry("2a3b4c5d7d", 1, map[hold.Mask]float64{0: 0.3591, 1: 0.359})
	r = CheckTable(openTable(t, build(t, entries)), 1e-3)
	assert.True(t, r.OK(), "%v", r.Problems)
}

func TestCheckTableUnsortedIndex(t *testing.T) {
	data := build(t, goodEntries())
	first := data[table.HeaderSize : table.HeaderSize+table.StandardKeyLen]
	second := data[table.HeaderSize+table.StandardKeyLen : table.HeaderSize+2*table.StandardKeyLen]
	tmp := string(first)
	copy(first, second)
	copy(second, tmp)

	r := CheckTable(openTable(t, data), 1e-4)
	assert.False(t, r.OK())
	assert.Equal(t, 1, r.Unsorted)
	assert.Positive(t, r.Unfindable)
}

func TestCheckTableBadScale(t *testing.T) {
	data := build(t, goodEntries())
	dataOff := table.HeaderSize + 3*table.StandardKeyLen
	data[dataOff+1] = 7

	r := CheckTable(openTable(t, data), 1e-4)
	assert.Equal(t, 1, r.BadScale)
	assert.False(t, r.OK())
}

func TestCoverage(t *testing.T) {
	tbl := openTable(t, build(t, goodEntries()))
	keys := []canonical.Key{"2a3b4c5d7d", "9aJbQbKbAb", "2a2b2c2d3a", "AaAbAcAdKa"}

	r := Coverage(tbl, keys)
	assert.Equal(t, 4, r.Expected)
	assert.Equal(t, 2, r.Missing)
	assert.Equal(t, []string{"2a2b2c2d3a", "AaAbAcAdKa"}, r.Sample)
}

func TestCompareAgainstLegacy(t *testing.T) {
	tbl := openTable(t, build(t, goodEntries()))

	legacyData, err := table.BuildLegacy([]table.LegacyEntry{
		{Key: "9aJbQbKbAb", Hold: 30, EV: 18.3617},
		{Key: "2a3b4c5d7d", Hold: 1, EV: 0.359},
	}, false)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "strategy_test.vpstrat")
	require.NoError(t, os.WriteFile(path, legacyData, 0o644))
	legacy, err := table.OpenLegacy(path)
	require.NoError(t, err)
	defer legacy.Close()

	c := Compare(tbl, LegacyReference(legacy), 1e-4)
	assert.Equal(t, 3, c.Compared)
	assert.Equal(t, 1, c.HoldMatches)
	assert.Equal(t, 2, c.EVMatches)
	assert.Equal(t, 1, c.Missing)
	require.Len(t, c.Mismatches, 2)

	byKey := map[string]Mismatch{}
	for _, m := range c.Mismatches {
		byKey[m.Key] = m
	}
	assert.Equal(t, hold.Mask(1), byKey["2a3b4c5d7d"].RefHold)
	assert.False(t, byKey["TaTbJcQdAa"].RefFound)
}

type recordMap map[canonical.Key]table.Record

func (m recordMap) Lookup(_ string, key canonical.Key) (*table.Record, bool) {
	rec, ok := m[key]
	return &rec, ok
}

func TestCompareAgainstSource(t *testing.T) {
	tbl := openTable(t, build(t, goodEntries()))
	src := recordMap{}
	for _, e := range goodEntries() {
		src[canonical.Key(e.Key)] = table.Record{BestHold: e.BestHold, EVs: e.EVs}
	}

	c := Compare(tbl, SourceReference(src, "jacks-or-better-9-6"), 1e-4)
	assert.Equal(t, 3, c.HoldMatches)
	assert.Equal(t, 3, c.EVMatches)
	assert.Empty(t, c.Mismatches)
}

func TestVerifyAll(t *testing.T) {
	r := store.Resolver{BundleDir: t.TempDir()}
	require.NoError(t, os.WriteFile(r.BundlePath("jacks-or-better-9-6"), build(t, goodEntries()), 0o644))
	require.NoError(t, os.WriteFile(r.BundlePath("broken"), []byte("VPS2"), 0o644))

	logger := log.NewWithOptions(io.Discard, log.Options{})
	st := store.New(r, logger)
	defer st.Clear()

	v := New(logger, WithClock(quartz.NewMock(t)), WithWorkers(2))
	reports, err := v.VerifyAll(context.Background(), st, []string{"jacks-or-better-9-6", "broken", "missing"})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "jacks-or-better-9-6", reports[0].PaytableID)
	assert.True(t, reports[0].OK())
	assert.Equal(t, 3, reports[0].Entries)
	assert.Zero(t, reports[0].Duration, "mock clock does not move")

	assert.ErrorIs(t, reports[1].Err, table.ErrTooSmall)
	assert.False(t, reports[1].OK())
	assert.ErrorIs(t, reports[2].Err, store.ErrNoTable)
}

func TestVerifyAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := New(log.NewWithOptions(io.Discard, log.Options{}))
	_, err := v.VerifyAll(ctx, nil, []string{"a", "b"})
	assert.True(t, errors.Is(err, context.Canceled))
}
