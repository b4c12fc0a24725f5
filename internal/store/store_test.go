package store

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/table"
)

const royalDraw = canonical.Key("9aJbQbKbAb")

func buildTable(t *testing.T, best hold.Mask) []byte {
	t.Helper()
	e := table.Entry{Key: string(royalDraw), BestHold: best}
	for m := range e.EVs {
		e.EVs[m] = 0.5
	}
	e.EVs[best] = 18.3617
	data, err := table.Build([]table.Entry{
		e,
		{Key: "2a3b4c5d7a", EVs: [32]float64{0: 0.3597}},
	}, false)
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestStore(t *testing.T, opts ...Option) (*Store, Resolver) {
	t.Helper()
	root := t.TempDir()
	r := Resolver{
		BundleDir: filepath.Join(root, "bundle"),
		CacheDir:  filepath.Join(root, "cache"),
	}
	s := New(r, log.NewWithOptions(io.Discard, log.Options{}), opts...)
	t.Cleanup(s.Clear)
	return s, r
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "strategy_jacks_or_better_9_6.vpstrat2", FileName("jacks-or-better-9-6"))

	id, ok := PaytableID("strategy_double_double_bonus_9_6.vpstrat2")
	require.True(t, ok)
	assert.Equal(t, "double-double-bonus-9-6", id)

	for _, name := range []string{"strategy_x.vpstrat", "other_x.vpstrat2", "strategy_.vpstrat2"} {
		_, ok := PaytableID(name)
		assert.False(t, ok, name)
	}
}

func TestLookupFromBundle(t *testing.T) {
	s, r := newTestStore(t)
	writeFile(t, r.BundlePath("jacks-or-better-9-6"), buildTable(t, 30))

	assert.True(t, s.HasData("jacks-or-better-9-6"))
	assert.False(t, s.IsLoaded("jacks-or-better-9-6"))

	rec, ok := s.Lookup("jacks-or-better-9-6", royalDraw)
	require.True(t, ok)
	assert.Equal(t, hold.Mask(30), rec.BestHold)
	assert.InDelta(t, 18.3617, rec.BestEV(), 1e-3)
	assert.True(t, s.IsLoaded("jacks-or-better-9-6"))

	_, ok = s.Lookup("jacks-or-better-9-6", "2a2b2c2d3a")
	assert.False(t, ok, "absent hand")
	assert.True(t, s.IsLoaded("jacks-or-better-9-6"), "a miss keeps the table")
}

func TestBundleTakesPrecedence(t *testing.T) {
	s, r := newTestStore(t)
	writeFile(t, r.BundlePath("bonus-poker-8-5"), buildTable(t, 30))
	writeFile(t, r.CachePath("bonus-poker-8-5"), buildTable(t, 1))

	path, ok := r.Path("bonus-poker-8-5")
	require.True(t, ok)
	assert.Equal(t, r.BundlePath("bonus-poker-8-5"), path)

	rec, ok := s.Lookup("bonus-poker-8-5", royalDraw)
	require.True(t, ok)
	assert.Equal(t, hold.Mask(30), rec.BestHold)
}

func TestLookupFromCache(t *testing.T) {
	s, r := newTestStore(t)
	writeFile(t, r.CachePath("deuces-wild-nsud"), buildTable(t, 15))

	rec, ok := s.Lookup("deuces-wild-nsud", royalDraw)
	require.True(t, ok)
	assert.Equal(t, hold.Mask(15), rec.BestHold)
}

func TestMissingPaytable(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.HasData("nonexistent-paytable"))
	assert.False(t, s.Preload("nonexistent-paytable"))
	rec, ok := s.Lookup("nonexistent-paytable", royalDraw)
	assert.False(t, ok)
	assert.Nil(t, rec)
	assert.Empty(t, s.Loaded())

	_, err := s.Table("nonexistent-paytable")
	assert.ErrorIs(t, err, ErrNoTable)

	_, ok = s.Resolver().Path("../etc/passwd")
	assert.False(t, ok)
}

func TestCorruptedTableIsNeverCached(t *testing.T) {
	s, r := newTestStore(t)
	data := buildTable(t, 30)
	copy(data, "JUNK")
	writeFile(t, r.BundlePath("jacks-or-better-9-6"), data)

	assert.True(t, s.HasData("jacks-or-better-9-6"), "the file exists")
	for range 3 {
		rec, ok := s.Lookup("jacks-or-better-9-6", royalDraw)
		assert.False(t, ok)
		assert.Nil(t, rec)
		assert.False(t, s.IsLoaded("jacks-or-better-9-6"))
	}
	assert.False(t, s.Preload("jacks-or-better-9-6"))

	_, err := s.Table("jacks-or-better-9-6")
	assert.ErrorIs(t, err, table.ErrBadMagic)
}

func TestRejectionIsLogged(t *testing.T) {
	var buf bytes.Buffer
	root := t.TempDir()
	r := Resolver{BundleDir: root}
	s := New(r, log.NewWithOptions(&buf, log.Options{}))
	defer s.Clear()

	writeFile(t, r.BundlePath("short"), []byte("VPS2"))
	assert.False(t, s.Preload("short"))
	assert.Contains(t, buf.String(), "Rejected strategy table")
	assert.Contains(t, buf.String(), r.BundlePath("short"))
}

func TestConcurrentFirstLookupOpensOnce(t *testing.T) {
	var buf bytes.Buffer
	root := t.TempDir()
	r := Resolver{BundleDir: root}
	s := New(r, log.NewWithOptions(&buf, log.Options{}))
	defer s.Clear()
	writeFile(t, r.BundlePath("jacks-or-better-9-6"), buildTable(t, 30))

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, ok := s.Lookup("jacks-or-better-9-6", royalDraw)
			assert.True(t, ok)
			assert.Equal(t, hold.Mask(30), rec.BestHold)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, strings.Count(buf.String(), "Loaded strategy table"))
	assert.Len(t, s.Loaded(), 1)
}

func TestUnloadAndClear(t *testing.T) {
	s, r := newTestStore(t)
	writeFile(t, r.BundlePath("a-game"), buildTable(t, 30))
	writeFile(t, r.BundlePath("b-game"), buildTable(t, 30))

	require.True(t, s.Preload("a-game"))
	require.True(t, s.Preload("b-game"))
	assert.Len(t, s.Loaded(), 2)

	s.Unload("a-game")
	assert.False(t, s.IsLoaded("a-game"))
	assert.True(t, s.IsLoaded("b-game"))

	_, ok := s.Lookup("a-game", royalDraw)
	assert.True(t, ok, "reloads after unload")

	s.Clear()
	assert.Empty(t, s.Loaded())
	s.Unload("never-loaded")
}

func TestLoadedInfo(t *testing.T) {
	mClock := quartz.NewMock(t)
	s, r := newTestStore(t, WithClock(mClock))
	writeFile(t, r.BundlePath("b-game"), buildTable(t, 30))
	writeFile(t, r.CachePath("a-game"), buildTable(t, 30))

	start := mClock.Now()
	require.True(t, s.Preload("b-game"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock.Advance(time.Minute).MustWait(ctx)
	require.True(t, s.Preload("a-game"))

	infos := s.Loaded()
	require.Len(t, infos, 2)
	assert.Equal(t, "a-game", infos[0].PaytableID)
	assert.Equal(t, r.CachePath("a-game"), infos[0].Path)
	assert.Equal(t, start.Add(time.Minute), infos[0].LoadedAt)
	assert.Equal(t, "b-game", infos[1].PaytableID)
	assert.Equal(t, start, infos[1].LoadedAt)
	assert.Equal(t, 2, infos[1].Entries)
	assert.Equal(t, table.StandardKeyLen, infos[1].KeyLen)
	assert.False(t, infos[1].Wild)
}

func TestAvailable(t *testing.T) {
	s, r := newTestStore(t)
	writeFile(t, r.BundlePath("jacks-or-better-9-6"), buildTable(t, 30))
	writeFile(t, r.CachePath("jacks-or-better-9-6"), buildTable(t, 30))
	writeFile(t, r.CachePath("deuces-wild-nsud"), buildTable(t, 30))
	writeFile(t, filepath.Join(r.BundleDir, "README.md"), []byte("not a table"))
	writeFile(t, filepath.Join(r.BundleDir, "strategy_legacy.vpstrat"), []byte("VPST"))

	assert.Equal(t, []string{"deuces-wild-nsud", "jacks-or-better-9-6"}, s.Available())

	assert.Empty(t, Resolver{BundleDir: filepath.Join(t.TempDir(), "missing")}.Available())
}

func TestInstall(t *testing.T) {
	s, r := newTestStore(t)
	assert.False(t, s.HasData("double-bonus-10-7"))

	require.NoError(t, s.Install("double-bonus-10-7", bytes.NewReader(buildTable(t, 1))))
	assert.FileExists(t, r.CachePath("double-bonus-10-7"))

	rec, ok := s.Lookup("double-bonus-10-7", royalDraw)
	require.True(t, ok)
	assert.Equal(t, hold.Mask(1), rec.BestHold)

	// A replacement drops the resident mapping of the old file.
	require.NoError(t, s.Install("double-bonus-10-7", bytes.NewReader(buildTable(t, 30))))
	assert.False(t, s.IsLoaded("double-bonus-10-7"))
	rec, ok = s.Lookup("double-bonus-10-7", royalDraw)
	require.True(t, ok)
	assert.Equal(t, hold.Mask(30), rec.BestHold)
}

func TestInstallRejectsInvalidDownload(t *testing.T) {
	s, r := newTestStore(t)
	require.NoError(t, s.Install("double-bonus-10-7", bytes.NewReader(buildTable(t, 1))))

	err := s.Install("double-bonus-10-7", strings.NewReader("<html>503</html>"))
	assert.ErrorIs(t, err, table.ErrTooSmall)

	// The previous download is untouched and no staging file remains.
	rec, ok := s.Lookup("double-bonus-10-7", royalDraw)
	require.True(t, ok)
	assert.Equal(t, hold.Mask(1), rec.BestHold)

	entries, err := os.ReadDir(filepath.Dir(r.CachePath("double-bonus-10-7")))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
