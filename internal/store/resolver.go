package store

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/lox/vpstrat/internal/table"
)

const (
	// FilePrefix starts every strategy table file name
	FilePrefix = "strategy_"

	// CacheSubdir is the folder under the cache directory holding
	// downloaded tables
	CacheSubdir = "binary_strategies_v2"
)

// FileName returns the table file name for a paytable id, e.g.
// "jacks-or-better-9-6" -> "strategy_jacks_or_better_9_6.vpstrat2".
func FileName(paytableID string) string {
	return FilePrefix + strings.ReplaceAll(paytableID, "-", "_") + table.Ext
}

// PaytableID reverses FileName. It reports false for names that are not
// strategy tables.
func PaytableID(fileName string) (string, bool) {
	name, ok := strings.CutSuffix(fileName, table.Ext)
	if !ok {
		return "", false
	}
	name, ok = strings.CutPrefix(name, FilePrefix)
	if !ok || name == "" {
		return "", false
	}
	return strings.ReplaceAll(name, "_", "-"), true
}

// ValidID reports whether paytableID can name a table file. Ids must be
// non-empty and must not contain path separators.
func ValidID(paytableID string) bool {
	return paytableID != "" && !strings.ContainsAny(paytableID, `/\`)
}

// Resolver locates the table file backing a paytable. Bundled tables are
// read-only resources shipped with the application; downloaded tables live
// under CacheDir/CacheSubdir. A bundled table wins when both exist.
type Resolver struct {
	BundleDir string
	CacheDir  string
}

// CachePath returns where a downloaded table for paytableID belongs,
// whether or not it exists.
func (r Resolver) CachePath(paytableID string) string {
	return filepath.Join(r.CacheDir, CacheSubdir, FileName(paytableID))
}

// BundlePath returns where a bundled table for paytableID would be.
func (r Resolver) BundlePath(paytableID string) string {
	return filepath.Join(r.BundleDir, FileName(paytableID))
}

// Path returns the file backing paytableID, bundle first, then cache.
func (r Resolver) Path(paytableID string) (string, bool) {
	if !ValidID(paytableID) {
		return "", false
	}
	if r.BundleDir != "" {
		if p := r.BundlePath(paytableID); isFile(p) {
			return p, true
		}
	}
	if r.CacheDir != "" {
		if p := r.CachePath(paytableID); isFile(p) {
			return p, true
		}
	}
	return "", false
}

// Available lists every paytable id with a table in either location,
// sorted.
func (r Resolver) Available() []string {
	var ids []string
	if r.BundleDir != "" {
		ids = append(ids, listIDs(r.BundleDir)...)
	}
	if r.CacheDir != "" {
		ids = append(ids, listIDs(filepath.Join(r.CacheDir, CacheSubdir))...)
	}
	ids = lo.Uniq(ids)
	slices.Sort(ids)
	return ids
}

func listIDs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	return lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() {
			return "", false
		}
		return PaytableID(e.Name())
	})
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
