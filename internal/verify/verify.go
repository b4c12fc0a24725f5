// Package verify checks generated strategy tables for structural and
// best-hold consistency, for coverage of every canonical hand, and against
// older sources of the same strategy.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/table"
)

// MaxSamples bounds how many problems or mismatches a report keeps.
const MaxSamples = 10

// Problem is one defect found in a table.
type Problem struct {
	Index  int
	Key    string
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("#%d %s: %s", p.Index, p.Key, p.Detail)
}

// Report is the result of CheckTable.
type Report struct {
	PaytableID   string
	Path         string
	Entries      int
	Unsorted     int
	Unfindable   int
	Inconsistent int
	BadScale     int
	Problems     []Problem
	Duration     time.Duration
	Err          error
}

// OK reports whether the table passed every check.
func (r *Report) OK() bool {
	return r.Err == nil && r.Unsorted == 0 && r.Unfindable == 0 && r.Inconsistent == 0 && r.BadScale == 0
}

func (r *Report) add(p Problem) {
	if len(r.Problems) < MaxSamples {
		r.Problems = append(r.Problems, p)
	}
}

// KeyString returns a raw index key without its zero padding.
func KeyString(raw []byte) string {
	return string(bytes.TrimRight(raw, "\x00"))
}

// CheckTable walks every entry of t. The index must be strictly ascending
// and every key must be found by search at its own position. Each record's
// best hold must be within tolerance of the largest EV and its scale
// selector must be in range.
func CheckTable(t *table.Table, tolerance float64) Report {
	r := Report{Path: t.Path(), Entries: t.Len()}

	var prev []byte
	for i, key := range t.Keys() {
		if prev != nil && bytes.Compare(prev, key) >= 0 {
			r.Unsorted++
			r.add(Problem{i, KeyString(key), fmt.Sprintf("not above previous key %q", KeyString(prev))})
		}
		prev = key

		if j, err := t.Search(key); err != nil || j != i {
			r.Unfindable++
			r.add(Problem{i, KeyString(key), fmt.Sprintf("search returned %d, %v", j, err)})
		}

		rec := t.Record(i)
		if int(rec.Scale) >= len(table.Scales) {
			r.BadScale++
			r.add(Problem{i, KeyString(key), fmt.Sprintf("scale selector %d", rec.Scale)})
		}
		best := rec.BestEV()
		for m := range hold.NumMasks {
			if rec.EVs[m] > best+tolerance {
				r.Inconsistent++
				r.add(Problem{i, KeyString(key), fmt.Sprintf("best hold %s ev %.4f below %s ev %.4f",
					rec.BestHold, best, hold.Mask(m), rec.EVs[m])})
				break
			}
		}
	}
	return r
}

// CoverageReport is the result of Coverage.
type CoverageReport struct {
	Expected int
	Missing  int
	Sample   []string
}

// Coverage counts how many of keys are absent from t. keys normally comes
// from canonical.AllKeys.
func Coverage(t *table.Table, keys []canonical.Key) CoverageReport {
	r := CoverageReport{Expected: len(keys)}
	for _, k := range keys {
		if _, err := t.Search(k.Bytes()); err != nil {
			r.Missing++
			if len(r.Sample) < MaxSamples {
				r.Sample = append(r.Sample, string(k))
			}
		}
	}
	return r
}

// Reference is another source of the same strategy, such as a legacy table
// or a SQLite import.
type Reference interface {
	Best(key canonical.Key) (hold.Mask, float64, bool)
}

// LegacyReference adapts a legacy table.
func LegacyReference(t *table.LegacyTable) Reference {
	return legacyRef{t}
}

type legacyRef struct{ t *table.LegacyTable }

func (l legacyRef) Best(key canonical.Key) (hold.Mask, float64, bool) {
	rec, err := l.t.Lookup(key.Bytes())
	if err != nil {
		return 0, 0, false
	}
	return rec.Hold, float64(rec.EV), true
}

// RecordSource is anything that serves records by paytable and key.
type RecordSource interface {
	Lookup(paytableID string, key canonical.Key) (*table.Record, bool)
}

// SourceReference adapts a record source for one paytable.
func SourceReference(src RecordSource, paytableID string) Reference {
	return sourceRef{src, paytableID}
}

type sourceRef struct {
	src RecordSource
	id  string
}

func (s sourceRef) Best(key canonical.Key) (hold.Mask, float64, bool) {
	rec, ok := s.src.Lookup(s.id, key)
	if !ok {
		return 0, 0, false
	}
	return rec.BestHold, rec.BestEV(), true
}

// Mismatch is a hand where the table and a reference disagree.
type Mismatch struct {
	Key      string
	Hold     hold.Mask
	EV       float64
	RefHold  hold.Mask
	RefEV    float64
	RefFound bool
}

// Comparison is the result of Compare.
type Comparison struct {
	Compared    int
	HoldMatches int
	EVMatches   int
	Missing     int
	Mismatches  []Mismatch
}

// Compare checks every entry of t against ref. EVs match when they differ
// by less than tolerance or the record's fixed-point step, whichever is
// larger.
func Compare(t *table.Table, ref Reference, tolerance float64) Comparison {
	var c Comparison
	for i, raw := range t.Keys() {
		key := KeyString(raw)
		rec := t.Record(i)
		refHold, refEV, ok := ref.Best(canonical.Key(key))
		c.Compared++

		m := Mismatch{Key: key, Hold: rec.BestHold, EV: rec.BestEV(), RefHold: refHold, RefEV: refEV, RefFound: ok}
		if !ok {
			c.Missing++
			c.keep(m)
			continue
		}

		holdOK := refHold == rec.BestHold
		evOK := math.Abs(refEV-m.EV) < math.Max(tolerance, table.Scales[min(rec.Scale, 3)])
		if holdOK {
			c.HoldMatches++
		}
		if evOK {
			c.EVMatches++
		}
		if !holdOK || !evOK {
			c.keep(m)
		}
	}
	return c
}

func (c *Comparison) keep(m Mismatch) {
	if len(c.Mismatches) < MaxSamples {
		c.Mismatches = append(c.Mismatches, m)
	}
}

// TableSource hands out resident tables by paytable id.
type TableSource interface {
	Table(paytableID string) (*table.Table, error)
}

// Verifier runs CheckTable over many paytables in parallel.
type Verifier struct {
	logger    *log.Logger
	clock     quartz.Clock
	tolerance float64
	workers   int
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock sets the clock used to time checks.
func WithClock(clock quartz.Clock) Option {
	return func(v *Verifier) { v.clock = clock }
}

// WithTolerance sets the best-hold tolerance.
func WithTolerance(tolerance float64) Option {
	return func(v *Verifier) { v.tolerance = tolerance }
}

// WithWorkers bounds how many tables are checked at once.
func WithWorkers(n int) Option {
	return func(v *Verifier) { v.workers = n }
}

// New creates a verifier.
func New(logger *log.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		logger:    logger.WithPrefix("verify"),
		clock:     quartz.NewReal(),
		tolerance: 1e-4,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyAll checks each paytable's table and returns one report per id, in
// order. A table that cannot be opened gets a report with Err set; only
// context cancellation fails the whole run.
func (v *Verifier) VerifyAll(ctx context.Context, src TableSource, ids []string) ([]Report, error) {
	reports := make([]Report, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(v.workers, 1))
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = v.verify(src, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (v *Verifier) verify(src TableSource, id string) Report {
	start := v.clock.Now()
	t, err := src.Table(id)
	if err != nil {
		v.logger.Error("Cannot verify table", "paytable", id, "error", err)
		return Report{PaytableID: id, Err: err}
	}

	r := CheckTable(t, v.tolerance)
	r.PaytableID = id
	r.Duration = v.clock.Since(start)

	if r.OK() {
		v.logger.Info("Table verified", "paytable", id, "entries", r.Entries, "duration", r.Duration)
	} else {
		v.logger.Warn("Table has problems", "paytable", id,
			"unsorted", r.Unsorted, "unfindable", r.Unfindable,
			"inconsistent", r.Inconsistent, "badScale", r.BadScale)
	}
	return r
}
