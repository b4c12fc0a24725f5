// Package strategy answers "what should I hold?" for a dealt hand by
// canonicalizing it, consulting a small result cache, and falling through
// to the strategy tables.
package strategy

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/lox/vpstrat/internal/canonical"
	"github.com/lox/vpstrat/internal/deck"
	"github.com/lox/vpstrat/internal/hold"
	"github.com/lox/vpstrat/internal/table"
)

// Source is a backing store of strategy records keyed by paytable id and
// canonical key.
type Source interface {
	Lookup(paytableID string, key canonical.Key) (*table.Record, bool)
	HasData(paytableID string) bool
	Preload(paytableID string) bool
	Available() []string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCacheSize bounds the number of cached results.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) {
		s.cacheSize = n
	}
}

// WithFallback adds a source consulted when the ones before it have no
// record, e.g. a SQLite import behind the binary tables.
func WithFallback(src Source) ServiceOption {
	return func(s *Service) {
		s.sources = append(s.sources, src)
	}
}

// Service is safe for concurrent use.
type Service struct {
	sources   []Source
	logger    *log.Logger
	cacheSize int
	cache     *resultCache
}

// NewService creates a lookup service over primary and any fallbacks.
func NewService(primary Source, logger *log.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		sources:   []Source{primary},
		logger:    logger.WithPrefix("strategy"),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newResultCache(s.cacheSize)
	return s
}

// Lookup returns the strategy for h under paytableID, or nil when no source
// has it.
func (s *Service) Lookup(h deck.Hand, paytableID string) *Decision {
	key, perm := canonical.Canonicalize(h)
	return s.lookup(key, perm, paytableID)
}

// LookupCards is Lookup for a card slice. It panics unless exactly five
// cards are given.
func (s *Service) LookupCards(cards []deck.Card, paytableID string) *Decision {
	key, perm := canonical.CanonicalizeCards(cards)
	return s.lookup(key, perm, paytableID)
}

func (s *Service) lookup(key canonical.Key, perm canonical.Permutation, paytableID string) *Decision {
	ck := cacheKey(paytableID, string(key))
	if e, ok := s.cache.get(ck); ok {
		return e.decision(paytableID, key, perm)
	}

	for _, src := range s.sources {
		rec, ok := src.Lookup(paytableID, key)
		if !ok {
			continue
		}
		e := entry{bestHold: rec.BestHold, bestEV: rec.BestEV(), evs: rec.EVs}
		s.cache.put(ck, e)
		return e.decision(paytableID, key, perm)
	}

	s.logger.Debug("No strategy for hand", "paytable", paytableID, "key", key)
	return nil
}

func (e entry) decision(paytableID string, key canonical.Key, perm canonical.Permutation) *Decision {
	return &Decision{
		PaytableID: paytableID,
		Key:        key,
		Perm:       perm,
		BestHold:   e.bestHold,
		BestEV:     e.bestEV,
		EVs:        e.evs,
	}
}

// HasData reports whether any source has a table for paytableID.
func (s *Service) HasData(paytableID string) bool {
	return lo.SomeBy(s.sources, func(src Source) bool {
		return src.HasData(paytableID)
	})
}

// Preload warms the first source able to serve paytableID.
func (s *Service) Preload(paytableID string) bool {
	for _, src := range s.sources {
		if src.Preload(paytableID) {
			return true
		}
	}
	return false
}

// AvailablePaytables lists paytable ids across every source, sorted.
func (s *Service) AvailablePaytables() []string {
	ids := lo.Uniq(lo.FlatMap(s.sources, func(src Source, _ int) []string {
		return src.Available()
	}))
	slices.Sort(ids)
	return ids
}

// ClearCache drops every cached result. Mapped tables are unaffected.
func (s *Service) ClearCache() {
	s.cache.clear()
}

// CacheStats returns result cache counters.
func (s *Service) CacheStats() CacheStats {
	return s.cache.stats()
}

// CanonicalToOriginal maps canonical positions to dealt positions.
func (s *Service) CanonicalToOriginal(perm canonical.Permutation, indices []int) []int {
	return canonical.CanonicalToOriginal(perm, indices)
}

// OriginalToCanonical maps dealt positions to canonical positions.
func (s *Service) OriginalToCanonical(perm canonical.Permutation, indices []int) []int {
	return canonical.OriginalToCanonical(perm, indices)
}

// Grade scores a player's hold against the strategy.
type Grade struct {
	Decision *Decision
	Held     hold.Mask
	EV       float64
	Loss     float64
	Correct  bool
	Rank     int
}

func (g *Grade) String() string {
	verdict := "wrong"
	if g.Correct {
		verdict = "correct"
	}
	return fmt.Sprintf("%s: held %s ev %.4f best %s ev %.4f loss %.4f rank %d",
		verdict, g.Held, g.EV, g.Decision.BestHold, g.Decision.BestEV, g.Loss, g.Rank)
}

// Grade looks up h and scores heldOriginal, the dealt-order positions the
// player kept. It reports false when no strategy is available.
func (s *Service) Grade(h deck.Hand, paytableID string, heldOriginal []int) (*Grade, bool) {
	d := s.Lookup(h, paytableID)
	if d == nil {
		return nil, false
	}
	held := hold.FromIndices(canonical.OriginalToCanonical(d.Perm, heldOriginal))
	return &Grade{
		Decision: d,
		Held:     held,
		EV:       d.EV(held),
		Loss:     d.EVLoss(held),
		Correct:  d.IsCorrect(held),
		Rank:     d.RankOfHold(held),
	}, true
}
