package search

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kyozai/toibako/internal/keyword"
	"github.com/kyozai/toibako/internal/models"
)

// ErrSavedSearchNotFound is returned when a named saved search does not exist.
var ErrSavedSearchNotFound = errors.New("saved search not found")

// historyLog is a bounded, concurrency-safe ring of recent searches.
// When full, the oldest entry is evicted.
type historyLog struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	max     int
}

func newHistoryLog(max int) *historyLog {
	if max <= 0 {
		max = 100
	}
	return &historyLog{max: max}
}

func (h *historyLog) record(query models.SearchQuery, resultCount int, strategy string, elapsed time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, models.HistoryEntry{
		Timestamp:   time.Now(),
		Query:       query,
		ResultCount: resultCount,
		Strategy:    strategy,
		DurationMS:  float64(elapsed.Microseconds()) / 1000.0,
	})
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// snapshot returns the entries newest first.
func (h *historyLog) snapshot(limit int) []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.HistoryEntry, n)
	for i := 0; i < n; i++ {
		out[i] = h.entries[len(h.entries)-1-i]
	}
	return out
}

func (h *historyLog) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// savedSearches is a named, process-local store of search queries.
type savedSearches struct {
	mu      sync.Mutex
	queries map[string]models.SearchQuery
}

func newSavedSearches() *savedSearches {
	return &savedSearches{queries: make(map[string]models.SearchQuery)}
}

// History returns up to limit recent search entries, newest first.
// A non-positive limit returns everything retained.
func (s *Service) History(limit int) []models.HistoryEntry {
	return s.hist.snapshot(limit)
}

// ClearHistory drops all recorded history.
func (s *Service) ClearHistory() {
	s.hist.clear()
}

// SaveSearch stores a query under a name, overwriting any previous
// query with the same name. Empty names are rejected.
func (s *Service) SaveSearch(name string, query models.SearchQuery) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("saved search name is required")
	}
	s.saved.mu.Lock()
	defer s.saved.mu.Unlock()
	s.saved.queries[name] = query
	return nil
}

// SavedSearch returns the query stored under name.
func (s *Service) SavedSearch(name string) (models.SearchQuery, error) {
	s.saved.mu.Lock()
	defer s.saved.mu.Unlock()
	q, ok := s.saved.queries[name]
	if !ok {
		return models.SearchQuery{}, ErrSavedSearchNotFound
	}
	return q, nil
}

// SavedSearches returns the names of all saved searches, sorted.
func (s *Service) SavedSearches() []string {
	s.saved.mu.Lock()
	defer s.saved.mu.Unlock()
	names := make([]string, 0, len(s.saved.queries))
	for name := range s.saved.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PopularSearches returns the most common terms across recorded
// history. Before any history exists the configured seed terms are
// returned so suggestion UIs have something to show.
func (s *Service) PopularSearches(limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	entries := s.hist.snapshot(0)
	if len(entries) == 0 {
		seed := s.cfg.PopularSeed
		if len(seed) > limit {
			seed = seed[:limit]
		}
		return append([]string{}, seed...)
	}

	counts := make(map[string]int)
	tok := keyword.NewTokenizer()
	for _, e := range entries {
		for _, term := range tok.Tokenize(e.Query.Text) {
			counts[term]++
		}
	}
	terms := make([]models.TermCount, 0, len(counts))
	for term, count := range counts {
		terms = append(terms, models.TermCount{Term: term, Count: count})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > limit {
		terms = terms[:limit]
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Term
	}
	return out
}

// Stats summarizes recorded history: total searches, average duration,
// and the most common query terms.
func (s *Service) Stats() *models.SearchStats {
	entries := s.hist.snapshot(0)
	stats := &models.SearchStats{TotalSearches: len(entries)}
	if len(entries) == 0 {
		return stats
	}
	var totalMS float64
	for _, e := range entries {
		totalMS += e.DurationMS
	}
	stats.AvgDurationMS = totalMS / float64(len(entries))

	counts := make(map[string]int)
	tok := keyword.NewTokenizer()
	for _, e := range entries {
		for _, term := range tok.Tokenize(e.Query.Text) {
			counts[term]++
		}
	}
	for term, count := range counts {
		stats.MostCommonTerms = append(stats.MostCommonTerms, models.TermCount{Term: term, Count: count})
	}
	sort.Slice(stats.MostCommonTerms, func(i, j int) bool {
		a, b := stats.MostCommonTerms[i], stats.MostCommonTerms[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Term < b.Term
	})
	if len(stats.MostCommonTerms) > 10 {
		stats.MostCommonTerms = stats.MostCommonTerms[:10]
	}
	return stats
}
