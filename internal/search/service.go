package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kyozai/toibako/internal/config"
	"github.com/kyozai/toibako/internal/keyword"
	"github.com/kyozai/toibako/internal/metrics"
	"github.com/kyozai/toibako/internal/models"
	"github.com/kyozai/toibako/internal/storage"
)

// ErrQuestionNotFound is returned by SearchSimilar for an unknown source id.
var ErrQuestionNotFound = errors.New("question not found")

// similarKeywords is how many keywords are extracted from a source
// question when searching for similar ones.
const similarKeywords = 10

// Service translates search queries into ranked results. It holds the
// bounded search history and saved searches; both are process-local.
type Service struct {
	store  storage.Storage
	cfg    *config.SearchConfig
	logger *zap.Logger

	hist  *historyLog
	saved *savedSearches
}

// NewService creates a search service with the given dependencies.
func NewService(store storage.Storage, cfg *config.SearchConfig, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		hist:   newHistoryLog(cfg.HistorySize),
		saved:  newSavedSearches(),
	}
}

// candidate is a retrieved question before filtering and pagination.
type candidate struct {
	question   *models.Question
	score      float64
	highlights []string
}

// Search runs a free-text search: validates the query, retrieves
// candidates via FTS5 or LIKE, applies structured filters as a second
// pass, sorts, paginates, and records the call in history. Query text
// below the minimum length yields an empty response, not an error.
func (s *Service) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()

	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if err := q.Validate(); err != nil {
		if errors.Is(err, models.ErrQueryTooShort) {
			return emptyResponse(q.Text), nil
		}
		return nil, err
	}
	if utf8.RuneCountInString(q.Text) < s.cfg.MinQueryLength {
		return emptyResponse(q.Text), nil
	}

	var (
		cands    []candidate
		strategy string
		err      error
	)
	if s.store.HasFTS() {
		strategy = models.StrategyFTS
		cands, err = s.ftsCandidates(ctx, q)
	} else {
		strategy = models.StrategyLike
		cands, err = s.likeCandidates(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", strategy, err)
	}

	if !q.Filters.IsZero() {
		cands, err = s.applyFilters(ctx, cands, &q.Filters)
		if err != nil {
			return nil, fmt.Errorf("apply filters: %w", err)
		}
	}

	results, err := s.toResults(ctx, cands)
	if err != nil {
		return nil, err
	}
	sortResults(results, q.SortBy, q.SortOrder)

	total := len(results)
	results = page(results, q.Offset, q.Limit)

	elapsed := time.Since(start)
	s.hist.record(*q, total, strategy, elapsed)
	metrics.ObserveSearch(strategy, elapsed)
	s.logger.Debug("search completed",
		zap.String("text", q.Text),
		zap.String("strategy", strategy),
		zap.Int("total", total),
		zap.Duration("elapsed", elapsed),
	)

	return &models.SearchResponse{
		Results:   results,
		Total:     total,
		Strategy:  strategy,
		QueryTime: elapsed.Milliseconds(),
		Query:     q.Text,
	}, nil
}

func emptyResponse(text string) *models.SearchResponse {
	return &models.SearchResponse{Results: []*models.SearchResult{}, Query: text}
}

// AdvancedSearch maps flat UI-level criteria onto a SearchQuery and delegates.
func (s *Service) AdvancedSearch(ctx context.Context, criteria *models.AdvancedCriteria) (*models.SearchResponse, error) {
	return s.Search(ctx, criteria.Query())
}

// FuzzySearch runs a fuzzy search and discards results scoring below
// threshold. A non-positive threshold uses the configured default.
func (s *Service) FuzzySearch(ctx context.Context, text string, threshold float64) (*models.SearchResponse, error) {
	if threshold <= 0 {
		threshold = s.cfg.FuzzyThreshold
	}
	resp, err := s.Search(ctx, &models.SearchQuery{Text: text, Fuzzy: true})
	if err != nil {
		return nil, err
	}
	kept := resp.Results[:0]
	for _, r := range resp.Results {
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	resp.Results = kept
	resp.Total = len(kept)
	return resp, nil
}

// SearchByTags returns questions matching the tag set. matchAll
// requires every tag; otherwise any tag matches. Tag hits are exact,
// so every result carries score 1.0.
func (s *Service) SearchByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.SearchResult, error) {
	if len(tags) == 0 {
		return []*models.SearchResult{}, nil
	}
	ids, err := s.store.QuestionIDsByTags(ctx, tags, matchAll)
	if err != nil {
		return nil, fmt.Errorf("tag lookup: %w", err)
	}
	questions, err := s.store.QuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	cands := make([]candidate, len(questions))
	for i, q := range questions {
		cands[i] = candidate{question: q, score: 1.0}
	}
	return s.toResults(ctx, cands)
}

// SearchSimilar finds questions similar to the given one by extracting
// its top keywords and rerunning a fuzzy search. The source question is
// never part of the result.
func (s *Service) SearchSimilar(ctx context.Context, questionID int64, limit int) ([]*models.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	source, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, questionID)
		}
		return nil, err
	}
	keywords := keyword.Extract(source.ContentText, similarKeywords)
	if len(keywords) == 0 {
		return []*models.SearchResult{}, nil
	}

	// Over-fetch so dropping the source itself still fills the limit.
	resp, err := s.Search(ctx, &models.SearchQuery{
		Text:  strings.Join(keywords, " "),
		Fuzzy: true,
		Limit: limit * 2,
	})
	if err != nil {
		return nil, err
	}

	similar := make([]*models.SearchResult, 0, limit)
	for _, r := range resp.Results {
		if r.QuestionID == questionID {
			continue
		}
		similar = append(similar, r)
		if len(similar) >= limit {
			break
		}
	}
	return similar, nil
}

// Filter runs the pure structured-filter path (no free text), newest first.
func (s *Service) Filter(ctx context.Context, f *models.Filters) ([]*models.SearchResult, error) {
	questions, err := s.store.FilterQuestions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("filter questions: %w", err)
	}
	cands := make([]candidate, len(questions))
	for i, q := range questions {
		cands[i] = candidate{question: q}
	}
	return s.toResults(ctx, cands)
}

// FilterOptions returns the distinct values available for each filterable column.
func (s *Service) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	return s.store.FilterOptions(ctx)
}

// Suggestions returns autocomplete candidates for a partial query:
// short content texts and tag names containing it. Tag suggestions are
// ordered by edit distance to the partial text so closer tags rank
// higher. Input below the minimum query length yields no suggestions.
func (s *Service) Suggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < s.cfg.MinQueryLength {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	suggestions := make([]string, 0, limit)
	seen := make(map[string]bool)
	add := func(v string) {
		if v != "" && !seen[v] && len(suggestions) < limit {
			seen[v] = true
			suggestions = append(suggestions, v)
		}
	}

	contentShare := limit / 2
	if contentShare < 1 {
		contentShare = 1
	}
	contents, err := s.store.ContentSuggestions(ctx, partial, contentShare)
	if err != nil {
		return nil, fmt.Errorf("content suggestions: %w", err)
	}
	for _, c := range contents {
		add(truncateSuggestion(c))
	}

	tags, err := s.store.TagSuggestions(ctx, partial, limit)
	if err != nil {
		return nil, fmt.Errorf("tag suggestions: %w", err)
	}
	sortByDistance(tags, partial)
	for _, t := range tags {
		add(t)
	}

	return suggestions, nil
}

func truncateSuggestion(s string) string {
	const maxLen = 100
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func sortByDistance(values []string, target string) {
	target = strings.ToLower(target)
	distance := func(v string) int {
		return keyword.Distance(strings.ToLower(v), target)
	}
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && distance(values[j]) < distance(values[j-1]); j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

// ftsCandidates retrieves candidates via the FTS5 index.
func (s *Service) ftsCandidates(ctx context.Context, q *models.SearchQuery) ([]candidate, error) {
	match := ftsMatch(q.Text, q.Fuzzy)
	hits, err := s.store.FTSSearch(ctx, match, s.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, 0, len(hits))
	for _, hit := range hits {
		var highlights []string
		if hit.ContentSnippet != "" {
			highlights = append(highlights, hit.ContentSnippet)
		}
		if hit.AnswerSnippet != "" {
			highlights = append(highlights, hit.AnswerSnippet)
		}
		cands = append(cands, candidate{
			question:   hit.Question,
			score:      bm25Score(hit.BM25),
			highlights: highlights,
		})
	}
	return cands, nil
}

// likeCandidates retrieves candidates via LIKE scans and scores them
// with the additive heuristic.
func (s *Service) likeCandidates(ctx context.Context, q *models.SearchQuery) ([]candidate, error) {
	terms := likeTerms(q.Text, q.Fuzzy)
	questions, err := s.store.LikeSearch(ctx, terms, q.SearchIn, q.CaseSensitive, s.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, 0, len(questions))
	for _, question := range questions {
		var highlights []string
		if snippet := highlightSnippet(question.ContentText, terms); snippet != "" {
			highlights = append(highlights, snippet)
		}
		if snippet := highlightSnippet(question.AnswerText, terms); snippet != "" {
			highlights = append(highlights, snippet)
		}
		cands = append(cands, candidate{
			question:   question,
			score:      likeScore(question, q.Text),
			highlights: highlights,
		})
	}
	return cands, nil
}

// applyFilters runs the in-memory second pass over retrieved
// candidates. Subject, grade, and topic constraints are resolved to
// tree-id sets first so they match descendants.
func (s *Service) applyFilters(ctx context.Context, cands []candidate, f *models.Filters) ([]candidate, error) {
	allowed, constrained, err := s.resolveTreeFilter(ctx, f)
	if err != nil {
		return nil, err
	}
	kept := cands[:0]
	for _, c := range cands {
		if constrained && !allowed[c.question.TreeID] {
			continue
		}
		if !matchesFilters(c.question, f) {
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

// resolveTreeFilter intersects the subtree id sets of any subject,
// grade, and topic filters. Returns constrained=false when none are set.
func (s *Service) resolveTreeFilter(ctx context.Context, f *models.Filters) (map[int64]bool, bool, error) {
	levels := map[string]string{"subject": f.Subject, "grade": f.Grade, "topic": f.Topic}
	var allowed map[int64]bool
	constrained := false
	for level, name := range levels {
		if name == "" {
			continue
		}
		ids, err := s.store.SubtreeIDs(ctx, level, name)
		if err != nil {
			return nil, false, fmt.Errorf("resolve %s filter: %w", level, err)
		}
		set := make(map[int64]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		if !constrained {
			allowed = set
			constrained = true
			continue
		}
		for id := range allowed {
			if !set[id] {
				delete(allowed, id)
			}
		}
	}
	return allowed, constrained, nil
}

// toResults converts candidates into SearchResults, resolving tree
// paths once per distinct tree id.
func (s *Service) toResults(ctx context.Context, cands []candidate) ([]*models.SearchResult, error) {
	paths := make(map[int64]string)
	results := make([]*models.SearchResult, 0, len(cands))
	for _, c := range cands {
		q := c.question
		path, ok := paths[q.TreeID]
		if !ok {
			var err error
			path, err = s.store.TreePath(ctx, q.TreeID)
			if err != nil {
				return nil, fmt.Errorf("tree path for question %d: %w", q.ID, err)
			}
			paths[q.TreeID] = path
		}
		results = append(results, &models.SearchResult{
			QuestionID:      q.ID,
			ContentText:     q.ContentText,
			ContentType:     q.ContentType,
			AnswerText:      q.AnswerText,
			TreePath:        path,
			Tags:            q.Tags,
			DifficultyLevel: q.DifficultyLevel,
			QuestionType:    q.QuestionType,
			CreatedDate:     q.CreatedDate,
			Score:           c.score,
			Highlights:      c.highlights,
		})
	}
	return results, nil
}

// page slices results to the requested window, clamping out-of-range bounds.
func page(results []*models.SearchResult, offset, limit int) []*models.SearchResult {
	start := offset
	if start > len(results) {
		start = len(results)
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}
