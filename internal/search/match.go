package search

import (
	"strings"

	"github.com/kyozai/toibako/internal/keyword"
	"github.com/kyozai/toibako/internal/models"
)

// ftsMatch builds the FTS5 MATCH expression for a query. Exact queries
// match the text as a quoted phrase; fuzzy queries OR the individual
// tokens together with prefix wildcards for typo-tolerant recall.
func ftsMatch(text string, fuzzy bool) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if !fuzzy {
		return quoteFTS(text)
	}
	tokens := keyword.NewTokenizer().Tokenize(text)
	if len(tokens) == 0 {
		return quoteFTS(text)
	}
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = quoteFTS(tok) + "*"
	}
	return strings.Join(parts, " OR ")
}

// quoteFTS wraps s as an FTS5 string literal, doubling embedded quotes.
func quoteFTS(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// likeTerms returns the substring terms for the LIKE retrieval path:
// the whole text for exact queries, individual tokens for fuzzy ones.
func likeTerms(text string, fuzzy bool) []string {
	if !fuzzy {
		return []string{text}
	}
	tokens := keyword.NewTokenizer().Tokenize(text)
	if len(tokens) == 0 {
		return []string{text}
	}
	return tokens
}

// matchesFilters applies the structured filters to a loaded question.
// This is the in-memory second pass run on text-search candidates.
func matchesFilters(q *models.Question, f *models.Filters) bool {
	if f.TreeID != nil && q.TreeID != *f.TreeID {
		return false
	}
	if f.ContentType != "" && q.ContentType != f.ContentType {
		return false
	}
	if f.DifficultyLevel != "" && q.DifficultyLevel != f.DifficultyLevel {
		return false
	}
	if f.QuestionType != "" && q.QuestionType != f.QuestionType {
		return false
	}
	if from, ok := models.ParseFilterDate(f.DateFrom); ok && q.CreatedDate.Before(from) {
		return false
	}
	if to, ok := models.ParseFilterDate(f.DateTo); ok && q.CreatedDate.After(to) {
		return false
	}
	if len(f.Status) > 0 {
		status := q.Status
		if status == "" {
			status = "active"
		}
		ok := false
		for _, want := range f.Status {
			if status == want {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Tags) > 0 {
		have := make(map[string]bool, len(q.Tags))
		for _, tag := range q.Tags {
			have[tag] = true
		}
		for _, want := range f.Tags {
			if !have[want] {
				return false
			}
		}
	}
	return true
}
