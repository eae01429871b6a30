package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Sort keys accepted by SearchQuery.SortBy.
const (
	SortByRelevance  = "relevance"
	SortByDate       = "date"
	SortByDifficulty = "difficulty"
)

// Default pagination bounds. Queries asking for more than MaxLimit
// results are clamped back to DefaultLimit, matching the service's
// "never scan the whole bank" policy.
const (
	DefaultLimit   = 50
	MaxLimit       = 1000
	MinQueryLength = 2
)

// ErrQueryTooShort is returned by Validate when the free-text part of a
// query is shorter than MinQueryLength runes. Callers typically map it
// to an empty result set rather than a failure.
var ErrQueryTooShort = errors.New("query text too short")

// SearchQuery represents one search request with optional structured filters.
type SearchQuery struct {
	Text          string   `json:"text"`
	Filters       Filters  `json:"filters,omitempty"`
	Fuzzy         bool     `json:"fuzzy,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
	SearchIn      []string `json:"search_in,omitempty"` // any of "content", "answer", "tags"
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
	SortBy        string   `json:"sort_by,omitempty"`
	SortOrder     string   `json:"sort_order,omitempty"` // "asc" or "desc"
}

// Validate normalizes the query in place: clamps limit and offset,
// defaults sort and search fields, and trims the text. Returns
// ErrQueryTooShort when the trimmed text has fewer than MinQueryLength runes.
func (q *SearchQuery) Validate() error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.SortBy == "" {
		q.SortBy = SortByRelevance
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	if len(q.SearchIn) == 0 {
		q.SearchIn = []string{"content", "answer", "tags"}
	}
	if utf8.RuneCountInString(q.Text) < MinQueryLength {
		return ErrQueryTooShort
	}
	return nil
}

// SearchesIn reports whether the query targets the given field.
func (q *SearchQuery) SearchesIn(field string) bool {
	for _, f := range q.SearchIn {
		if f == field {
			return true
		}
	}
	return false
}

// Filters holds structured criteria applied on top of text search.
// Zero values mean "no constraint".
type Filters struct {
	TreeID          *int64   `json:"tree_id,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	Grade           string   `json:"grade,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	DifficultyLevel string   `json:"difficulty_level,omitempty"`
	QuestionType    string   `json:"question_type,omitempty"`
	DateFrom        string   `json:"date_from,omitempty"` // RFC 3339 or YYYY-MM-DD
	DateTo          string   `json:"date_to,omitempty"`
	Status          []string `json:"status,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f *Filters) IsZero() bool {
	return f.TreeID == nil &&
		f.Subject == "" && f.Grade == "" && f.Topic == "" &&
		f.ContentType == "" && f.DifficultyLevel == "" && f.QuestionType == "" &&
		f.DateFrom == "" && f.DateTo == "" &&
		len(f.Status) == 0 && len(f.Tags) == 0
}

// AdvancedCriteria is the flat criteria form used by the advanced
// search endpoint and CLI; it maps one-to-one onto SearchQuery fields.
type AdvancedCriteria struct {
	Text            string   `json:"text,omitempty"`
	FuzzySearch     bool     `json:"fuzzy_search,omitempty"`
	CaseSensitive   bool     `json:"case_sensitive,omitempty"`
	SearchIn        []string `json:"search_in,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	Offset          int      `json:"offset,omitempty"`
	SortBy          string   `json:"sort_by,omitempty"`
	SortOrder       string   `json:"sort_order,omitempty"`
	TreeID          *int64   `json:"tree_id,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	Grade           string   `json:"grade,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	DifficultyLevel string   `json:"difficulty_level,omitempty"`
	QuestionType    string   `json:"question_type,omitempty"`
	DateFrom        string   `json:"date_from,omitempty"`
	DateTo          string   `json:"date_to,omitempty"`
	Status          []string `json:"status,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Query converts the flat criteria into a SearchQuery.
func (c *AdvancedCriteria) Query() *SearchQuery {
	return &SearchQuery{
		Text:          strings.TrimSpace(c.Text),
		Fuzzy:         c.FuzzySearch,
		CaseSensitive: c.CaseSensitive,
		SearchIn:      c.SearchIn,
		Limit:         c.Limit,
		Offset:        c.Offset,
		SortBy:        c.SortBy,
		SortOrder:     c.SortOrder,
		Filters: Filters{
			TreeID:          c.TreeID,
			Subject:         c.Subject,
			Grade:           c.Grade,
			Topic:           c.Topic,
			ContentType:     c.ContentType,
			DifficultyLevel: c.DifficultyLevel,
			QuestionType:    c.QuestionType,
			DateFrom:        c.DateFrom,
			DateTo:          c.DateTo,
			Status:          c.Status,
			Tags:            c.Tags,
		},
	}
}
