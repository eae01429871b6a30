package models

import "time"

// Retrieval strategies reported in SearchResponse.Strategy.
const (
	StrategyFTS  = "fts"
	StrategyLike = "like"
)

// SearchResult is one search hit: a projection of a Question plus a
// relevance score in [0,1] and optional highlighted snippets.
type SearchResult struct {
	QuestionID      int64     `json:"question_id"`
	ContentText     string    `json:"content_text"`
	ContentType     string    `json:"content_type"`
	AnswerText      string    `json:"answer_text,omitempty"`
	TreePath        string    `json:"tree_path,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	DifficultyLevel string    `json:"difficulty_level"`
	QuestionType    string    `json:"question_type"`
	CreatedDate     time.Time `json:"created_date"`
	Score           float64   `json:"score"`
	Highlights      []string  `json:"highlights,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	// Total is the number of matches before pagination.
	Total int `json:"total"`
	// Strategy names the retrieval path used: "fts" or "like".
	Strategy  string `json:"strategy"`
	QueryTime int64  `json:"query_time_ms"`
	Query     string `json:"query"`
}

// HistoryEntry is one recorded search call. History is process-local
// and bounded; it exists for introspection, not durability.
type HistoryEntry struct {
	Timestamp   time.Time   `json:"timestamp"`
	Query       SearchQuery `json:"query"`
	ResultCount int         `json:"result_count"`
	Strategy    string      `json:"strategy"`
	DurationMS  float64     `json:"duration_ms"`
}

// TermCount pairs a search term with its occurrence count.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// SearchStats summarizes recorded search history.
type SearchStats struct {
	TotalSearches   int         `json:"total_searches"`
	AvgDurationMS   float64     `json:"avg_duration_ms"`
	MostCommonTerms []TermCount `json:"most_common_terms,omitempty"`
}

// FilterOptions lists the distinct values available for each
// filterable column, for populating filter pickers.
type FilterOptions struct {
	Subjects         []string `json:"subjects"`
	Grades           []string `json:"grades"`
	ContentTypes     []string `json:"content_types"`
	DifficultyLevels []string `json:"difficulty_levels"`
	QuestionTypes    []string `json:"question_types"`
	Tags             []string `json:"tags"`
}
