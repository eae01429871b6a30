// Package search implements the question-bank search service: query
// validation, FTS/LIKE retrieval, filtering, scoring, and history.
package search

import (
	"math"
	"sort"
	"strings"

	"github.com/kyozai/toibako/internal/models"
)

// Additive scoring weights for the LIKE retrieval path.
const (
	phraseWeight    = 10.0
	wordWeight      = 2.0
	answerWeight    = 5.0
	scoreNormalizer = 20.0
)

// likeScore computes the heuristic relevance of a question for the
// query text: exact phrase in content counts most, then per-word
// matches, then a phrase hit in the answer. The sum is normalized into
// [0,1]. Scoring is case-insensitive regardless of retrieval case
// sensitivity, and monotone in the number of matched words.
func likeScore(q *models.Question, text string) float64 {
	score := 0.0
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return 0
	}

	content := strings.ToLower(q.ContentText)
	if strings.Contains(content, needle) {
		score += phraseWeight
	}
	contentWords := make(map[string]bool)
	for _, w := range strings.Fields(content) {
		contentWords[w] = true
	}
	for _, w := range strings.Fields(needle) {
		if contentWords[w] {
			score += wordWeight
		}
	}

	if answer := strings.ToLower(q.AnswerText); answer != "" && strings.Contains(answer, needle) {
		score += answerWeight
	}

	return math.Min(score/scoreNormalizer, 1.0)
}

// bm25Score maps a raw SQLite BM25 value onto [0,1). SQLite reports
// BM25 as a negative number where more negative means a better match;
// m/(m+1) on the magnitude keeps FTS scores on the same scale as the
// LIKE heuristic.
func bm25Score(bm25 float64) float64 {
	m := math.Abs(bm25)
	return m / (m + 1)
}

var difficultyRank = map[string]int{"easy": 1, "medium": 2, "hard": 3}

// sortResults orders results by the requested key. Ties fall back to
// creation date, newest first.
func sortResults(results []*models.SearchResult, sortBy, sortOrder string) {
	asc := strings.EqualFold(sortOrder, "asc")

	// Pre-sort by date desc so the stable pass below leaves ties in a
	// deterministic order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedDate.After(results[j].CreatedDate)
	})

	less := func(i, j int) bool { return false }
	switch sortBy {
	case models.SortByRelevance:
		less = func(i, j int) bool { return results[i].Score < results[j].Score }
	case models.SortByDate:
		less = func(i, j int) bool { return results[i].CreatedDate.Before(results[j].CreatedDate) }
	case models.SortByDifficulty:
		less = func(i, j int) bool {
			return difficultyOrd(results[i].DifficultyLevel) < difficultyOrd(results[j].DifficultyLevel)
		}
	default:
		return
	}

	if asc {
		sort.SliceStable(results, less)
	} else {
		sort.SliceStable(results, func(i, j int) bool { return less(j, i) })
	}
}

// difficultyOrd returns the sort rank of a difficulty level; unknown
// levels rank as medium.
func difficultyOrd(level string) int {
	if r, ok := difficultyRank[level]; ok {
		return r
	}
	return 2
}
