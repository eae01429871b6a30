package search

import (
	"testing"
	"time"

	"github.com/kyozai/toibako/internal/models"
)

func TestLikeScoreRange(t *testing.T) {
	tests := []struct {
		name    string
		content string
		answer  string
		query   string
	}{
		{"exact phrase", "solve the quadratic equation", "", "quadratic equation"},
		{"single word", "solve the quadratic equation", "", "quadratic"},
		{"phrase in answer too", "quadratic equation basics", "a quadratic equation has two roots", "quadratic equation"},
		{"no match", "geometry proof", "", "calculus"},
		{"empty query", "anything", "", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &models.Question{ContentText: tt.content, AnswerText: tt.answer}
			score := likeScore(q, tt.query)
			if score < 0 || score > 1 {
				t.Errorf("score %f out of [0,1]", score)
			}
		})
	}
}

func TestLikeScoreMonotoneInMatchedWords(t *testing.T) {
	q := &models.Question{ContentText: "linear algebra matrix determinant"}
	one := likeScore(q, "matrix")
	two := likeScore(q, "matrix determinant")
	if two < one {
		t.Errorf("two matched words scored %f, below one word %f", two, one)
	}
}

func TestLikeScoreCaseInsensitive(t *testing.T) {
	q := &models.Question{ContentText: "Solve The Quadratic Equation"}
	lower := likeScore(q, "quadratic equation")
	upper := likeScore(q, "QUADRATIC EQUATION")
	if lower != upper {
		t.Errorf("case changed the score: %f vs %f", lower, upper)
	}
	if lower == 0 {
		t.Error("expected a non-zero score for a phrase match")
	}
}

func TestLikeScoreNoMatchIsZero(t *testing.T) {
	q := &models.Question{ContentText: "geometry proof"}
	if got := likeScore(q, "calculus"); got != 0 {
		t.Errorf("expected 0 for no match, got %f", got)
	}
}

func TestBM25Score(t *testing.T) {
	tests := []struct {
		bm25 float64
	}{
		{-0.5}, {-1.0}, {-10.0}, {0},
	}
	for _, tt := range tests {
		got := bm25Score(tt.bm25)
		if got < 0 || got >= 1 {
			t.Errorf("bm25Score(%f) = %f, want [0,1)", tt.bm25, got)
		}
	}
	// More negative BM25 means a better match and must score higher.
	if bm25Score(-10) <= bm25Score(-1) {
		t.Error("expected stronger BM25 match to score higher")
	}
}

func TestSortResults(t *testing.T) {
	day := 24 * time.Hour
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	results := func() []*models.SearchResult {
		return []*models.SearchResult{
			{QuestionID: 1, Score: 0.2, DifficultyLevel: "hard", CreatedDate: base},
			{QuestionID: 2, Score: 0.9, DifficultyLevel: "easy", CreatedDate: base.Add(day)},
			{QuestionID: 3, Score: 0.5, DifficultyLevel: "medium", CreatedDate: base.Add(2 * day)},
		}
	}

	t.Run("relevance desc", func(t *testing.T) {
		rs := results()
		sortResults(rs, models.SortByRelevance, "desc")
		if rs[0].QuestionID != 2 || rs[2].QuestionID != 1 {
			t.Errorf("got order %d,%d,%d", rs[0].QuestionID, rs[1].QuestionID, rs[2].QuestionID)
		}
	})
	t.Run("date asc", func(t *testing.T) {
		rs := results()
		sortResults(rs, models.SortByDate, "asc")
		if rs[0].QuestionID != 1 || rs[2].QuestionID != 3 {
			t.Errorf("got order %d,%d,%d", rs[0].QuestionID, rs[1].QuestionID, rs[2].QuestionID)
		}
	})
	t.Run("difficulty asc", func(t *testing.T) {
		rs := results()
		sortResults(rs, models.SortByDifficulty, "asc")
		if rs[0].DifficultyLevel != "easy" || rs[2].DifficultyLevel != "hard" {
			t.Errorf("got order %s,%s,%s", rs[0].DifficultyLevel, rs[1].DifficultyLevel, rs[2].DifficultyLevel)
		}
	})
	t.Run("ties fall back to newest first", func(t *testing.T) {
		rs := []*models.SearchResult{
			{QuestionID: 1, Score: 0.5, CreatedDate: base},
			{QuestionID: 2, Score: 0.5, CreatedDate: base.Add(day)},
		}
		sortResults(rs, models.SortByRelevance, "desc")
		if rs[0].QuestionID != 2 {
			t.Errorf("expected newest tied result first, got %d", rs[0].QuestionID)
		}
	})
}

func TestFTSMatch(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		fuzzy bool
		want  string
	}{
		{"exact phrase", "quadratic equation", false, `"quadratic equation"`},
		{"fuzzy tokens", "quadratic equation", true, `"quadratic"* OR "equation"*`},
		{"embedded quote", `say "hi"`, false, `"say ""hi"""`},
		{"empty", "   ", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ftsMatch(tt.text, tt.fuzzy); got != tt.want {
				t.Errorf("ftsMatch(%q, %v) = %q, want %q", tt.text, tt.fuzzy, got, tt.want)
			}
		})
	}
}

func TestLikeTerms(t *testing.T) {
	exact := likeTerms("quadratic equation", false)
	if len(exact) != 1 || exact[0] != "quadratic equation" {
		t.Errorf("exact terms = %v", exact)
	}
	fuzzy := likeTerms("quadratic equation", true)
	if len(fuzzy) != 2 {
		t.Errorf("fuzzy terms = %v", fuzzy)
	}
}

func TestMatchesFilters(t *testing.T) {
	treeID := int64(7)
	q := &models.Question{
		TreeID:          7,
		ContentType:     "text",
		DifficultyLevel: "medium",
		QuestionType:    "knowledge",
		Status:          "active",
		CreatedDate:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Tags:            []string{"algebra", "grade9"},
	}
	tests := []struct {
		name string
		f    models.Filters
		want bool
	}{
		{"empty filters", models.Filters{}, true},
		{"tree match", models.Filters{TreeID: &treeID}, true},
		{"difficulty mismatch", models.Filters{DifficultyLevel: "hard"}, false},
		{"date window", models.Filters{DateFrom: "2025-06-01", DateTo: "2025-06-30"}, true},
		{"date too early", models.Filters{DateFrom: "2025-07-01"}, false},
		{"status list", models.Filters{Status: []string{"active", "draft"}}, true},
		{"status excluded", models.Filters{Status: []string{"archived"}}, false},
		{"tags subset", models.Filters{Tags: []string{"algebra"}}, true},
		{"tags require all", models.Filters{Tags: []string{"algebra", "geometry"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesFilters(q, &tt.f); got != tt.want {
				t.Errorf("matchesFilters = %v, want %v", got, tt.want)
			}
		})
	}
}
