package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kyozai/toibako/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "questions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreate(t *testing.T, store *SQLiteStore, q *models.Question) *models.Question {
	t.Helper()
	if q.ContentType == "" {
		q.ContentType = "text"
	}
	if q.DifficultyLevel == "" {
		q.DifficultyLevel = "medium"
	}
	if q.QuestionType == "" {
		q.QuestionType = "knowledge"
	}
	if q.Status == "" {
		q.Status = "active"
	}
	if err := store.CreateQuestion(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	return q
}

func TestCreateAndGetQuestion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q := mustCreate(t, store, &models.Question{
		ContentText: "Solve x^2 - 4 = 0",
		AnswerText:  "x = 2 or x = -2",
		Tags:        []string{"algebra", "equations"},
	})
	if q.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := store.GetQuestion(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentText != q.ContentText || got.AnswerText != q.AnswerText {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "algebra" || got.Tags[1] != "equations" {
		t.Errorf("tags: got %v", got.Tags)
	}
}

func TestCreateQuestion_requiresContent(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateQuestion(context.Background(), &models.Question{ContentText: "  "})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestGetQuestion_notFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetQuestion(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteQuestion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q := mustCreate(t, store, &models.Question{ContentText: "delete me", Tags: []string{"tmp"}})

	if err := store.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetQuestion(ctx, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("question should be gone, got %v", err)
	}
	tags, err := store.TagsForQuestion(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 0 {
		t.Errorf("tags should cascade: got %v", tags)
	}
	if err := store.DeleteQuestion(ctx, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestQuestionIDsByTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	both := mustCreate(t, store, &models.Question{ContentText: "has both", Tags: []string{"algebra", "geometry"}})
	onlyAlgebra := mustCreate(t, store, &models.Question{ContentText: "only algebra", Tags: []string{"algebra"}})
	mustCreate(t, store, &models.Question{ContentText: "untagged"})

	t.Run("match_all", func(t *testing.T) {
		ids, err := store.QuestionIDsByTags(ctx, []string{"algebra", "geometry"}, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 1 || ids[0] != both.ID {
			t.Errorf("got %v, want only %d", ids, both.ID)
		}
	})

	t.Run("match_any", func(t *testing.T) {
		ids, err := store.QuestionIDsByTags(ctx, []string{"algebra", "geometry"}, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 2 {
			t.Fatalf("got %v, want 2 ids", ids)
		}
		seen := map[int64]bool{}
		for _, id := range ids {
			seen[id] = true
		}
		if !seen[both.ID] || !seen[onlyAlgebra.ID] {
			t.Errorf("union missing ids: %v", ids)
		}
	})

	t.Run("empty_tags", func(t *testing.T) {
		ids, err := store.QuestionIDsByTags(ctx, nil, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 0 {
			t.Errorf("got %v, want none", ids)
		}
	})
}

func TestTreePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	subject := &models.TreeNode{Name: "Math", Level: "subject"}
	if err := store.CreateTreeNode(ctx, subject); err != nil {
		t.Fatal(err)
	}
	grade := &models.TreeNode{Name: "Grade 9", Level: "grade", ParentID: &subject.ID}
	if err := store.CreateTreeNode(ctx, grade); err != nil {
		t.Fatal(err)
	}
	topic := &models.TreeNode{Name: "Algebra", Level: "topic", ParentID: &grade.ID}
	if err := store.CreateTreeNode(ctx, topic); err != nil {
		t.Fatal(err)
	}

	path, err := store.TreePath(ctx, topic.ID)
	if err != nil {
		t.Fatal(err)
	}
	if path != "Math > Grade 9 > Algebra" {
		t.Errorf("path: got %q", path)
	}

	path, err = store.TreePath(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("zero tree id should yield empty path, got %q", path)
	}
}

func TestLikeSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, &models.Question{ContentText: "Solve the quadratic equation x^2=4"})
	mustCreate(t, store, &models.Question{ContentText: "Name the capital of France", AnswerText: "Paris"})
	mustCreate(t, store, &models.Question{ContentText: "Tagged question", Tags: []string{"quadratic"}})

	t.Run("content", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"quadratic"}, []string{"content"}, false, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 1 {
			t.Fatalf("got %d results, want 1", len(qs))
		}
	})

	t.Run("content_and_tags", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"quadratic"}, []string{"content", "tags"}, false, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 2 {
			t.Fatalf("got %d results, want 2", len(qs))
		}
	})

	t.Run("answer", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"paris"}, []string{"answer"}, false, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 1 {
			t.Fatalf("got %d results, want 1", len(qs))
		}
	})

	t.Run("case_sensitive_miss", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"paris"}, []string{"answer"}, true, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 0 {
			t.Fatalf("got %d results, want 0", len(qs))
		}
	})

	t.Run("case_sensitive_hit", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"Paris"}, []string{"answer"}, true, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 1 {
			t.Fatalf("got %d results, want 1", len(qs))
		}
	})

	t.Run("case_sensitive_tags", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"Quadratic"}, []string{"tags"}, true, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 0 {
			t.Fatalf("tag is stored lowercase, want 0 results, got %d", len(qs))
		}
	})

	t.Run("wildcards_escaped", func(t *testing.T) {
		qs, err := store.LikeSearch(ctx, []string{"100%"}, []string{"content"}, false, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 0 {
			t.Fatalf("literal %% should not match everything: got %d", len(qs))
		}
	})
}

func TestFilterQuestions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	subject := &models.TreeNode{Name: "Math", Level: "subject"}
	if err := store.CreateTreeNode(ctx, subject); err != nil {
		t.Fatal(err)
	}
	grade := &models.TreeNode{Name: "Grade 9", Level: "grade", ParentID: &subject.ID}
	if err := store.CreateTreeNode(ctx, grade); err != nil {
		t.Fatal(err)
	}

	old := mustCreate(t, store, &models.Question{
		ContentText:     "old easy math",
		DifficultyLevel: "easy",
		TreeID:          grade.ID,
		CreatedDate:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:            []string{"algebra"},
	})
	recent := mustCreate(t, store, &models.Question{
		ContentText:     "recent hard history",
		DifficultyLevel: "hard",
		QuestionType:    "comprehension",
		CreatedDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	t.Run("difficulty", func(t *testing.T) {
		qs, err := store.FilterQuestions(ctx, &models.Filters{DifficultyLevel: "easy"})
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 1 || qs[0].ID != old.ID {
			t.Errorf("got %v", qs)
		}
	})

	t.Run("subject_includes_descendants", func(t *testing.T) {
		qs, err := store.FilterQuestions(ctx, &models.Filters{Subject: "Math"})
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 1 || qs[0].ID != old.ID {
			t.Errorf("subject filter should match questions on child nodes: got %v", qs)
		}
	})

	t.Run("date_range", func(t *testing.T) {
		qs, err := store.FilterQuestions(ctx, &models.Filters{DateFrom: "2024-01-01"})
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 1 || qs[0].ID != recent.ID {
			t.Errorf("got %v", qs)
		}
	})

	t.Run("tags_require_all", func(t *testing.T) {
		qs, err := store.FilterQuestions(ctx, &models.Filters{Tags: []string{"algebra", "missing"}})
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 0 {
			t.Errorf("got %v, want none", qs)
		}
	})

	t.Run("no_filters_returns_all", func(t *testing.T) {
		qs, err := store.FilterQuestions(ctx, &models.Filters{})
		if err != nil {
			t.Fatal(err)
		}
		if len(qs) != 2 {
			t.Errorf("got %d, want 2", len(qs))
		}
		if qs[0].ID != recent.ID {
			t.Errorf("expected newest first, got %d", qs[0].ID)
		}
	})
}

func TestFilterOptions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	subject := &models.TreeNode{Name: "Math", Level: "subject"}
	if err := store.CreateTreeNode(ctx, subject); err != nil {
		t.Fatal(err)
	}
	mustCreate(t, store, &models.Question{ContentText: "a", DifficultyLevel: "hard", Tags: []string{"algebra"}})
	mustCreate(t, store, &models.Question{ContentText: "b", DifficultyLevel: "easy"})

	opts, err := store.FilterOptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Subjects) != 1 || opts.Subjects[0] != "Math" {
		t.Errorf("subjects: got %v", opts.Subjects)
	}
	if len(opts.DifficultyLevels) != 2 || opts.DifficultyLevels[0] != "easy" || opts.DifficultyLevels[1] != "hard" {
		t.Errorf("difficulty order: got %v", opts.DifficultyLevels)
	}
	if len(opts.Tags) != 1 || opts.Tags[0] != "algebra" {
		t.Errorf("tags: got %v", opts.Tags)
	}
	if len(opts.ContentTypes) != 1 || opts.ContentTypes[0] != "text" {
		t.Errorf("content types: got %v", opts.ContentTypes)
	}
}

func TestSuggestions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, store, &models.Question{ContentText: "What is the Pythagorean theorem?"})
	mustCreate(t, store, &models.Question{ContentText: "Short one", Tags: []string{"pythagoras"}})

	content, err := store.ContentSuggestions(ctx, "pythag", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(content) != 1 {
		t.Errorf("content suggestions: got %v", content)
	}
	tags, err := store.TagSuggestions(ctx, "pythag", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "pythagoras" {
		t.Errorf("tag suggestions: got %v", tags)
	}
}

func TestFTSSearch(t *testing.T) {
	store := newTestStore(t)
	if !store.HasFTS() {
		t.Skip("sqlite built without FTS5")
	}
	ctx := context.Background()

	q := mustCreate(t, store, &models.Question{
		ContentText: "Derive the quadratic formula from completing the square",
		Tags:        []string{"algebra"},
	})
	mustCreate(t, store, &models.Question{ContentText: "Unrelated grammar question"})

	hits, err := store.FTSSearch(ctx, `"quadratic"`, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Question.ID != q.ID {
		t.Errorf("hit id: got %d, want %d", hits[0].Question.ID, q.ID)
	}
	if hits[0].BM25 >= 0 {
		t.Errorf("bm25 should be negative for a match, got %f", hits[0].BM25)
	}
	if hits[0].ContentSnippet == "" {
		t.Error("expected a content snippet")
	}

	t.Run("rebuild", func(t *testing.T) {
		if err := store.RebuildFTS(ctx); err != nil {
			t.Fatal(err)
		}
		hits, err := store.FTSSearch(ctx, `"quadratic"`, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 1 {
			t.Errorf("after rebuild: got %d hits, want 1", len(hits))
		}
	})
}

func TestCountQuestions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, store, &models.Question{ContentText: "one"})
	mustCreate(t, store, &models.Question{ContentText: "two"})

	n, err := store.CountQuestions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count: got %d, want 2", n)
	}
}
