package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kyozai/toibako/internal/models"
)

// LikeSearch scans questions for any of the given terms using LIKE.
// Each term is matched as a substring across the requested fields
// ("content", "answer", "tags"); terms are OR'd together. This is the
// fallback retrieval path when FTS5 is unavailable; results carry no
// ranking and are returned newest first.
func (s *SQLiteStore) LikeSearch(ctx context.Context, terms, fields []string, caseSensitive bool, limit int) ([]*models.Question, error) {
	var conditions []string
	var args []any

	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		// LIKE ignores ASCII case no matter how the pattern is written,
		// so the case-sensitive path matches with instr instead.
		match := `LOWER(%s) LIKE LOWER(?) ESCAPE '\'`
		arg := any("%" + escapeLike(term) + "%")
		if caseSensitive {
			match = "instr(%s, ?) > 0"
			arg = term
		}
		for _, field := range fields {
			switch field {
			case "content":
				conditions = append(conditions, fmt.Sprintf(match, "q.content_text"))
				args = append(args, arg)
			case "answer":
				conditions = append(conditions, fmt.Sprintf(match, "q.answer_text"))
				args = append(args, arg)
			case "tags":
				conditions = append(conditions,
					`q.id IN (SELECT question_id FROM question_tags WHERE `+
						fmt.Sprintf(match, "tag_name")+`)`)
				args = append(args, arg)
			}
		}
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT ` + qualifiedQuestionColumns + ` FROM question_bank q
		WHERE ` + strings.Join(conditions, " OR ") + `
		ORDER BY q.created_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectQuestions(ctx, rows)
}

const qualifiedQuestionColumns = `q.id, q.content_text, q.content_type, q.answer_text,
	q.difficulty_level, q.question_type, q.tree_id, q.status, q.created_date`

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// FilterQuestions returns questions matching the structured filters,
// newest first. Subject, grade, and topic constraints select the named
// tree node and all of its descendants.
func (s *SQLiteStore) FilterQuestions(ctx context.Context, f *models.Filters) ([]*models.Question, error) {
	query := `SELECT ` + qualifiedQuestionColumns + ` FROM question_bank q WHERE 1=1`
	var args []any

	if f.TreeID != nil {
		query += ` AND q.tree_id = ?`
		args = append(args, *f.TreeID)
	}
	for level, name := range map[string]string{
		"subject": f.Subject,
		"grade":   f.Grade,
		"topic":   f.Topic,
	} {
		if name == "" {
			continue
		}
		query += ` AND q.tree_id IN (
			WITH RECURSIVE subtree(id) AS (
				SELECT id FROM exercise_tree WHERE name = ? AND level = ?
				UNION ALL
				SELECT et.id FROM exercise_tree et JOIN subtree ON et.parent_id = subtree.id
			)
			SELECT id FROM subtree
		)`
		args = append(args, name, level)
	}
	if f.ContentType != "" {
		query += ` AND q.content_type = ?`
		args = append(args, f.ContentType)
	}
	if f.DifficultyLevel != "" {
		query += ` AND q.difficulty_level = ?`
		args = append(args, f.DifficultyLevel)
	}
	if f.QuestionType != "" {
		query += ` AND q.question_type = ?`
		args = append(args, f.QuestionType)
	}
	if len(f.Status) > 0 {
		query += ` AND q.status IN (` + strings.Repeat("?,", len(f.Status)-1) + `?)`
		for _, st := range f.Status {
			args = append(args, st)
		}
	}
	if t, ok := models.ParseFilterDate(f.DateFrom); ok {
		query += ` AND q.created_date >= ?`
		args = append(args, t)
	}
	if t, ok := models.ParseFilterDate(f.DateTo); ok {
		query += ` AND q.created_date <= ?`
		args = append(args, t)
	}
	if len(f.Tags) > 0 {
		// All listed tags must be present.
		query += ` AND q.id IN (
			SELECT question_id FROM question_tags
			WHERE tag_name IN (` + strings.Repeat("?,", len(f.Tags)-1) + `?)
			GROUP BY question_id
			HAVING COUNT(DISTINCT tag_name) = ?
		)`
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
		args = append(args, len(f.Tags))
	}

	query += ` ORDER BY q.created_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectQuestions(ctx, rows)
}

// FilterOptions returns the distinct values present for each filterable
// column. Difficulty levels come back in easy < medium < hard order;
// tags are the 50 most used.
func (s *SQLiteStore) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	opts := &models.FilterOptions{}

	var err error
	if opts.Subjects, err = s.stringColumn(ctx,
		`SELECT DISTINCT name FROM exercise_tree WHERE level = 'subject' ORDER BY name`); err != nil {
		return nil, err
	}
	if opts.Grades, err = s.stringColumn(ctx,
		`SELECT DISTINCT name FROM exercise_tree WHERE level = 'grade' ORDER BY name`); err != nil {
		return nil, err
	}
	if opts.ContentTypes, err = s.stringColumn(ctx,
		`SELECT DISTINCT content_type FROM question_bank ORDER BY content_type`); err != nil {
		return nil, err
	}
	if opts.DifficultyLevels, err = s.stringColumn(ctx,
		`SELECT DISTINCT difficulty_level FROM question_bank
		 ORDER BY CASE difficulty_level
			WHEN 'easy' THEN 1
			WHEN 'medium' THEN 2
			WHEN 'hard' THEN 3
			ELSE 4 END`); err != nil {
		return nil, err
	}
	if opts.QuestionTypes, err = s.stringColumn(ctx,
		`SELECT DISTINCT question_type FROM question_bank ORDER BY question_type`); err != nil {
		return nil, err
	}
	if opts.Tags, err = s.stringColumn(ctx,
		`SELECT tag_name FROM question_tags
		 GROUP BY tag_name ORDER BY COUNT(*) DESC, tag_name LIMIT 50`); err != nil {
		return nil, err
	}
	return opts, nil
}

// ContentSuggestions returns short content texts containing the partial
// string, shortest first.
func (s *SQLiteStore) ContentSuggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT DISTINCT content_text FROM question_bank
		 WHERE LOWER(content_text) LIKE LOWER(?) ESCAPE '\'
		 AND LENGTH(content_text) < 200
		 ORDER BY LENGTH(content_text) LIMIT ?`,
		"%"+escapeLike(partial)+"%", limit)
}

// TagSuggestions returns tag names containing the partial string.
func (s *SQLiteStore) TagSuggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT DISTINCT tag_name FROM question_tags
		 WHERE LOWER(tag_name) LIKE LOWER(?) ESCAPE '\'
		 ORDER BY tag_name LIMIT ?`,
		"%"+escapeLike(partial)+"%", limit)
}

func (s *SQLiteStore) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
