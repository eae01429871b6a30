// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kyozai/toibako/internal/models"
)

// SQLiteStore implements Storage using SQLite. Full-text search is
// best-effort: when the driver is built without FTS5 the virtual table
// cannot be created and retrieval falls back to LIKE scans.
type SQLiteStore struct {
	db  *sql.DB
	fts bool
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, fts: initFTS(db)}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS exercise_tree (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER REFERENCES exercise_tree(id),
		name TEXT NOT NULL,
		level TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tree_parent ON exercise_tree(parent_id);
	CREATE INDEX IF NOT EXISTS idx_tree_level ON exercise_tree(level);

	CREATE TABLE IF NOT EXISTS question_bank (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_text TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT 'text',
		answer_text TEXT NOT NULL DEFAULT '',
		difficulty_level TEXT NOT NULL DEFAULT 'medium',
		question_type TEXT NOT NULL DEFAULT 'knowledge',
		tree_id INTEGER REFERENCES exercise_tree(id),
		status TEXT NOT NULL DEFAULT 'active',
		created_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_question_tree ON question_bank(tree_id);
	CREATE INDEX IF NOT EXISTS idx_question_difficulty ON question_bank(difficulty_level);
	CREATE INDEX IF NOT EXISTS idx_question_type ON question_bank(question_type);
	CREATE INDEX IF NOT EXISTS idx_question_date ON question_bank(created_date);

	CREATE TABLE IF NOT EXISTS question_tags (
		question_id INTEGER NOT NULL REFERENCES question_bank(id) ON DELETE CASCADE,
		tag_name TEXT NOT NULL,
		PRIMARY KEY (question_id, tag_name)
	);

	CREATE INDEX IF NOT EXISTS idx_tags_name ON question_tags(tag_name);
	`
	_, err := db.Exec(schema)
	return err
}

// initFTS attempts to create the FTS5 virtual table. Returns false when
// the SQLite build lacks FTS5; the store then serves LIKE scans only.
func initFTS(db *sql.DB) bool {
	_, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS question_fts
		USING fts5(content_text, answer_text, tags)`)
	return err == nil
}

const questionColumns = `id, content_text, content_type, answer_text,
	difficulty_level, question_type, tree_id, status, created_date`

func scanQuestion(scan func(dest ...any) error) (*models.Question, error) {
	var q models.Question
	var treeID sql.NullInt64
	err := scan(&q.ID, &q.ContentText, &q.ContentType, &q.AnswerText,
		&q.DifficultyLevel, &q.QuestionType, &treeID, &q.Status, &q.CreatedDate)
	if err != nil {
		return nil, err
	}
	if treeID.Valid {
		q.TreeID = treeID.Int64
	}
	return &q, nil
}

// CreateQuestion inserts a question, its tags, and its FTS row.
func (s *SQLiteStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	if strings.TrimSpace(q.ContentText) == "" {
		return fmt.Errorf("content_text is required")
	}
	if q.CreatedDate.IsZero() {
		q.CreatedDate = time.Now()
	}
	var treeID any
	if q.TreeID != 0 {
		treeID = q.TreeID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO question_bank (content_text, content_type, answer_text,
		 difficulty_level, question_type, tree_id, status, created_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ContentText, q.ContentType, q.AnswerText,
		q.DifficultyLevel, q.QuestionType, treeID, q.Status, q.CreatedDate,
	)
	if err != nil {
		return err
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	if len(q.Tags) > 0 {
		if err := s.SetTags(ctx, q.ID, q.Tags); err != nil {
			return err
		}
	} else if s.fts {
		return s.upsertFTSRow(ctx, q.ID)
	}
	return nil
}

// GetQuestion returns a question with its tags.
func (s *SQLiteStore) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM question_bank WHERE id = ?`, id)
	q, err := scanQuestion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	q.Tags, err = s.TagsForQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuestion removes a question, its tags (cascaded), and its FTS row.
func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM question_bank WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	if s.fts {
		_, err = s.db.ExecContext(ctx, `DELETE FROM question_fts WHERE rowid = ?`, id)
	}
	return err
}

// ListQuestions returns questions ordered by creation date, newest first.
func (s *SQLiteStore) ListQuestions(ctx context.Context, offset, limit int) ([]*models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM question_bank
		 ORDER BY created_date DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectQuestions(ctx, rows)
}

// CountQuestions returns the total number of questions.
func (s *SQLiteStore) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM question_bank`).Scan(&count)
	return count, err
}

// SetTags replaces the tag set of a question and refreshes its FTS row.
func (s *SQLiteStore) SetTags(ctx context.Context, questionID int64, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM question_tags WHERE question_id = ?`, questionID); err != nil {
		return err
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO question_tags (question_id, tag_name) VALUES (?, ?)`,
			questionID, tag); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if s.fts {
		return s.upsertFTSRow(ctx, questionID)
	}
	return nil
}

// TagsForQuestion returns the tag names attached to a question, sorted.
func (s *SQLiteStore) TagsForQuestion(ctx context.Context, questionID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_name FROM question_tags WHERE question_id = ? ORDER BY tag_name`,
		questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// QuestionIDsByTags returns ids of questions matching the tag set.
// matchAll requires every tag (count-equals-N); otherwise any tag matches.
func (s *SQLiteStore) QuestionIDsByTags(ctx context.Context, tags []string, matchAll bool) ([]int64, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(tags)-1) + "?"
	args := make([]any, 0, len(tags)+1)
	for _, t := range tags {
		args = append(args, t)
	}

	query := `SELECT DISTINCT question_id FROM question_tags
		WHERE tag_name IN (` + placeholders + `)`
	if matchAll {
		query = `SELECT question_id FROM question_tags
			WHERE tag_name IN (` + placeholders + `)
			GROUP BY question_id
			HAVING COUNT(DISTINCT tag_name) = ?`
		args = append(args, len(tags))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// QuestionsByIDs returns the questions with the given ids, newest first, with tags.
func (s *SQLiteStore) QuestionsByIDs(ctx context.Context, ids []int64) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM question_bank
		 WHERE id IN (`+placeholders+`) ORDER BY created_date DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectQuestions(ctx, rows)
}

// collectQuestions scans all rows and attaches tags to each question.
func (s *SQLiteStore) collectQuestions(ctx context.Context, rows *sql.Rows) ([]*models.Question, error) {
	var qs []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, q := range qs {
		tags, err := s.TagsForQuestion(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		q.Tags = tags
	}
	return qs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
