package storage

import (
	"context"
	"strings"
)

// HasFTS reports whether the FTS5 virtual table is available.
func (s *SQLiteStore) HasFTS() bool {
	return s.fts
}

// upsertFTSRow refreshes the FTS row for one question, concatenating
// its tags into the tags column.
func (s *SQLiteStore) upsertFTSRow(ctx context.Context, questionID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM question_fts WHERE rowid = ?`, questionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_fts (rowid, content_text, answer_text, tags)
		 SELECT q.id, q.content_text, q.answer_text,
		        COALESCE((SELECT GROUP_CONCAT(t.tag_name, ' ')
		                  FROM question_tags t WHERE t.question_id = q.id), '')
		 FROM question_bank q WHERE q.id = ?`, questionID)
	return err
}

// RebuildFTS repopulates the FTS table from question_bank.
// No-op when FTS is unavailable.
func (s *SQLiteStore) RebuildFTS(ctx context.Context) error {
	if !s.fts {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM question_fts`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_fts (rowid, content_text, answer_text, tags)
		 SELECT q.id, q.content_text, q.answer_text,
		        COALESCE(GROUP_CONCAT(t.tag_name, ' '), '')
		 FROM question_bank q
		 LEFT JOIN question_tags t ON q.id = t.question_id
		 GROUP BY q.id`)
	return err
}

// FTSSearch runs an FTS5 MATCH query and returns hits ordered by BM25
// (best first), with highlighted snippets for content and answer.
func (s *SQLiteStore) FTSSearch(ctx context.Context, match string, limit int) ([]*FTSHit, error) {
	if !s.fts || strings.TrimSpace(match) == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.content_text, q.content_type, q.answer_text,
		        q.difficulty_level, q.question_type, q.tree_id, q.status, q.created_date,
		        snippet(question_fts, 0, '<mark>', '</mark>', '...', 32),
		        snippet(question_fts, 1, '<mark>', '</mark>', '...', 32),
		        bm25(question_fts)
		 FROM question_fts
		 JOIN question_bank q ON question_fts.rowid = q.id
		 WHERE question_fts MATCH ?
		 ORDER BY bm25(question_fts)
		 LIMIT ?`, match, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*FTSHit
	for rows.Next() {
		hit := &FTSHit{}
		var err error
		hit.Question, err = scanQuestion(func(dest ...any) error {
			dest = append(dest, &hit.ContentSnippet, &hit.AnswerSnippet, &hit.BM25)
			return rows.Scan(dest...)
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, hit := range hits {
		tags, err := s.TagsForQuestion(ctx, hit.Question.ID)
		if err != nil {
			return nil, err
		}
		hit.Question.Tags = tags
	}
	return hits, nil
}
