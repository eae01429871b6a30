// Package storage defines the persistence interface for the question bank.
package storage

import (
	"context"
	"errors"

	"github.com/kyozai/toibako/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// FTSHit is one full-text search match with its raw BM25 score and
// highlighted snippets. BM25 as reported by SQLite is negative
// (more negative = better); callers normalize it.
type FTSHit struct {
	Question       *models.Question
	ContentSnippet string
	AnswerSnippet  string
	BM25           float64
}

// Storage defines question-bank persistence and retrieval operations.
type Storage interface {
	// Question operations
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	ListQuestions(ctx context.Context, offset, limit int) ([]*models.Question, error)
	CountQuestions(ctx context.Context) (int64, error)

	// Tag operations
	SetTags(ctx context.Context, questionID int64, tags []string) error
	TagsForQuestion(ctx context.Context, questionID int64) ([]string, error)
	QuestionIDsByTags(ctx context.Context, tags []string, matchAll bool) ([]int64, error)
	QuestionsByIDs(ctx context.Context, ids []int64) ([]*models.Question, error)

	// Category tree
	CreateTreeNode(ctx context.Context, node *models.TreeNode) error
	TreePath(ctx context.Context, treeID int64) (string, error)
	SubtreeIDs(ctx context.Context, level, name string) ([]int64, error)

	// Retrieval
	HasFTS() bool
	RebuildFTS(ctx context.Context) error
	FTSSearch(ctx context.Context, match string, limit int) ([]*FTSHit, error)
	LikeSearch(ctx context.Context, terms, fields []string, caseSensitive bool, limit int) ([]*models.Question, error)

	// Structured filtering and lookups
	FilterQuestions(ctx context.Context, f *models.Filters) ([]*models.Question, error)
	FilterOptions(ctx context.Context) (*models.FilterOptions, error)
	ContentSuggestions(ctx context.Context, partial string, limit int) ([]string, error)
	TagSuggestions(ctx context.Context, partial string, limit int) ([]string, error)

	Close() error
}
