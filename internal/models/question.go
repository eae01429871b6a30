// Package models defines core data structures for questions, queries, and search results.
package models

import "time"

// Question represents a stored question-bank entry.
type Question struct {
	ID              int64     `json:"id" db:"id"`
	ContentText     string    `json:"content_text" db:"content_text"`
	ContentType     string    `json:"content_type" db:"content_type"`
	AnswerText      string    `json:"answer_text" db:"answer_text"`
	DifficultyLevel string    `json:"difficulty_level" db:"difficulty_level"`
	QuestionType    string    `json:"question_type" db:"question_type"`
	TreeID          int64     `json:"tree_id,omitempty" db:"tree_id"`
	Status          string    `json:"status" db:"status"`
	CreatedDate     time.Time `json:"created_date" db:"created_date"`
	Tags            []string  `json:"tags,omitempty" db:"-"`
}

// QuestionInput is the input for creating or updating a question.
// ContentText is required; other fields fall back to defaults.
type QuestionInput struct {
	ContentText     string   `json:"content_text"`
	ContentType     string   `json:"content_type,omitempty"`
	AnswerText      string   `json:"answer_text,omitempty"`
	DifficultyLevel string   `json:"difficulty_level,omitempty"`
	QuestionType    string   `json:"question_type,omitempty"`
	TreeID          int64    `json:"tree_id,omitempty"`
	Status          string   `json:"status,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// ApplyDefaults fills unset input fields with question-bank defaults.
func (in *QuestionInput) ApplyDefaults() {
	if in.ContentType == "" {
		in.ContentType = "text"
	}
	if in.DifficultyLevel == "" {
		in.DifficultyLevel = "medium"
	}
	if in.QuestionType == "" {
		in.QuestionType = "knowledge"
	}
	if in.Status == "" {
		in.Status = "active"
	}
}

// TreeNode is one node of the hierarchical category tree
// (subject -> grade -> topic) that questions attach to.
type TreeNode struct {
	ID       int64  `json:"id" db:"id"`
	ParentID *int64 `json:"parent_id,omitempty" db:"parent_id"`
	Name     string `json:"name" db:"name"`
	Level    string `json:"level" db:"level"`
}
