// Package importer loads question files into the bank. Files are JSON,
// holding either a single question object or an array of them.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyozai/toibako/internal/metrics"
	"github.com/kyozai/toibako/internal/models"
	"github.com/kyozai/toibako/internal/storage"
)

// Report summarizes one import call.
type Report struct {
	BatchID  string `json:"batch_id"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Files    int    `json:"files"`
}

// Importer reads question files and creates bank entries.
type Importer struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewImporter creates an importer with the given dependencies.
func NewImporter(store storage.Storage, logger *zap.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// ImportFile imports all questions from a single JSON file. Entries
// with empty content are skipped, not fatal; the report counts both
// outcomes. Each call gets a fresh batch id for log correlation.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	report := &Report{BatchID: uuid.New().String(), Files: 1}
	inputs, err := readQuestionFile(path)
	if err != nil {
		return nil, err
	}
	im.importInputs(ctx, inputs, path, report)
	im.logger.Info("file imported",
		zap.String("path", path),
		zap.String("batch_id", report.BatchID),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// ImportDirectory walks dir and imports every file with an allowed
// extension. Unreadable or malformed files are skipped and logged so
// one bad file cannot abort a batch.
func (im *Importer) ImportDirectory(ctx context.Context, dir string, extensions []string) (*Report, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	report := &Report{BatchID: uuid.New().String()}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !ExtensionAllowed(path, extensions) {
			return nil
		}
		inputs, readErr := readQuestionFile(path)
		if readErr != nil {
			im.logger.Warn("skipping unreadable import file", zap.String("path", path), zap.Error(readErr))
			metrics.QuestionsImportedTotal.WithLabelValues("error").Inc()
			return nil
		}
		report.Files++
		im.importInputs(ctx, inputs, path, report)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	im.logger.Info("directory imported",
		zap.String("dir", absDir),
		zap.String("batch_id", report.BatchID),
		zap.Int("files", report.Files),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (im *Importer) importInputs(ctx context.Context, inputs []models.QuestionInput, path string, report *Report) {
	for i := range inputs {
		in := &inputs[i]
		if strings.TrimSpace(in.ContentText) == "" {
			report.Skipped++
			metrics.QuestionsImportedTotal.WithLabelValues("error").Inc()
			continue
		}
		in.ApplyDefaults()
		q := &models.Question{
			ContentText:     in.ContentText,
			ContentType:     in.ContentType,
			AnswerText:      in.AnswerText,
			DifficultyLevel: in.DifficultyLevel,
			QuestionType:    in.QuestionType,
			TreeID:          in.TreeID,
			Status:          in.Status,
			Tags:            in.Tags,
		}
		if err := im.store.CreateQuestion(ctx, q); err != nil {
			im.logger.Warn("skipping question",
				zap.String("path", path),
				zap.Int("entry", i),
				zap.Error(err),
			)
			report.Skipped++
			metrics.QuestionsImportedTotal.WithLabelValues("error").Inc()
			continue
		}
		report.Imported++
		metrics.QuestionsImportedTotal.WithLabelValues("ok").Inc()
	}
}

// readQuestionFile parses path as either a single question object or an
// array of them.
func readQuestionFile(path string) ([]models.QuestionInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %s", path)
	}
	if data[0] == '[' {
		var inputs []models.QuestionInput
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("parse question array: %w", err)
		}
		return inputs, nil
	}
	var input models.QuestionInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse question: %w", err)
	}
	return []models.QuestionInput{input}, nil
}

// ExtensionAllowed reports whether path has one of the allowed
// extensions. An empty list allows everything.
func ExtensionAllowed(path string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}
