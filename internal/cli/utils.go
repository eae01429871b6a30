// Package cli provides output formatting for the Toibako command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kyozai/toibako/internal/models"
	"github.com/kyozai/toibako/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResponse writes a search response to w in the given format.
func WriteSearchResponse(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (strategy: %s)\n\n",
		response.Total, response.QueryTime, response.Strategy)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

// WriteResults writes a bare result list (tag search, filter) to w.
func WriteResults(w io.Writer, results []*models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(results))
	for _, result := range results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d | Score: %.4f | %s/%s\n",
		result.QuestionID, result.Score, result.DifficultyLevel, result.QuestionType)
	if result.TreePath != "" {
		fmt.Fprintf(w, "Path: %s\n", result.TreePath)
	}
	if len(result.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(result.Tags, ", "))
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.ContentText, 200))
	if result.AnswerText != "" {
		fmt.Fprintf(w, "Answer: %s\n", utils.Truncate(result.AnswerText, 120))
	}
	fmt.Fprintln(w)
}

// WriteSuggestions writes autocomplete suggestions to w.
func WriteSuggestions(w io.Writer, suggestions []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, suggestions)
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "No suggestions.")
		return nil
	}
	for _, s := range suggestions {
		fmt.Fprintf(w, "  %s\n", s)
	}
	return nil
}

// WriteFilterOptions writes the available filter values to w.
func WriteFilterOptions(w io.Writer, options *models.FilterOptions, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, options)
	}
	writeValueList(w, "Subjects", options.Subjects)
	writeValueList(w, "Grades", options.Grades)
	writeValueList(w, "Content types", options.ContentTypes)
	writeValueList(w, "Difficulty levels", options.DifficultyLevels)
	writeValueList(w, "Question types", options.QuestionTypes)
	writeValueList(w, "Tags", options.Tags)
	return nil
}

func writeValueList(w io.Writer, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, strings.Join(values, ", "))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
