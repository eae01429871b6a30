// Package keyword provides tokenization, stemming, and keyword extraction
// for question text.
package keyword

import (
	"regexp"
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase index terms, dropping stop words
// and tokens outside the accepted length range.
type Tokenizer struct {
	stopWords map[string]bool
	minLength int
	maxLength int
}

// NewTokenizer returns a tokenizer with the default English stop-word list.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopWords: defaultStopWords(),
		minLength: 2,
		maxLength: 50,
	}
}

var wordPattern = regexp.MustCompile(`[\pL\pN]+`)

// Tokenize returns the index terms of text, in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	normalized := t.normalize(text)
	words := wordPattern.FindAllString(normalized, -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if t.stopWords[word] {
			continue
		}
		if len(word) < t.minLength || len(word) > t.maxLength {
			continue
		}
		if !validToken(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func (t *Tokenizer) normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "-", " ")
	return strings.ReplaceAll(text, "_", " ")
}

// validToken rejects tokens that are all digits or digit-dominated.
func validToken(word string) bool {
	letters, digits := 0, 0
	for _, r := range word {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters > 0 && digits <= letters
}

func defaultStopWords() map[string]bool {
	words := []string{
		"a", "an", "the",
		"i", "me", "my", "we", "our", "you", "your",
		"he", "him", "his", "she", "her", "it", "its", "they", "them", "their",
		"of", "at", "by", "for", "with", "about", "between",
		"into", "through", "during", "before", "after", "above", "below",
		"to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
		"and", "or", "but", "if", "while", "because", "as", "until",
		"than", "so", "nor", "yet",
		"is", "am", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "having",
		"do", "does", "did", "doing",
		"will", "would", "should", "could", "can", "may", "might", "must",
		"this", "that", "these", "those",
		"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
		"all", "each", "every", "both", "few", "more", "most", "other", "some", "such",
		"no", "not", "only", "own", "same", "then", "there", "too", "very",
	}
	stopWords := make(map[string]bool, len(words))
	for _, word := range words {
		stopWords[word] = true
	}
	return stopWords
}
