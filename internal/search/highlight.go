package search

import (
	"strings"
	"unicode/utf8"
)

// snippetRadius is how many bytes of context to keep on each side of
// the first matched term in a highlight snippet.
const snippetRadius = 80

// highlightSnippet returns a window of text around the first occurrence
// of any term, with matches wrapped in <mark> tags. The format mirrors
// the FTS5 snippet() output so both retrieval strategies produce
// comparable highlights. Returns "" when no term occurs in text.
func highlightSnippet(text string, terms []string) string {
	if text == "" || len(terms) == 0 {
		return ""
	}
	lower := strings.ToLower(text)
	first, matchLen := -1, 0
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if i := strings.Index(lower, t); i >= 0 && (first < 0 || i < first) {
			first, matchLen = i, len(t)
		}
	}
	if first < 0 {
		return ""
	}

	start := first - snippetRadius
	end := first + matchLen + snippetRadius
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	snippet := markTerms(text[start:end], terms)
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}

// markTerms wraps every case-insensitive occurrence of each term in
// <mark> tags. Longer terms are applied first so a short term cannot
// split a longer match.
func markTerms(text string, terms []string) string {
	ordered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			ordered = append(ordered, t)
		}
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && len(ordered[j]) > len(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for _, term := range ordered {
		text = markTerm(text, term)
	}
	return text
}

func markTerm(text, term string) string {
	lowerTerm := strings.ToLower(term)
	var b strings.Builder
	rest := text
	for {
		i := strings.Index(strings.ToLower(rest), lowerTerm)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		match := rest[i : i+len(term)]
		// Skip occurrences already inside a <mark> tag from a longer term.
		if strings.HasSuffix(rest[:i], "<mark>") {
			b.WriteString(rest[:i+len(term)])
			rest = rest[i+len(term):]
			continue
		}
		b.WriteString(rest[:i])
		b.WriteString("<mark>")
		b.WriteString(match)
		b.WriteString("</mark>")
		rest = rest[i+len(term):]
	}
}
