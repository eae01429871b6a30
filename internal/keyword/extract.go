package keyword

import (
	"sort"

	"github.com/kljensen/snowball"
)

// Stem reduces a word to its snowball stem. Words the stemmer cannot
// handle are returned unchanged.
func Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stemmed
}

// Extract returns up to max keywords from text, most frequent first.
// Keywords are stemmed tokens; ties are broken by first appearance so
// extraction is deterministic.
func Extract(text string, max int) []string {
	tokens := NewTokenizer().Tokenize(text)
	if len(tokens) == 0 || max <= 0 {
		return nil
	}

	counts := make(map[string]int, len(tokens))
	firstSeen := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for i, token := range tokens {
		stem := Stem(token)
		if _, ok := counts[stem]; !ok {
			firstSeen[stem] = i
			order = append(order, stem)
		}
		counts[stem]++
	}

	sort.SliceStable(order, func(a, b int) bool {
		if counts[order[a]] != counts[order[b]] {
			return counts[order[a]] > counts[order[b]]
		}
		return firstSeen[order[a]] < firstSeen[order[b]]
	})

	if len(order) > max {
		order = order[:max]
	}
	return order
}

// Frequencies returns stem occurrence counts for text.
func Frequencies(text string) map[string]int {
	tokens := NewTokenizer().Tokenize(text)
	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[Stem(token)]++
	}
	return freq
}
