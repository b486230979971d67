package service

import (
	"strings"
	"unicode"
)

// tokenize lowercases text, splits on non-alphanumeric runes and drops stop
// words and very short tokens. Used by chain matching, goal matching and
// entity resolution; must stay deterministic.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(word) < 2 || stopWords[word] {
			continue
		}
		tokens[word] = true
	}
	return tokens
}

// jaccard computes the Jaccard index |A ∩ B| / |A ∪ B| of two token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	union := len(b)
	for token := range a {
		if b[token] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

var stopWords = map[string]bool{
	"the": true, "be": true, "to": true, "of": true, "and": true,
	"a": true, "in": true, "that": true, "have": true, "i": true,
	"it": true, "for": true, "not": true, "on": true, "with": true,
	"he": true, "as": true, "you": true, "do": true, "at": true,
	"this": true, "but": true, "his": true, "by": true, "from": true,
	"they": true, "we": true, "say": true, "her": true, "she": true,
	"or": true, "an": true, "will": true, "my": true, "one": true,
	"all": true, "would": true, "there": true, "their": true, "what": true,
	"so": true, "up": true, "out": true, "if": true, "about": true,
	"who": true, "get": true, "which": true, "go": true, "me": true,
	"when": true, "make": true, "can": true, "like": true,
	"no": true, "just": true, "him": true, "know": true, "take": true,
	"into": true, "your": true, "some": true, "could": true, "them": true,
	"see": true, "other": true, "than": true, "then": true, "now": true,
	"only": true, "its": true, "over": true, "also": true,
	"after": true, "use": true, "two": true, "how": true,
	"our": true, "well": true, "way": true, "even": true, "new": true,
	"want": true, "because": true, "any": true, "these": true, "us": true,
	"is": true, "was": true, "are": true, "been": true, "has": true,
	"had": true, "were": true, "said": true, "did": true, "having": true,
	"may": true, "am": true, "should": true, "too": true, "very": true,
}
