package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// noiseWords carry no signal for matching a request against a movie.
var noiseWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"please", "help", "how", "do", "i", "can", "you", "me", "my", "the", "a", "an",
		"is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "will", "would",
		"could", "should", "may", "might", "must", "shall", "does", "did", "and", "or", "of",
		"in", "on", "to", "for", "with", "that", "this", "it", "its", "as", "at", "by", "from",
		"want", "watch", "watching", "feel", "like", "something", "some", "movie", "movies", "film", "films",
	} {
		noiseWords[w] = struct{}{}
	}
}

// Tokenize lowercases text, splits on anything that is not a letter or digit
// and drops noise words and single characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, noise := noiseWords[f]; noise {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

// stem strips a plural "s" so "thrillers" matches the "Thriller" genre.
func stem(token string) string {
	if len(token) > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return token[:len(token)-1]
	}
	return token
}

// TermVector counts token occurrences.
type TermVector map[string]float64

// NewTermVector builds the term frequency vector of text.
func NewTermVector(text string) TermVector {
	v := make(TermVector)
	for _, t := range Tokenize(text) {
		v[t]++
	}
	return v
}

// terms returns the vector's tokens in sorted order so sums are reproducible.
func (v TermVector) terms() []string {
	terms := make([]string, 0, len(v))
	for t := range v {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func (v TermVector) norm() float64 {
	var sum float64
	for _, t := range v.terms() {
		sum += v[t] * v[t]
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of two term vectors, 0 if either is empty.
func Cosine(a, b TermVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for _, t := range a.terms() {
		dot += a[t] * b[t]
	}
	na, nb := a.norm(), b.norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return Clamp(dot / (na * nb))
}
