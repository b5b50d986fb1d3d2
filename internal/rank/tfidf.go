package rank

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches runs of two or more letters, digits or underscores.
// Combining marks are not word characters and break a token.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize lowercases text and splits it into word tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Vector is an L2-normalised sparse term vector with terms in sorted order.
type Vector struct {
	terms   []string
	weights []float64
}

// Len returns the number of non-zero terms.
func (v Vector) Len() int { return len(v.terms) }

// Weight returns the weight of term, or 0 when absent.
func (v Vector) Weight(term string) float64 {
	i := sort.SearchStrings(v.terms, term)
	if i < len(v.terms) && v.terms[i] == term {
		return v.weights[i]
	}
	return 0
}

// Dot returns the inner product of two vectors. For normalised vectors this
// is their cosine similarity; a zero vector yields 0.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.terms) && j < len(o.terms) {
		switch {
		case v.terms[i] == o.terms[j]:
			sum += v.weights[i] * o.weights[j]
			i++
			j++
		case v.terms[i] < o.terms[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Vectorize fits a TF-IDF space over texts and returns one vector per text.
// Term frequency is the raw count; idf is smoothed as ln((1+n)/(1+df)) + 1.
// The space is built fresh on every call.
func Vectorize(texts []string) []Vector {
	n := len(texts)
	counts := make([]map[string]int, n)
	df := make(map[string]int)
	for i, t := range texts {
		c := make(map[string]int)
		for _, tok := range Tokenize(t) {
			c[tok]++
		}
		for tok := range c {
			df[tok]++
		}
		counts[i] = c
	}

	vecs := make([]Vector, n)
	for i, c := range counts {
		terms := make([]string, 0, len(c))
		for tok := range c {
			terms = append(terms, tok)
		}
		sort.Strings(terms)

		weights := make([]float64, len(terms))
		var norm float64
		for k, tok := range terms {
			idf := math.Log(float64(1+n)/float64(1+df[tok])) + 1
			w := float64(c[tok]) * idf
			weights[k] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range weights {
				weights[k] /= norm
			}
		}
		vecs[i] = Vector{terms: terms, weights: weights}
	}
	return vecs
}
