// Package terms generates diversified search terms for topping off a
// category leaf, so repeated ingestion runs don't hammer upstream sources
// with the same handful of queries.
package terms

import (
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/groupcart/catalog-cli/internal/model"
)

// stopwords are filler tokens that make poor search modifiers on their own.
var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "from": {},
	"pcs": {}, "set": {}, "sets": {}, "new": {}, "hot": {},
	"other": {}, "misc": {}, "etc": {},
}

const minTokenLen = 3

// Generator produces search term sets for category leaves.
type Generator struct {
	rng   *rand.Rand
	lower cases.Caser
}

// New creates a Generator seeded from the system source.
func New() *Generator {
	return NewSeeded(rand.Uint64(), rand.Uint64())
}

// NewSeeded creates a Generator with a deterministic shuffle order, for
// tests and reproducible runs.
func NewSeeded(s1, s2 uint64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewPCG(s1, s2)),
		lower: cases.Lower(language.Und),
	}
}

// Generate builds a deduplicated, shuffled term set for leaf, capped at
// termsCap entries. Sources, in priority order before the shuffle: the
// leaf's label and aliases, individual tokens, plural/singular variants,
// then pairwise and triple token combinations.
func (g *Generator) Generate(leaf model.CategoryLeaf, termsCap int) []string {
	if termsCap <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(g.lower.String(term))
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}

	add(leaf.Label)
	for _, a := range leaf.Aliases {
		add(a)
	}

	tokens := g.tokenize(append([]string{leaf.Label}, leaf.Aliases...))
	for _, tok := range tokens {
		add(tok)
	}
	for _, tok := range tokens {
		for _, v := range variants(tok) {
			add(v)
		}
	}

	// Pairwise and triple combinations widen coverage for multi-word leaves.
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			add(tokens[i] + " " + tokens[j])
		}
	}
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			for k := j + 1; k < len(tokens); k++ {
				add(tokens[i] + " " + tokens[j] + " " + tokens[k])
			}
		}
	}

	g.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	if len(out) > termsCap {
		out = out[:termsCap]
	}
	return out
}

// tokenize splits phrases into deduplicated sub-word tokens, dropping
// stopwords and tokens shorter than minTokenLen.
func (g *Generator) tokenize(phrases []string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, p := range phrases {
		for _, f := range strings.FieldsFunc(g.lower.String(p), func(r rune) bool {
			return r == ' ' || r == '-' || r == '/' || r == ',' || r == '&'
		}) {
			if len(f) < minTokenLen {
				continue
			}
			if _, stop := stopwords[f]; stop {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// variants returns naive plural/singular forms of a token.
func variants(tok string) []string {
	var vs []string
	switch {
	case strings.HasSuffix(tok, "ies"):
		vs = append(vs, tok[:len(tok)-3]+"y")
	case strings.HasSuffix(tok, "es"):
		vs = append(vs, tok[:len(tok)-2])
	case strings.HasSuffix(tok, "s"):
		vs = append(vs, tok[:len(tok)-1])
	}
	switch {
	case strings.HasSuffix(tok, "y"):
		vs = append(vs, tok[:len(tok)-1]+"ies")
	case strings.HasSuffix(tok, "s"), strings.HasSuffix(tok, "x"),
		strings.HasSuffix(tok, "ch"), strings.HasSuffix(tok, "sh"):
		vs = append(vs, tok+"es")
	default:
		vs = append(vs, tok+"s")
	}
	return vs
}
