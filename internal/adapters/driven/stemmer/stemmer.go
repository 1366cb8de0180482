// Package stemmer provides the query term stemmers used by search
package stemmer

import (
	"fmt"

	"github.com/kljensen/snowball/english"

	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Stemmer = None{}
	_ driven.Stemmer = Porter{}
)

// None leaves terms unchanged
type None struct{}

// Stem returns term
func (None) Stem(term string) string {
	return term
}

// Porter applies the English (Porter2) snowball stemmer.
// Stop words are removed before stemming, so they are stemmed like any other term.
type Porter struct{}

// Stem returns the English stem of term
func (Porter) Stem(term string) string {
	return english.Stem(term, false)
}

// New returns the stemmer registered under name ("none" or "porter")
func New(name string) (driven.Stemmer, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "porter", "english":
		return Porter{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}
