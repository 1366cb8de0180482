package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

var (
	termSeparator    = regexp.MustCompile(`[^a-z0-9]+`)
	snippetSeparator = regexp.MustCompile(`[^a-zA-Z0-9.,/-]+`)
)

// term is a normalized word and its index in the split text
type term struct {
	word string
	pos  int
}

// searchService ranks sliding-window matches over page text
type searchService struct {
	stemmer   driven.Stemmer
	stopWords map[string]struct{}
	window    int
	logger    *slog.Logger
}

// SearchServiceConfig holds dependencies for the search service.
type SearchServiceConfig struct {
	// Stemmer is applied to query terms only. Nil means identity.
	Stemmer driven.Stemmer
	// StopWords are dropped from both query and page text
	StopWords []string
	// Window is the number of consecutive terms scored together (default 10)
	Window int
	Logger *slog.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.Window
	if window <= 0 {
		window = domain.SearchWindow
	}
	stop := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = struct{}{}
		}
	}
	return &searchService{
		stemmer:   cfg.Stemmer,
		stopWords: stop,
		window:    window,
		logger:    logger,
	}
}

// Query searches the working document and every other document
func (s *searchService) Query(ctx context.Context, text string, working *domain.Document, all []*domain.Document) (*domain.SearchResults, error) {
	results := &domain.SearchResults{Query: text}

	query := s.querySet(text)
	if len(query) == 0 {
		return results, nil
	}

	if working != nil {
		results.InWorkingDoc = s.searchDocument(working, query)
	}
	for _, doc := range all {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: search: %w", domain.ErrCancelled, err)
		}
		if sameDocument(doc, working) {
			continue
		}
		results.Elsewhere = append(results.Elsewhere, s.searchDocument(doc, query)...)
	}

	byScore := func(hits []domain.SearchHit) func(i, j int) bool {
		return func(i, j int) bool { return hits[i].Score > hits[j].Score }
	}
	sort.SliceStable(results.InWorkingDoc, byScore(results.InWorkingDoc))
	sort.SliceStable(results.Elsewhere, byScore(results.Elsewhere))

	s.logger.Debug("search complete",
		"query", text,
		"in_working_doc", len(results.InWorkingDoc),
		"elsewhere", len(results.Elsewhere))

	return results, nil
}

// querySet normalizes and stems the query into a set of terms
func (s *searchService) querySet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range s.normalize(text) {
		word := t.word
		if s.stemmer != nil {
			word = s.stemmer.Stem(word)
		}
		if word != "" {
			set[word] = struct{}{}
		}
	}
	return set
}

// normalize lowercases, splits on non-alphanumeric runs and drops stop words.
// Positions index the split before stop words are removed.
func (s *searchService) normalize(text string) []term {
	parts := termSeparator.Split(strings.ToLower(text), -1)
	terms := make([]term, 0, len(parts))
	for i, w := range parts {
		if w == "" {
			continue
		}
		if _, stop := s.stopWords[w]; stop {
			continue
		}
		terms = append(terms, term{word: w, pos: i})
	}
	return terms
}

func (s *searchService) searchDocument(doc *domain.Document, query map[string]struct{}) []domain.SearchHit {
	var hits []domain.SearchHit
	for _, page := range doc.Pages() {
		hits = append(hits, s.searchPage(doc, page, query)...)
	}
	return hits
}

// searchPage slides a window over the page terms. A hit opens when a window
// first intersects the query, is replaced while the score rises and is
// emitted once the score falls.
func (s *searchService) searchPage(doc *domain.Document, page *domain.Page, query map[string]struct{}) []domain.SearchHit {
	// one snapshot; OCR may replace the text concurrently
	fullText := page.Text().FullText()
	terms := s.normalize(fullText)
	if len(terms) == 0 {
		return nil
	}

	windows := len(terms) - s.window + 1
	if windows < 1 {
		windows = 1
	}

	var (
		hits   []domain.SearchHit
		open   bool
		best   float64
		latest domain.SearchHit
	)
	for start := 0; start < windows; start++ {
		end := start + s.window
		if end > len(terms) {
			end = len(terms)
		}
		score, mid := scoreWindow(terms[start:end], query)

		switch {
		case !open:
			if score > 0 {
				open = true
				best = score
				latest = s.newHit(doc, page, fullText, mid, score)
			}
		case score > best:
			best = score
			latest = s.newHit(doc, page, fullText, mid, score)
		case score < best:
			open = false
			best = 0
			hits = append(hits, latest)
		}
	}
	if open {
		hits = append(hits, latest)
	}
	return hits
}

// scoreWindow counts distinct window words found in the query and returns
// the position of the last match
func scoreWindow(window []term, query map[string]struct{}) (float64, int) {
	seen := make(map[string]struct{}, len(window))
	score, mid := 0, 0
	for _, t := range window {
		if _, ok := query[t.word]; !ok {
			continue
		}
		mid = t.pos
		if _, dup := seen[t.word]; dup {
			continue
		}
		seen[t.word] = struct{}{}
		score++
	}
	return float64(score), mid
}

func (s *searchService) newHit(doc *domain.Document, page *domain.Page, fullText string, mid int, score float64) domain.SearchHit {
	return domain.SearchHit{
		Document: doc,
		Page:     page,
		Snippet:  snippet(fullText, mid, s.window),
		Score:    score,
	}
}

// snippet returns up to radius words either side of position mid
func snippet(fullText string, mid, radius int) string {
	words := snippetSeparator.Split(fullText, -1)
	from, to := mid-radius, mid+radius
	if from < 0 {
		from = 0
	}
	if to > len(words) {
		to = len(words)
	}
	// term positions come from a finer split and may run past the end
	if from > to {
		from = max(0, to-2*radius)
	}

	var out []string
	for _, w := range words[from:to] {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

func sameDocument(a, b *domain.Document) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || a.Name == b.Name
}
