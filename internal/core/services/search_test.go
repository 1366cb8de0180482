package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/stemmer"
	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven/mocks"
)

// textDocument builds an in-memory document whose pages carry the given texts
func textDocument(name string, texts ...string) *domain.Document {
	doc := domain.NewDocument(name, "/ws/docs/"+name+"/doc.xml")
	for i, text := range texts {
		page := domain.NewPage(fmt.Sprintf("%s-p%d", name, i))
		page.SetText(domain.NewPageText(text, nil))
		_ = doc.AddPage(page)
	}
	return doc
}

func TestSearchService_Tiers(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	working := textDocument("working", "an apple a day")
	other := textDocument("other", "apple pie recipe")
	unrelated := textDocument("unrelated", "nothing to see")

	results, err := svc.Query(context.Background(), "apple", working, []*domain.Document{working, other, unrelated})
	require.NoError(t, err)

	require.Len(t, results.InWorkingDoc, 1)
	assert.Same(t, working, results.InWorkingDoc[0].Document)
	require.Len(t, results.Elsewhere, 1)
	assert.Same(t, other, results.Elsewhere[0].Document)
	assert.Equal(t, "apple", results.Query)
}

func TestSearchService_NoWorkingDocument(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	a := textDocument("a", "apple")
	b := textDocument("b", "apple")

	results, err := svc.Query(context.Background(), "apple", nil, []*domain.Document{a, b})
	require.NoError(t, err)
	assert.Empty(t, results.InWorkingDoc)
	assert.Len(t, results.Elsewhere, 2)
}

func TestSearchService_WorkingMatchedByName(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	working := textDocument("letters", "apple")
	reloaded := textDocument("letters", "apple")

	results, err := svc.Query(context.Background(), "apple", working, []*domain.Document{reloaded})
	require.NoError(t, err)
	assert.Len(t, results.InWorkingDoc, 1)
	assert.Empty(t, results.Elsewhere)
}

func TestSearchService_Normalization(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	doc := textDocument("doc", "the apple s core")

	results, err := svc.Query(context.Background(), "Apple's!!", nil, []*domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 1)
	assert.Equal(t, 2.0, results.Elsewhere[0].Score)
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{StopWords: []string{"the"}})
	doc := textDocument("doc", "the the the")

	for _, q := range []string{"", "   ", "!!!", "The"} {
		results, err := svc.Query(context.Background(), q, doc, []*domain.Document{doc})
		require.NoError(t, err)
		assert.Zero(t, results.Total(), "query %q", q)
	}
}

func TestSearchService_StopWords(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{StopWords: []string{"The", " of "}})
	doc := textDocument("doc", "the history of rome")

	results, err := svc.Query(context.Background(), "the history of", nil, []*domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 1)
	assert.Equal(t, 1.0, results.Elsewhere[0].Score)
}

func TestSearchService_StemsQueryOnly(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{
		Stemmer: mocks.MockStemmer{"running": "run"},
	})
	stemmed := textDocument("stemmed", "run fast")
	inflected := textDocument("inflected", "running fast")

	results, err := svc.Query(context.Background(), "running", nil, []*domain.Document{stemmed, inflected})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 1)
	assert.Same(t, stemmed, results.Elsewhere[0].Document)
}

func TestSearchService_PorterQueryAgainstRawText(t *testing.T) {
	porter, err := stemmer.New("porter")
	require.NoError(t, err)
	none, err := stemmer.New("none")
	require.NoError(t, err)
	doc := textDocument("bills", "final invoice attached")

	stemmed := NewSearchService(SearchServiceConfig{Stemmer: porter})
	results, err := stemmed.Query(context.Background(), "invoice", nil, []*domain.Document{doc})
	require.NoError(t, err)
	assert.Empty(t, results.Elsewhere, "invoic never matches the unstemmed page word")

	plain := NewSearchService(SearchServiceConfig{Stemmer: none})
	results, err = plain.Query(context.Background(), "invoice", nil, []*domain.Document{doc})
	require.NoError(t, err)
	assert.Len(t, results.Elsewhere, 1)
}

func TestSearchService_DistinctWordScore(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	doc := textDocument("doc", "apple apple apple pear")

	results, err := svc.Query(context.Background(), "apple pear", nil, []*domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 1)
	assert.Equal(t, 2.0, results.Elsewhere[0].Score)
}

func TestSearchService_SeparateHitsPerCluster(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	words := make([]string, 25)
	for i := range words {
		words[i] = "x"
	}
	words[0] = "alpha"
	words[20] = "alpha"
	doc := textDocument("doc", strings.Join(words, " "))

	results, err := svc.Query(context.Background(), "alpha", nil, []*domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 2)
	assert.True(t, strings.HasPrefix(results.Elsewhere[0].Snippet, "alpha"))
	assert.Contains(t, results.Elsewhere[1].Snippet, "alpha")
}

func TestSearchService_RisingScoreReplacesHit(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	words := []string{"alpha"}
	for i := 0; i < 12; i++ {
		words = append(words, "x")
	}
	words = append(words, "beta", "alpha")
	doc := textDocument("doc", strings.Join(words, " "))

	results, err := svc.Query(context.Background(), "alpha beta", nil, []*domain.Document{doc})
	require.NoError(t, err)

	var best float64
	for _, hit := range results.Elsewhere {
		best = max(best, hit.Score)
	}
	assert.Equal(t, 2.0, best)
}

func TestSearchService_ShortPageScored(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	doc := textDocument("doc", "invoice")

	results, err := svc.Query(context.Background(), "invoice", nil, []*domain.Document{doc})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 1)
	assert.Equal(t, "invoice", results.Elsewhere[0].Snippet)
}

func TestSearchService_OrderedByScore(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	low := textDocument("low", "red")
	high := textDocument("high", "red green blue")
	mid := textDocument("mid", "red green")

	results, err := svc.Query(context.Background(), "red green blue", nil, []*domain.Document{low, high, mid})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 3)
	assert.Same(t, high, results.Elsewhere[0].Document)
	assert.Same(t, mid, results.Elsewhere[1].Document)
	assert.Same(t, low, results.Elsewhere[2].Document)
}

func TestSearchService_EqualScoresKeepDocumentOrder(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	first := textDocument("first", "apple")
	second := textDocument("second", "apple")

	results, err := svc.Query(context.Background(), "apple", nil, []*domain.Document{first, second})
	require.NoError(t, err)
	require.Len(t, results.Elsewhere, 2)
	assert.Same(t, first, results.Elsewhere[0].Document)
	assert.Same(t, second, results.Elsewhere[1].Document)
}

func TestSearchService_Cancelled(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	doc := textDocument("doc", "apple")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Query(ctx, "apple", nil, []*domain.Document{doc})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestSearchService_PagesWithoutText(t *testing.T) {
	svc := NewSearchService(SearchServiceConfig{})
	doc := domain.NewDocument("blank", "/ws/docs/blank/doc.xml")
	_ = doc.AddPage(domain.NewPage("p0"))

	results, err := svc.Query(context.Background(), "apple", doc, []*domain.Document{doc})
	require.NoError(t, err)
	assert.Zero(t, results.Total())
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		mid    int
		radius int
		want   string
	}{
		{name: "centered", text: "a b c d e f g", mid: 3, radius: 2, want: "b c d e"},
		{name: "clamped start", text: "a b c d", mid: 0, radius: 2, want: "a b"},
		{name: "clamped end", text: "a b c d", mid: 3, radius: 2, want: "b c d"},
		{name: "keeps punctuation", text: "total: 1,200.50 due 2024/01/31", mid: 1, radius: 3, want: "total 1,200.50 due 2024/01/31"},
		{name: "mid past end", text: "a b", mid: 9, radius: 2, want: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.text, tt.mid, tt.radius); got != tt.want {
				t.Errorf("snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}
