package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/librarian/internal/core/domain"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{"ééééé", 2},
		{strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.in), "input %q", tt.in)
	}
}

func chunk(id string, seq int, runes int) domain.Chunk {
	return domain.Chunk{ID: id, Sequence: seq, Content: strings.Repeat("x", runes)}
}

func TestContextBuilder_AssembleWithinBudget(t *testing.T) {
	b := NewContextBuilder(nil, 0)

	block := b.Assemble([]ContextSource{
		{Title: "Waves", Chunks: []domain.Chunk{{ID: "w0", Sequence: 0, Content: "crest"}}},
		{Title: "Rome", Chunks: []domain.Chunk{{ID: "r2", Sequence: 2, Content: "forum"}}},
	}, 100)

	assert.Equal(t, "[Waves, part 1]\ncrest\n\n[Rome, part 3]\nforum", block.Text)
	assert.Equal(t, []string{"w0", "r2"}, block.ChunkIDs)
	assert.Equal(t, EstimateTokens(block.Text), block.Tokens)
	assert.False(t, block.Truncated)
}

func TestContextBuilder_StopsAtBudget(t *testing.T) {
	b := NewContextBuilder(nil, 0)

	// Header "[T, part 1]\n" is 12 runes, so each piece is 112 runes.
	block := b.Assemble([]ContextSource{
		{Title: "T", Chunks: []domain.Chunk{chunk("a", 0, 100), chunk("b", 1, 100), chunk("c", 2, 1)}},
	}, 30)

	assert.Equal(t, []string{"a"}, block.ChunkIDs)
	assert.False(t, block.Truncated)
	assert.LessOrEqual(t, block.Tokens, 30)
}

func TestContextBuilder_TruncatesWithinTolerance(t *testing.T) {
	b := NewContextBuilder(nil, 0.1)

	// 52 + 2 + 112 = 166 runes is 42 tokens, 2 over a budget of 40.
	block := b.Assemble([]ContextSource{
		{Title: "T", Chunks: []domain.Chunk{chunk("a", 0, 40), chunk("b", 1, 100), chunk("c", 2, 10)}},
	}, 40)

	assert.Equal(t, []string{"a", "b"}, block.ChunkIDs)
	assert.True(t, block.Truncated)
	assert.Equal(t, 40, block.Tokens)
	assert.True(t, strings.HasSuffix(block.Text, "[T, part 2]\n"+strings.Repeat("x", 94)))
}

func TestContextBuilder_DropsBeyondTolerance(t *testing.T) {
	b := NewContextBuilder(nil, 0.01)

	block := b.Assemble([]ContextSource{
		{Title: "T", Chunks: []domain.Chunk{chunk("a", 0, 40), chunk("b", 1, 100)}},
	}, 40)

	assert.Equal(t, []string{"a"}, block.ChunkIDs)
	assert.False(t, block.Truncated)
}

func TestContextBuilder_ZeroBudget(t *testing.T) {
	block := NewContextBuilder(nil, 0.5).Assemble([]ContextSource{
		{Title: "T", Chunks: []domain.Chunk{chunk("a", 0, 4)}},
	}, 0)

	assert.True(t, block.IsEmpty())
	assert.Empty(t, block.Text)
}

func TestContextBuilder_BuildLoadsResultChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	book := env.addBook(t, "Waves", "530", repeat("physics", 8))

	chunks, err := env.catalog.GetChunks(ctx, book.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	results := []domain.SearchResult{{
		BookID:   book.ID,
		Book:     *book,
		ChunkIDs: []string{chunks[1].ID, "vanished", chunks[0].ID},
	}}

	block, err := NewContextBuilder(env.catalog, 0).Build(ctx, results, 1000)
	require.NoError(t, err)

	assert.Equal(t, []string{chunks[1].ID, chunks[0].ID}, block.ChunkIDs)
	assert.True(t, strings.HasPrefix(block.Text, "[Waves, part 2]\n"+chunks[1].Content))
	assert.Contains(t, block.Text, "[Waves, part 1]\n"+chunks[0].Content)
}

func TestContextBuilder_BuildOrdersAcrossBooksByScore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCatalogStore()

	tides := &domain.BookEntry{ID: "tides", Title: "Tides", ContentHash: "h1", CanonicalPath: "p1"}
	rome := &domain.BookEntry{ID: "rome", Title: "Rome", ContentHash: "h2", CanonicalPath: "p2"}
	require.NoError(t, store.CreateBook(ctx, tides, []domain.Chunk{chunk("t0", 0, 80), chunk("t1", 1, 80)}))
	require.NoError(t, store.CreateBook(ctx, rome, []domain.Chunk{chunk("r0", 0, 80)}))

	results := []domain.SearchResult{
		{BookID: "tides", Book: *tides, ChunkIDs: []string{"t0", "t1"}, ChunkScores: []float64{0.9, 0.1}},
		{BookID: "rome", Book: *rome, ChunkIDs: []string{"r0"}, ChunkScores: []float64{0.8}},
	}

	// Each piece is a header plus 80 runes; two fit in 60 tokens, three do not.
	block, err := NewContextBuilder(store, 0).Build(ctx, results, 60)
	require.NoError(t, err)

	assert.Equal(t, []string{"t0", "r0"}, block.ChunkIDs)
	assert.False(t, block.Truncated)
}

func TestContextBuilder_BuildTiesKeepResultOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCatalogStore()

	a := &domain.BookEntry{ID: "a", Title: "A", ContentHash: "h1", CanonicalPath: "p1"}
	b := &domain.BookEntry{ID: "b", Title: "B", ContentHash: "h2", CanonicalPath: "p2"}
	require.NoError(t, store.CreateBook(ctx, a, []domain.Chunk{chunk("a0", 0, 10), chunk("a1", 1, 10)}))
	require.NoError(t, store.CreateBook(ctx, b, []domain.Chunk{chunk("b0", 0, 10)}))

	results := []domain.SearchResult{
		{BookID: "a", Book: *a, ChunkIDs: []string{"a0", "a1"}, ChunkScores: []float64{0.5, 0.5}},
		{BookID: "b", Book: *b, ChunkIDs: []string{"b0"}, ChunkScores: []float64{0.5}},
	}

	block, err := NewContextBuilder(store, 0).Build(ctx, results, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "a1", "b0"}, block.ChunkIDs)
}
