package bleveindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	books := []domain.BookEntry{
		{
			ID:                 "01HZX0000000000000000000A1",
			Title:              "The Feynman Lectures on Physics",
			Authors:            []string{"Richard Feynman"},
			ClassificationCode: "530",
			ISBN:               "978-0-465-02382-9",
			Description:        "Classic introductory lectures on mechanics and radiation.",
		},
		{
			ID:                 "01HZX0000000000000000000B2",
			Title:              "A Brief History of Time",
			Authors:            []string{"Stephen Hawking"},
			ClassificationCode: "523.1",
			Notes:              "Lent to Sam. Great chapter on black holes.",
		},
		{
			ID:                 "01HZX0000000000000000000C3",
			Title:              "Surely You're Joking",
			Authors:            []string{"Richard Feynman", "Ralph Leighton"},
			ClassificationCode: "920",
			Publisher:          "W. W. Norton",
		},
	}
	for i := range books {
		require.NoError(t, idx.Index(context.Background(), &books[i]))
	}
	return idx
}

func bookIDs(t *testing.T, idx *Index, q string) []string {
	t.Helper()
	hits, err := idx.Search(context.Background(), q, 10)
	require.NoError(t, err)
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.BookID
	}
	return out
}

func TestSearch_Fields(t *testing.T) {
	idx := newTestIndex(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "title word", query: "history", want: []string{"01HZX0000000000000000000B2"}},
		{name: "description word", query: "radiation", want: []string{"01HZX0000000000000000000A1"}},
		{name: "notes", query: "black holes", want: []string{"01HZX0000000000000000000B2"}},
		{name: "publisher", query: "norton", want: []string{"01HZX0000000000000000000C3"}},
		{name: "isbn with hyphens", query: "978-0-465-02382-9", want: []string{"01HZX0000000000000000000A1"}},
		{name: "classification code", query: "523.1", want: []string{"01HZX0000000000000000000B2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, bookIDs(t, idx, tc.query))
		})
	}
}

func TestSearch_AuthorMatchesAllBooks(t *testing.T) {
	idx := newTestIndex(t)

	got := bookIDs(t, idx, "feynman")

	assert.ElementsMatch(t, []string{"01HZX0000000000000000000A1", "01HZX0000000000000000000C3"}, got)
}

func TestSearch_EmptyAndNoMatch(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Empty(t, bookIDs(t, idx, "zoology"))
}

func TestSearch_Limit(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), "feynman", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_ReplaceAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	renamed := domain.BookEntry{ID: "01HZX0000000000000000000B2", Title: "Cosmology Notes", Authors: []string{"Stephen Hawking"}}
	require.NoError(t, idx.Index(ctx, &renamed))
	assert.Empty(t, bookIDs(t, idx, "history"))
	assert.Equal(t, []string{"01HZX0000000000000000000B2"}, bookIDs(t, idx, "cosmology"))

	require.NoError(t, idx.Delete(ctx, "01HZX0000000000000000000B2"))
	assert.Empty(t, bookIDs(t, idx, "cosmology"))
	require.NoError(t, idx.Delete(ctx, "missing"))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestIndex_Rejects(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Index(context.Background(), &domain.BookEntry{}), domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, idx.Index(ctx, &domain.BookEntry{ID: "x"}), context.Canceled)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
	_, err = idx.Search(context.Background(), "x", 1)
	assert.Error(t, err)
}
