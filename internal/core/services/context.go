package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/logger"
)

// runesPerToken approximates the tokenizer: one token per four runes.
const runesPerToken = 4

const blockSeparator = "\n\n"

// EstimateTokens approximates the token count of s, rounding up.
func EstimateTokens(s string) int {
	return tokensFor(len([]rune(s)))
}

func tokensFor(runes int) int {
	return (runes + runesPerToken - 1) / runesPerToken
}

// ContextSource is one book's chunks in the order they should be offered.
type ContextSource struct {
	Title  string
	Chunks []domain.Chunk
}

// ContextBuilder assembles retrieved chunks into a token-bounded block.
type ContextBuilder struct {
	catalog   driven.CatalogStore
	tolerance float64
}

// NewContextBuilder creates a context builder. A chunk that would
// overflow the budget by at most tolerance (a fraction of the budget) is
// truncated to fit instead of dropped.
func NewContextBuilder(catalog driven.CatalogStore, tolerance float64) *ContextBuilder {
	if tolerance < 0 {
		tolerance = 0
	}
	return &ContextBuilder{catalog: catalog, tolerance: tolerance}
}

// Build loads the supporting chunks of results and assembles them in
// descending similarity across all books. Equal scores keep result order,
// then contribution order within a result.
func (b *ContextBuilder) Build(ctx context.Context, results []domain.SearchResult, budget int) (domain.ContextBlock, error) {
	type candidate struct {
		title string
		id    string
		score float64
	}
	var candidates []candidate
	for _, r := range results {
		for i, id := range r.ChunkIDs {
			var score float64
			if i < len(r.ChunkScores) {
				score = r.ChunkScores[i]
			}
			candidates = append(candidates, candidate{title: r.Book.Title, id: id, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	sources := make([]ContextSource, 0, len(candidates))
	for _, cand := range candidates {
		c, err := b.catalog.GetChunk(ctx, cand.id)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("chunk %s vanished before context assembly", cand.id)
			continue
		}
		if err != nil {
			return domain.ContextBlock{}, fmt.Errorf("load chunk %s: %w", cand.id, err)
		}
		sources = append(sources, ContextSource{Title: cand.title, Chunks: []domain.Chunk{*c}})
	}
	return b.Assemble(sources, budget), nil
}

// Assemble adds chunks in order while the estimated token count stays
// within budget. Each chunk is preceded by a header naming its book and
// part number. The first chunk that does not fit is truncated when the
// overflow is within tolerance, otherwise dropped; assembly stops there.
func (b *ContextBuilder) Assemble(sources []ContextSource, budget int) domain.ContextBlock {
	var block domain.ContextBlock
	if budget <= 0 {
		return block
	}

	maxRunes := budget * runesPerToken
	allowed := float64(budget) * b.tolerance

	var text strings.Builder
	used := 0 // runes written

	add := func(piece string, runes int, chunkID string) {
		if used > 0 {
			text.WriteString(blockSeparator)
			used += len(blockSeparator)
		}
		text.WriteString(piece)
		used += runes
		block.ChunkIDs = append(block.ChunkIDs, chunkID)
	}

assemble:
	for _, src := range sources {
		for _, c := range src.Chunks {
			header := chunkHeader(src.Title, c.Sequence)
			piece := header + c.Content
			pieceRunes := len([]rune(piece))

			sep := 0
			if used > 0 {
				sep = len(blockSeparator)
			}
			total := used + sep + pieceRunes
			if tokensFor(total) <= budget {
				add(piece, pieceRunes, c.ID)
				continue
			}

			overflow := float64(tokensFor(total) - budget)
			room := maxRunes - used - sep - len([]rune(header))
			if overflow <= allowed && room > 0 {
				content := []rune(c.Content)[:room]
				add(header+string(content), len([]rune(header))+room, c.ID)
				block.Truncated = true
			}
			break assemble
		}
	}

	block.Text = text.String()
	block.Tokens = EstimateTokens(block.Text)
	return block
}

func chunkHeader(title string, sequence int) string {
	return fmt.Sprintf("[%s, part %d]\n", title, sequence+1)
}
