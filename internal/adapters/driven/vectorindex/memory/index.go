// Package memory provides an exact in-memory semantic index.
//
// The index keeps an immutable snapshot of normalised vectors behind an
// atomic pointer. Writers copy the snapshot, apply their change and swap it
// in, so searches never block and always observe a complete state.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	ref domain.ChunkRef
	vec []float32
}

type snapshot struct {
	dim     int
	entries []entry
	pos     map[string]int
}

func emptySnapshot() *snapshot {
	return &snapshot{pos: make(map[string]int)}
}

// clone returns a writable copy sharing the (immutable) vectors.
func (s *snapshot) clone(extra int) *snapshot {
	c := &snapshot{
		dim:     s.dim,
		entries: make([]entry, len(s.entries), len(s.entries)+extra),
		pos:     make(map[string]int, len(s.pos)+extra),
	}
	copy(c.entries, s.entries)
	for k, v := range s.pos {
		c.pos[k] = v
	}
	return c
}

func (s *snapshot) put(ref domain.ChunkRef, vec []float32) {
	if i, ok := s.pos[ref.ChunkID]; ok {
		s.entries[i] = entry{ref: ref, vec: vec}
		return
	}
	s.pos[ref.ChunkID] = len(s.entries)
	s.entries = append(s.entries, entry{ref: ref, vec: vec})
}

// filter returns a new snapshot without the entries for which drop is true.
func (s *snapshot) filter(drop func(entry) bool) (*snapshot, bool) {
	out := &snapshot{dim: s.dim, pos: make(map[string]int, len(s.pos))}
	changed := false
	for _, e := range s.entries {
		if drop(e) {
			changed = true
			continue
		}
		out.pos[e.ref.ChunkID] = len(out.entries)
		out.entries = append(out.entries, e)
	}
	if len(out.entries) == 0 {
		out.dim = 0
	}
	return out, changed
}

// Index is an exact cosine-similarity index over chunk vectors.
// Safe for concurrent use.
type Index struct {
	mu     sync.Mutex // serialises writers
	snap   atomic.Pointer[snapshot]
	closed atomic.Bool
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.snap.Store(emptySnapshot())
	return idx
}

// normalise returns a unit-length copy of v.
func normalise(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: vector has no direction", domain.ErrInvalidInput)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

func checkDim(dim, got int) error {
	if dim != 0 && dim != got {
		return fmt.Errorf("%w: index has %d dimensions, vector has %d", domain.ErrDimensionMismatch, dim, got)
	}
	return nil
}

// Upsert inserts or replaces vectors for the given chunks.
// Either every chunk is applied or none is.
func (idx *Index) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := idx.snap.Load().clone(len(chunks))
	for i := range chunks {
		c := &chunks[i]
		vec, err := normalise(c.Embedding)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		if err := checkDim(next.dim, len(vec)); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		next.dim = len(vec)
		next.put(c.Ref(), vec)
	}
	idx.snap.Store(next)
	return nil
}

// Remove deletes a chunk's vector.
func (idx *Index) Remove(ctx context.Context, chunkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	if _, ok := cur.pos[chunkID]; !ok {
		return nil
	}
	next, _ := cur.filter(func(e entry) bool { return e.ref.ChunkID == chunkID })
	idx.snap.Store(next)
	return nil
}

// RemoveAllForBook deletes every vector belonging to bookID.
func (idx *Index) RemoveAllForBook(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	next, changed := idx.snap.Load().filter(func(e entry) bool { return e.ref.BookID == bookID })
	if changed {
		idx.snap.Store(next)
	}
	return nil
}

// Search returns the k nearest chunks to query.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	snap := idx.snap.Load()
	if k <= 0 || len(snap.entries) == 0 {
		return nil, nil
	}
	q, err := normalise(query)
	if err != nil {
		return nil, err
	}
	if err := checkDim(snap.dim, len(q)); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(snap.entries))
	for i, e := range snap.entries {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits = append(hits, domain.SearchHit{ChunkRef: e.ref, Score: dot(q, e.vec)})
	}

	sort.Slice(hits, func(i, j int) bool { return less(hits[i], hits[j]) })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// less orders hits by score descending, then sequence, book and chunk ID.
func less(a, b domain.SearchHit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	if a.BookID != b.BookID {
		return a.BookID < b.BookID
	}
	return a.ChunkID < b.ChunkID
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Rebuild replaces the index with the chunks streamed by source.
// The previous snapshot stays visible until the new one is complete and is
// kept if the rebuild fails.
func (idx *Index) Rebuild(ctx context.Context, source driven.ChunkSource) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := emptySnapshot()
	err := source(ctx, func(c domain.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := normalise(c.Embedding)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		if err := checkDim(next.dim, len(vec)); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		next.dim = len(vec)
		next.put(c.Ref(), vec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	idx.snap.Store(next)
	return nil
}

// Missing returns the IDs among chunkIDs that are not indexed.
func (idx *Index) Missing(chunkIDs []string) []string {
	snap := idx.snap.Load()
	var missing []string
	for _, id := range chunkIDs {
		if _, ok := snap.pos[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// ChunkIDs returns every indexed chunk ID in ascending order.
func (idx *Index) ChunkIDs() []string {
	snap := idx.snap.Load()
	ids := make([]string, 0, len(snap.entries))
	for _, e := range snap.entries {
		ids = append(ids, e.ref.ChunkID)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	return len(idx.snap.Load().entries)
}

// Dimension returns the vector size of the indexed entries, zero when empty.
func (idx *Index) Dimension() int {
	return idx.snap.Load().dim
}

// Close drops every vector.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	idx.mu.Lock()
	idx.snap.Store(emptySnapshot())
	idx.mu.Unlock()
	return nil
}
