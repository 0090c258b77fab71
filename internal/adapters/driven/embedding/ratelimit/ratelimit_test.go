package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1, 0}, nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int            { return 2 }
func (c *countingEmbedder) ModelName() string          { return "counting" }
func (c *countingEmbedder) Ping(context.Context) error { return nil }
func (c *countingEmbedder) Close() error               { return nil }

func TestService_Delegates(t *testing.T) {
	inner := &countingEmbedder{}
	s := New(inner, 0, 1)

	vec, err := s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)

	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 2, s.Dimensions())
	assert.Equal(t, "counting", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestService_Throttles(t *testing.T) {
	inner := &countingEmbedder{}
	s := New(inner, 20, 1) // one call every 50ms

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestService_WaitHonoursContext(t *testing.T) {
	inner := &countingEmbedder{}
	s := New(inner, 0.001, 1)

	_, err := s.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Embed(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestService_CooldownAfterRateLimit(t *testing.T) {
	inner := &countingEmbedder{err: fmt.Errorf("provider: %w", domain.ErrRateLimited)}
	s := New(inner, 0, 1, WithCooldown(time.Hour))

	_, err := s.Embed(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrRateLimited)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Embed(ctx, "y")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), inner.calls.Load(), "no call is made during the cooldown")
}
