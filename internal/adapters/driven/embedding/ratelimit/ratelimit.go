// Package ratelimit throttles calls to an embedding provider.
//
// Calls pass through a token bucket before reaching the provider. When the
// provider reports that its quota is exhausted, every caller waits out a
// cooldown before the next request is sent.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultCooldown is how long callers pause after a rate limit response.
const DefaultCooldown = 5 * time.Second

// Service wraps an EmbeddingService with client-side rate limiting.
type Service struct {
	inner    driven.EmbeddingService
	limiter  *rate.Limiter
	cooldown time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCooldown sets the pause applied after a rate limit response.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

// New wraps inner so that at most requestsPerSecond calls start per second,
// with bursts of up to burst calls. A non-positive rate disables throttling.
func New(inner driven.EmbeddingService, requestsPerSecond float64, burst int, opts ...Option) *Service {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	s := &Service{
		inner:    inner,
		limiter:  rate.NewLimiter(limit, burst),
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wait blocks until a call may start.
func (s *Service) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// observe starts a cooldown when err reports an exhausted quota.
func (s *Service) observe(err error) {
	if !errors.Is(err, domain.ErrRateLimited) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := time.Now().Add(s.cooldown)
	if next.After(s.retryAt) {
		s.retryAt = next
		logger.Debug("embedding provider rate limited; pausing %s", s.cooldown)
	}
}

// Embed generates a vector embedding for the given text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	vec, err := s.inner.Embed(ctx, text)
	s.observe(err)
	return vec, err
}

// EmbedBatch generates embeddings for multiple texts as one call.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	vecs, err := s.inner.EmbedBatch(ctx, texts)
	s.observe(err)
	return vecs, err
}

// Dimensions returns the wrapped service's vector size.
func (s *Service) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service without consuming a token.
func (s *Service) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped service.
func (s *Service) Close() error {
	return s.inner.Close()
}
