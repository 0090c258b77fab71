// Package ollama embeds text with a model served by a local Ollama.
package ollama

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/librarian/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text
)

// Config points the service at an Ollama server. Zero fields take the
// package defaults.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the size reported before the first response. After
	// that the size of the returned vectors wins.
	Dimensions int
}

// EmbeddingService calls /api/embed, which accepts a batch of inputs.
type EmbeddingService struct {
	api        *httpjson.Client
	model      string
	dimensions atomic.Int64
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	s := &EmbeddingService{
		api:   httpjson.New("ollama", cfg.BaseURL, cfg.Timeout, nil),
		model: cfg.Model,
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch fails unless the server returns one non-empty vector per
// input.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := s.api.Post(ctx, "/api/embed", embedRequest{Model: s.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vecs := make([][]float32, len(texts))
	for i, values := range resp.Embeddings {
		if len(values) == 0 {
			return nil, fmt.Errorf("ollama: empty embedding for input %d", i)
		}
		vec := make([]float32, len(values))
		for j, v := range values {
			vec[j] = float32(v)
		}
		vecs[i] = vec
	}
	s.dimensions.Store(int64(len(vecs[0])))
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists local models, which needs no inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/api/tags")
}

func (s *EmbeddingService) Close() error {
	s.api.Close()
	return nil
}
