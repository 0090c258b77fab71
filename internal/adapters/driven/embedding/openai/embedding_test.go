package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewEmbeddingService(Config{})
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("known model dimensions", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
		require.NoError(t, err)
		assert.Equal(t, 3072, s.Dimensions())
		assert.False(t, s.shorten)
	})

	t.Run("unknown model falls back", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Model: "custom"})
		require.NoError(t, err)
		assert.Equal(t, 1536, s.Dimensions())
	})

	t.Run("shortened dimensions", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Dimensions: 256})
		require.NoError(t, err)
		assert.Equal(t, 256, s.Dimensions())
		assert.True(t, s.shorten)
	})
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "secret", BaseURL: srv.URL, Dimensions: 2})
	require.NoError(t, err)

	vecs, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 2, got.Dimensions)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"auth"}}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantErr: domain.ErrRateLimited},
		{name: "plain text failure", status: http.StatusBadGateway, body: "gateway down"},
		{name: "missing embedding", status: http.StatusOK, body: `{"data":[]}`},
		{name: "index out of range", status: http.StatusOK, body: `{"data":[{"index":5,"embedding":[1]}]}`},
		{name: "bad json", status: http.StatusOK, body: `nope`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = s.Embed(context.Background(), "x")
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	good, err := NewEmbeddingService(Config{APIKey: "good", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, good.Ping(context.Background()))

	bad, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Error(t, bad.Ping(context.Background()))
}
