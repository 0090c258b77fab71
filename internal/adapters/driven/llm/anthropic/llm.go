// Package anthropic answers questions through the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/librarian/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/librarian/internal/adapters/driven/llm/prompting"
	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

var (
	_ driven.LLMService       = (*LLMService)(nil)
	_ driven.PromptStoreAware = (*LLMService)(nil)
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("anthropic: API key is required")

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// defaultMaxTokens is sent when the caller sets no limit; the API
	// requires one.
	defaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config configures the adapter. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService is a driven.LLMService backed by /v1/messages.
type LLMService struct {
	api         *httpjson.Client
	model       string
	promptStore driven.PromptStore
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewLLMService applies defaults to cfg and returns the adapter.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	header := http.Header{
		"X-Api-Key":         {cfg.APIKey},
		"Anthropic-Version": {anthropicVersion},
	}
	return &LLMService{
		api:   httpjson.New("anthropic", cfg.BaseURL, cfg.Timeout, header),
		model: cfg.Model,
	}, nil
}

// Generate sends prompt as a single user turn.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.request(driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
	req.Messages = []messagesMessage{{Role: driven.RoleUser, Content: prompt}}
	req.StopSeqs = opts.StopWords
	return s.send(ctx, req)
}

// Chat lifts system turns into the request's system prompt. The API wants
// the conversation to open with a user turn, so leading assistant turns
// left over from history trimming are dropped.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := s.request(opts)
	var system []string
	for _, m := range messages {
		switch {
		case m.Role == driven.RoleSystem:
			system = append(system, m.Content)
		case len(req.Messages) == 0 && m.Role != driven.RoleUser:
		default:
			req.Messages = append(req.Messages, messagesMessage{Role: m.Role, Content: m.Content})
		}
	}
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: conversation has no user message", domain.ErrInvalidInput)
	}
	req.System = strings.Join(system, "\n\n")
	return s.send(ctx, req)
}

func (s *LLMService) request(opts driven.ChatOptions) messagesRequest {
	req := messagesRequest{
		Model:       s.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	return req
}

func (s *LLMService) send(ctx context.Context, req messagesRequest) (string, error) {
	var resp messagesResponse
	if err := s.api.Post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: no response content returned")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// RewriteQuery asks the model for search keywords, keeping query when the
// reply has none.
func (s *LLMService) RewriteQuery(ctx context.Context, query string) (string, error) {
	reply, err := s.Generate(ctx, prompting.QueryRewrite(s.promptStore, query), driven.GenerateOptions{
		MaxTokens:   100,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("rewrite query: %w", err)
	}
	return prompting.Keywords(reply, query), nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// SetPromptStore overrides the built-in query rewrite prompt.
func (s *LLMService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/v1/models")
}

func (s *LLMService) Close() error {
	s.api.Close()
	return nil
}
