// Package anthropic answers questions with Claude through the Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens is sent when the caller sets no limit; the API
	// requires one.
	DefaultMaxTokens = 1024

	// DefaultRetries is how often a rate-limited or overloaded request is
	// repeated.
	DefaultRetries = 2

	anthropicVersion = "2023-06-01"
	statusOverloaded = 529
	maxRetryWait     = 30 * time.Second
)

// Config holds the credentials and model. Zero fields other than APIKey
// take the defaults; a negative Retries disables retrying.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retries int
}

// LLMService calls /v1/messages.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	retries int
	backoff time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type errorResponse struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// statusError is a non-200 reply.
type statusError struct {
	status     int
	message    string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("anthropic error (status %d): %s", e.status, e.message)
}

func (e *statusError) temporary() bool {
	return e.status == http.StatusTooManyRequests || e.status == statusOverloaded ||
		e.status == http.StatusServiceUnavailable
}

// NewLLMService returns a service for cfg. The API key is required.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
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
	switch {
	case cfg.Retries == 0:
		cfg.Retries = DefaultRetries
	case cfg.Retries < 0:
		cfg.Retries = 0
	}

	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		retries: cfg.Retries,
		backoff: time.Second,
	}, nil
}

// Generate sends prompt as a single user turn.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.newRequest("", []message{{Role: driven.RoleUser, Content: prompt}}, opts.MaxTokens, opts.Temperature)
	req.StopSeqs = opts.StopWords
	return s.complete(ctx, req)
}

// Chat moves system messages into the request's system field, joined by
// blank lines, and merges consecutive turns of the same role since the
// API requires roles to alternate.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system []string
	var turns []message

	for _, m := range messages {
		switch {
		case m.Role == driven.RoleSystem:
			system = append(system, m.Content)
		case len(turns) > 0 && turns[len(turns)-1].Role == m.Role:
			turns[len(turns)-1].Content += "\n\n" + m.Content
		default:
			turns = append(turns, message{Role: m.Role, Content: m.Content})
		}
	}

	return s.complete(ctx, s.newRequest(strings.Join(system, "\n\n"), turns, opts.MaxTokens, opts.Temperature))
}

func (s *LLMService) newRequest(system string, turns []message, maxTokens int, temperature float64) messagesRequest {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return messagesRequest{
		Model:       s.model,
		Messages:    turns,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: temperature,
	}
}

func (s *LLMService) complete(ctx context.Context, req messagesRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.NewLLMServiceError(s.model, fmt.Errorf("marshal request: %w", err))
	}

	var resp messagesResponse
	if err := s.doWithRetry(ctx, http.MethodPost, "/v1/messages", body, &resp); err != nil {
		return "", domain.NewLLMServiceError(s.model, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", domain.NewLLMServiceError(s.model, errors.New("anthropic: no text content returned"))
	}
	return text.String(), nil
}

// doWithRetry repeats requests refused for load, waiting for retry-after
// when the server sends it and doubling the backoff otherwise.
func (s *LLMService) doWithRetry(ctx context.Context, method, path string, body []byte, out any) error {
	wait := s.backoff
	for attempt := 0; ; attempt++ {
		err := s.do(ctx, method, path, body, out)

		var se *statusError
		if err == nil || !errors.As(err, &se) || !se.temporary() || attempt >= s.retries {
			return err
		}

		delay := wait
		if se.retryAfter > 0 {
			delay = min(se.retryAfter, maxRetryWait)
		}
		logger.Debug("anthropic returned %d, retrying in %s", se.status, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		wait *= 2
	}
}

func (s *LLMService) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		se := &statusError{status: resp.StatusCode, message: strings.TrimSpace(string(data))}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != nil {
			se.message = er.Error.Message
		}
		if secs, err := strconv.Atoi(resp.Header.Get("retry-after")); err == nil {
			se.retryAfter = time.Duration(secs) * time.Second
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the key against /v1/models, which costs no tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.do(ctx, http.MethodGet, "/v1/models", nil, nil); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

func (s *LLMService) Close() error {
	return nil
}
