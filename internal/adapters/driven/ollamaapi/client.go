// Package ollamaapi is the HTTP client shared by the Ollama embedding and
// chat adapters.
package ollamaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// ErrModelNotPulled is returned by Ping when the server lacks the model.
var ErrModelNotPulled = errors.New("ollama model not pulled")

// APIError is a failed request. Status is 200 when the server reported
// the failure in the body's error field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama error (status %d): %s", e.Status, e.Message)
}

// Client talks to one Ollama server.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a client for baseURL, or DefaultBaseURL when it is empty.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends in as JSON to path and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var reported struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &reported) //nolint:errcheck // the body may not be JSON

	if resp.StatusCode != http.StatusOK {
		msg := reported.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if reported.Error != "" {
		return &APIError{Status: resp.StatusCode, Message: reported.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Models lists the names of the models the server has pulled.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.do(req, &tags); err != nil {
		return nil, err
	}

	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// Ping checks that the server answers and has model, without running it.
func (c *Client) Ping(ctx context.Context, model string) error {
	names, err := c.Models(ctx)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	for _, name := range names {
		if SameModel(name, model) {
			return nil
		}
	}
	return fmt.Errorf("%w: run 'ollama pull %s'", ErrModelNotPulled, model)
}

// SameModel compares model names, treating a missing tag as ":latest".
func SameModel(a, b string) bool {
	return withTag(a) == withTag(b)
}

func withTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}
