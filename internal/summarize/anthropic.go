package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API over HTTP.
type AnthropicClient struct {
	APIKey    string
	Model     string
	MaxTokens int

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string

	HTTPClient *http.Client
}

// NewAnthropicClient creates a client with the given credentials and
// generation bounds.
func NewAnthropicClient(apiKey, model string, maxTokens int, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		APIKey:    apiKey,
		Model:     model,
		MaxTokens: maxTokens,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Summarize performs one messages-API round-trip and returns the
// generated document text.
func (c *AnthropicClient) Summarize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", ErrNoAPIKey
	}

	payload, err := json.Marshal(messagesRequest{
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		Messages: []message{
			{Role: "user", Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summarizer request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // response fully consumed
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != nil {
			return "", fmt.Errorf("summarizer failed: %s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return "", fmt.Errorf("summarizer failed: status %d", resp.StatusCode)
	}

	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("summarizer returned no text content")
	}
	return out.String(), nil
}
