// Package llm provides LLM client implementations.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GroqClient is a client for the Groq OpenAI-compatible chat API.
type GroqClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGroqClient creates a new Groq client. If baseURL is empty the public
// Groq endpoint is used.
func NewGroqClient(baseURL, apiKey string) *GroqClient {
	if baseURL == "" {
		baseURL = "https://api.groq.com"
	}
	return &GroqClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// chatResponse is the OpenAI-compatible response body.
type chatResponse struct {
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request to Groq. The request is not retried;
// any transport or API failure is returned to the caller.
func (c *GroqClient) Chat(ctx context.Context, model string, messages []Message, temperature float64) (*ChatResponse, error) {
	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/openai/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var wire chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("empty response: no choices returned")
	}

	choice := wire.Choices[0]
	return &ChatResponse{
		Model:        wire.Model,
		CreatedAt:    time.Unix(wire.Created, 0),
		Message:      choice.Message,
		FinishReason: choice.FinishReason,
		InputTokens:  wire.Usage.PromptTokens,
		OutputTokens: wire.Usage.CompletionTokens,
	}, nil
}

// Ping checks whether the Groq API is reachable with the configured key.
func (c *GroqClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/openai/v1/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("groq ping: status %d", resp.StatusCode)
	}
	return nil
}
