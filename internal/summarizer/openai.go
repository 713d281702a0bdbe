package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewOpenAICompleter(apiKey, baseURL, model string, maxTokens int, temperature float64, timeout time.Duration) *OpenAICompleter {
	return &OpenAICompleter{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(openaiRequest{
		Model:       c.model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("openai: failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("openai: failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: failed to read response: %w", err)
	}

	var apiResp openaiResponse
	jsonErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(respBody))
		if jsonErr == nil && apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		return "", &retry.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: msg}
	}
	if jsonErr != nil {
		return "", fmt.Errorf("openai: failed to parse response: %w", jsonErr)
	}
	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: empty response")
	}

	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}
