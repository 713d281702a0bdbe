package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

// sendJSON sends payload as JSON and decodes a successful response into out
// when out is non-nil. Non-2xx responses become *retry.StatusError.
func sendJSON(ctx context.Context, client *http.Client, service, method, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("%s: marshal payload: %w", service, err))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("%s: create request: %w", service, err))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.StatusError{Service: service, StatusCode: resp.StatusCode, Body: errorMessage(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return retry.Permanent(fmt.Errorf("%s: parse response: %w", service, err))
		}
	}
	return nil
}

// errorMessage pulls "message" out of a JSON error body, falling back to the
// raw text.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return truncate(strings.TrimSpace(string(body)), 300)
}
