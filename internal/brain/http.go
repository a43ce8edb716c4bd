package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minervabot/minerva/internal/knowledge"
	"github.com/minervabot/minerva/internal/reliability"
)

// HTTPAdapter forwards prompts to a generic completion endpoint, for local
// model servers and test rigs that speak a one-shot JSON contract.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string) *HTTPAdapter {
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type completionRequest struct {
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (a *HTTPAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		System: knowledge.SystemPrompt(),
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrBadRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrBadRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", classifyHTTPStatus(res.StatusCode, string(body))
	}

	var out completionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

func classifyHTTPStatus(code int, body string) error {
	switch {
	case code == 400:
		return fmt.Errorf("%w: status 400: %s", ErrBadRequest, body)
	case code == 401 || code == 403:
		return fmt.Errorf("%w: status %d", ErrBackendAuth, code)
	case code == 429:
		return fmt.Errorf("%w: status 429", ErrRateLimited)
	case reliability.IsRetryableHTTPStatus(code):
		return fmt.Errorf("brain http status %d: %s", code, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrBadRequest, code, body)
	}
}
