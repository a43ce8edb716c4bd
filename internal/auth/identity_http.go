package auth

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

// HTTPIdentityClient talks to the external OAuth identity service. The
// service owns the web login flow; this client only mints login links.
type HTTPIdentityClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIdentityClient(baseURL string) *HTTPIdentityClient {
	return &HTTPIdentityClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type issueLinkRequest struct {
	UserID string `json:"user_id"`
	Nonce  string `json:"nonce"`
}

type issueLinkResponse struct {
	URL string `json:"url"`
}

func (c *HTTPIdentityClient) IssueLoginLink(ctx context.Context, userID, nonce string) (string, error) {
	payload, err := json.Marshal(issueLinkRequest{UserID: userID, Nonce: nonce})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/links", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("identity service status %d: %s", res.StatusCode, string(body))
	}

	var out issueLinkResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.URL) == "" {
		// Older identity deployments expose only path-style login links.
		return fmt.Sprintf("%s/login/%s?nonce=%s", c.baseURL, userID, nonce), nil
	}
	return out.URL, nil
}
