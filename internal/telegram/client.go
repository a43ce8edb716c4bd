package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client covering the two calls the
// assistant needs: long-poll getUpdates and sendMessage.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(token string) *Client {
	return &Client{
		// Long polls hold the connection open for up to the poll timeout, so
		// the client timeout must sit above it.
		httpClient: &http.Client{Timeout: 70 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewClientWithBaseURL points the client at a fake Bot API. Used by tests.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// GetUpdates long-polls for new updates at or after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	raw, err := c.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

// SendMessage delivers one text reply to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read body: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, fmt.Errorf("telegram %s: status %d: %w", method, res.StatusCode, err)
	}
	if !api.OK {
		desc := api.Description
		if desc == "" {
			desc = "status " + strconv.Itoa(res.StatusCode)
		}
		return nil, fmt.Errorf("telegram %s failed: %s", method, desc)
	}
	return api.Result, nil
}
