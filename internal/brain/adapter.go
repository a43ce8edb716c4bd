package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Adapter is one raw transport to the language-model backend. Adapters do not
// retry; the Client layered on top owns retry and circuit breaking.
type Adapter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode      string
	HTTPURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

// NewAdapter selects the backend transport. "auto" prefers the Anthropic API
// when a key is configured, then a generic HTTP endpoint, then the mock.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewAnthropicAdapter(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
		}
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPAdapter(cfg.HTTPURL), nil
		}
		return NewMockAdapter(), nil
	case "anthropic":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("anthropic API key is required for anthropic mode")
		}
		return NewAnthropicAdapter(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("brain HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain mode %q", cfg.Mode)
	}
}
