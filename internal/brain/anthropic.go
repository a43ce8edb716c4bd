package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/minervabot/minerva/internal/knowledge"
	"github.com/minervabot/minerva/internal/reliability"
)

const defaultAnthropicModel = "claude-3-5-sonnet-latest"

// AnthropicAdapter sends prompts to the Anthropic messages API with the
// course-catalog system prompt attached.
type AnthropicAdapter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicAdapter(apiKey, model string, maxTokens int) *AnthropicAdapter {
	if strings.TrimSpace(model) == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &AnthropicAdapter{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
	}
}

func (a *AnthropicAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: knowledge.SystemPrompt()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(variant.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func classifyAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 400:
			return fmt.Errorf("%w: %v", ErrBadRequest, err)
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return fmt.Errorf("%w: %v", ErrBackendAuth, err)
		case apierr.StatusCode == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case reliability.IsRetryableHTTPStatus(apierr.StatusCode):
			return fmt.Errorf("anthropic status %d: %w", apierr.StatusCode, err)
		}
	}
	return fmt.Errorf("anthropic request: %w", err)
}
