package brain

import (
	"context"
	"errors"
	"time"

	"github.com/minervabot/minerva/internal/observability"
)

// Client is the orchestrator-facing model client: per-call timeout, retry
// policy, and circuit breaking layered over one raw Adapter.
type Client struct {
	adapter Adapter
	policy  RetryPolicy
	breaker *Breaker
	timeout time.Duration
	metrics *observability.Metrics
}

func NewClient(adapter Adapter, policy RetryPolicy, breaker *Breaker, timeout time.Duration, metrics *observability.Metrics) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		adapter: adapter,
		policy:  policy,
		breaker: breaker,
		timeout: timeout,
		metrics: metrics,
	}
}

// Ask answers one prompt. Breaker rejections never reach the backend; every
// admitted call reports its outcome back to the breaker.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		c.count("breaker_open")
		return "", err
	}

	text, err := c.policy.Do(ctx, func(ctx context.Context) (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.adapter.Complete(attemptCtx, prompt)
	})

	// Caller cancellation says nothing about backend health.
	if err != nil && errors.Is(err, context.Canceled) {
		c.count("canceled")
		return "", err
	}

	c.breaker.Record(err == nil)
	if c.metrics != nil {
		c.metrics.BreakerState.Set(float64(c.breaker.State()))
	}
	if err != nil {
		c.count("error")
		return "", err
	}
	c.count("ok")
	return text, nil
}

func (c *Client) count(outcome string) {
	if c.metrics != nil {
		c.metrics.BrainRequests.WithLabelValues(outcome).Inc()
	}
}
