// Client - Simple wrapper around providers.
//
// The wrapper owns the relay's upstream error policy: every completion gets
// a deadline, and every failure comes back as *UpstreamError so the router
// can distinguish "the model failed" from its own bugs.
package llm

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single completion call when no explicit timeout
// is configured. The underlying transports would otherwise wait
// indefinitely.
const DefaultTimeout = 60 * time.Second

// Client wraps a Provider with a per-request timeout and error mapping.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient creates a new completion client from a provider.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(provider Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{provider: provider, timeout: timeout}
}

// Complete sends a chat completion request and returns the response.
// Any failure, including a deadline expiry, is returned as *UpstreamError.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.provider.Chat(ctx, messages)
	if err != nil {
		return Response{}, &UpstreamError{Provider: c.provider.Name(), Err: err}
	}
	return response, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
