package llm

import "fmt"

// UpstreamError wraps any failure of a completion call: the service being
// unreachable, the request being rejected, or the deadline expiring.
// Callers surface a short description to the user and must never relay a
// raw trace.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
