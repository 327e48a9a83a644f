package llm

import "fmt"

// ErrorKind partitions provider failures into the causes callers branch on.
type ErrorKind string

// Provider error kinds.
const (
	KindTimeout         ErrorKind = "timeout"
	KindRateLimited     ErrorKind = "rate_limited"
	KindMalformedOutput ErrorKind = "malformed_output"
	KindAuthFailure     ErrorKind = "auth_failure"
	KindUnavailable     ErrorKind = "unavailable"
)

// ProviderError is the only error type providers return. The kind decides
// whether the caller may retry.
type ProviderError struct {
	Err  error
	Kind ErrorKind
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("provider error (%s)", e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

func newProviderError(kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}
