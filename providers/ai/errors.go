package ai

import (
	"errors"
	"fmt"

	"github.com/bupple-inc/ai-engine/internal/utils"
)

// ProviderRequestError reports a failed call to a backend: a missing key, a
// transport failure or a non-2xx response. StatusCode is zero when no
// response was received.
type ProviderRequestError struct {
	Provider   Provider
	Reason     string
	StatusCode int
	Err        error
}

func (e *ProviderRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed: %s (status %d): %v", e.Provider, e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *ProviderRequestError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps err, copying the status code from a *utils.StatusError
// when one is in the chain.
func NewRequestError(provider Provider, reason string, err error) *ProviderRequestError {
	requestErr := &ProviderRequestError{Provider: provider, Reason: reason, Err: err}
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		requestErr.StatusCode = statusErr.StatusCode
	}
	return requestErr
}

// UnsupportedDriverError reports a chat or memory driver name outside the
// supported set.
type UnsupportedDriverError struct {
	Kind string // "chat" or "memory"
	Name string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("unsupported %s driver %q", e.Kind, e.Name)
}
