// Package upstream holds what the provider adapters share: the error raised
// for a failed upstream call and the HTTP plumbing that identifies us to the
// providers.
package upstream

import (
	"errors"
	"fmt"
)

// ProviderError reports an upstream HTTP or transport failure. StatusCode is
// zero when no response was received.
type ProviderError struct {
	Provider   string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Provider, e.Endpoint, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s %s: request failed", e.Provider, e.Endpoint)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err wraps a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
