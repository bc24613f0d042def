package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderUnavailable indicates a single backend failed (auth, quota,
	// network, timeout, or malformed response) and the chain should advance
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAllProvidersExhausted indicates every configured backend failed
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrNoProviders indicates the chain was built with no usable providers
	ErrNoProviders = errors.New("no providers configured")
)

// ProviderFailure records why one provider in the chain failed
type ProviderFailure struct {
	Provider string
	Err      error
}

// ExhaustedError aggregates each provider's failure, in chain order
type ExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString("all providers exhausted: ")
	for i, f := range e.Failures {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %v", f.Provider, f.Err)
	}
	return sb.String()
}

// Is makes errors.Is(err, ErrAllProvidersExhausted) work
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// unavailable wraps a backend fault as a provider-unavailable error
func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, provider, err)
}

func unavailablef(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrProviderUnavailable, provider, fmt.Sprintf(format, args...))
}
