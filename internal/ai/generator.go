package ai

import (
	"context"
	"errors"
	"fmt"
)

// Generator is the text-generation capability. Callers must treat any
// error as a signal to use their deterministic fallback, never as a
// fatal failure.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	IsEnabled() bool
}

// UnavailableError reports that the AI capability could not serve the
// request (missing credentials, network failure, upstream error).
type UnavailableError struct {
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ai unavailable: %s", e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err marks the AI capability as down.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
