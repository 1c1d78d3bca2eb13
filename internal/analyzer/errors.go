package analyzer

import (
	"errors"
	"fmt"
)

// FetchError reports that the article URL was unreachable or returned a
// non-content response. Fatal for a run; never retried.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that the fetched payload contained no extractable
// text. Fatal for a run; never retried.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// IsFatal reports whether err is one of the non-retryable analysis
// failures.
func IsFatal(err error) bool {
	var fe *FetchError
	var pe *ParseError
	return errors.As(err, &fe) || errors.As(err, &pe)
}
