package reddit

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError is a retryable submission failure: rate limiting,
// timeouts, upstream 5xx responses.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient submission failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transient submission failure: %s", e.Reason)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a definitive rejection: bad credentials, subreddit
// ban, duplicate content. Never retried.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permanent submission failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("permanent submission failure: %s", e.Reason)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Timeouts and
// context deadlines count as transient.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsPermanent reports whether err is a definitive, non-retryable
// rejection.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
