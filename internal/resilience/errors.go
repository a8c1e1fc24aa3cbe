package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Taxonomy errors for the transition engine and item updater (§7).
var (
	// ErrConfiguration marks a missing or misconfigured dependency
	// (secondary repository, status repository). Surfaced immediately,
	// never retried.
	ErrConfiguration = errors.New("resilience: configuration error")

	// ErrValidation marks a caller-input failure: bad identifier,
	// unknown content type, missing creation time, unconstructable
	// dates. Surfaced to the caller with no state mutation.
	ErrValidation = errors.New("resilience: validation error")

	// ErrIntegrityMismatch marks a deterministic integrity-check
	// failure between primary and secondary stores.
	ErrIntegrityMismatch = errors.New("resilience: integrity mismatch")
)

// DefaultErrorChecker treats network errors, timeouts, and Go's
// "temporary" interface as retryable, and anything tagged with
// ErrConfiguration or ErrValidation as non-retryable.
type DefaultErrorChecker struct{}

// IsRetryable implements RetryableErrorChecker.
func (c *DefaultErrorChecker) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrValidation) || errors.Is(err, ErrIntegrityMismatch) {
		return false
	}
	if isTransientNetworkError(err) {
		return true
	}
	if isTimeoutError(err) {
		return true
	}
	type temporary interface {
		Temporary() bool
	}
	if te, ok := err.(temporary); ok {
		return te.Temporary()
	}
	return true
}

func isTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED),
			errors.Is(opErr.Err, syscall.ECONNRESET),
			errors.Is(opErr.Err, syscall.ENETUNREACH),
			errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	for _, indicator := range []string{"timeout", "deadline exceeded", "i/o timeout", "timed out"} {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}
	type timeout interface {
		Timeout() bool
	}
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	return false
}
