package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestDefaultErrorChecker_TaxonomyErrorsAreNotRetryable(t *testing.T) {
	checker := &DefaultErrorChecker{}

	testCases := []struct {
		name string
		err  error
	}{
		{"configuration error", fmt.Errorf("missing secondary pool: %w", ErrConfiguration)},
		{"validation error", fmt.Errorf("bad sessionId: %w", ErrValidation)},
		{"integrity mismatch", fmt.Errorf("count diverged: %w", ErrIntegrityMismatch)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if checker.IsRetryable(tc.err) {
				t.Errorf("expected %v to be non-retryable", tc.err)
			}
		})
	}
}

func TestDefaultErrorChecker_NetworkErrorsAreRetryable(t *testing.T) {
	checker := &DefaultErrorChecker{}

	opErr := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	if !checker.IsRetryable(opErr) {
		t.Error("expected connection-refused op error to be retryable")
	}
}

func TestDefaultErrorChecker_TimeoutErrorsAreRetryable(t *testing.T) {
	checker := &DefaultErrorChecker{}

	if !checker.IsRetryable(errors.New("context deadline exceeded")) {
		t.Error("expected deadline-exceeded message to be retryable")
	}
	if !checker.IsRetryable(errors.New("read tcp: i/o timeout")) {
		t.Error("expected i/o timeout message to be retryable")
	}
}

func TestDefaultErrorChecker_NilErrorIsNotRetryable(t *testing.T) {
	checker := &DefaultErrorChecker{}
	if checker.IsRetryable(nil) {
		t.Error("expected nil error to be non-retryable")
	}
}

func TestDefaultErrorChecker_UnclassifiedErrorDefaultsRetryable(t *testing.T) {
	checker := &DefaultErrorChecker{}
	if !checker.IsRetryable(errors.New("connection reset by peer")) {
		t.Error("expected an unclassified error to default to retryable")
	}
}
