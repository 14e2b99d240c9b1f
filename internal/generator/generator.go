// Package generator produces the answer text for a prompt with one blocking
// call to a language model. There is no streaming and no retry: a failed
// call is classified and returned to the caller.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrBackendUnavailable is returned when the inference backend cannot be
	// reached: connection refused, DNS failure or timeout.
	ErrBackendUnavailable = errors.New("generator: inference backend unavailable")

	// ErrGeneration is returned when the backend answered with an error or
	// a response that could not be used.
	ErrGeneration = errors.New("generator: generation failed")
)

// Generator turns a prompt into answer text.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// IsUnavailable reports whether err is a transport-level failure: the
// backend is not running, not resolvable or did not answer in time.
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify wraps err with the sentinel matching its cause.
func classify(backend string, err error) error {
	if IsUnavailable(err) {
		return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, backend, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrGeneration, backend, err)
}
