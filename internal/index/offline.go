package index

import (
	"context"
	"errors"
	"fmt"
)

// Offline stands in for a collection that could not be opened. Every
// operation fails with the open error, which always wraps ErrUnavailable,
// so callers degrade per call instead of refusing to start.
type Offline struct {
	name  string
	cause error
}

var _ Index = (*Offline)(nil)

// NewOffline returns an Offline index named name that reports cause.
func NewOffline(name string, cause error) *Offline {
	if cause == nil {
		cause = errors.New("not opened")
	}
	if !errors.Is(cause, ErrUnavailable) {
		cause = fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}
	return &Offline{name: name, cause: cause}
}

// Name returns the collection name.
func (o *Offline) Name() string { return o.name }

// Add always fails.
func (o *Offline) Add(context.Context, []Entry) error { return o.err() }

// Query always fails.
func (o *Offline) Query(context.Context, []float32, int) ([]Result, error) { return nil, o.err() }

// Count always fails.
func (o *Offline) Count(context.Context) (int, error) { return 0, o.err() }

// Ping always fails, so readiness probes report the index down.
func (o *Offline) Ping(context.Context) error { return o.err() }

// Close is a no-op.
func (o *Offline) Close() error { return nil }

func (o *Offline) err() error {
	return fmt.Errorf("index: collection %q offline: %w", o.name, o.cause)
}
