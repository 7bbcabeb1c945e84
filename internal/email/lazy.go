package email

import (
	"context"
	"sync"
)

// Factory builds a Transport on first use
type Factory func() (Transport, error)

// LazyTransport constructs its underlying transport once, on the first call,
// and shares it between all callers. A construction error is kept and
// returned on every later call.
type LazyTransport struct {
	factory Factory
	once    sync.Once
	t       Transport
	err     error
}

// NewLazyTransport wraps factory
func NewLazyTransport(factory Factory) *LazyTransport {
	return &LazyTransport{factory: factory}
}

// Get returns the shared transport, building it if needed
func (l *LazyTransport) Get() (Transport, error) {
	l.once.Do(func() {
		l.t, l.err = l.factory()
	})
	return l.t, l.err
}

// Send delegates to the shared transport
func (l *LazyTransport) Send(ctx context.Context, msg Message) (*SendInfo, error) {
	t, err := l.Get()
	if err != nil {
		return nil, err
	}
	return t.Send(ctx, msg)
}

// Verify delegates to the shared transport
func (l *LazyTransport) Verify(ctx context.Context) error {
	t, err := l.Get()
	if err != nil {
		return err
	}
	return t.Verify(ctx)
}
