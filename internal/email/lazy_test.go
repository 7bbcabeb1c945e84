package email

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	sent      atomic.Int32
	verifyErr error
}

func (s *stubTransport) Send(_ context.Context, msg Message) (*SendInfo, error) {
	s.sent.Add(1)
	return &SendInfo{Accepted: msg.To, Provider: "stub"}, nil
}

func (s *stubTransport) Verify(context.Context) error { return s.verifyErr }

func TestLazyTransport_BuildsOnceUnderConcurrency(t *testing.T) {
	var builds atomic.Int32
	stub := &stubTransport{}
	lazy := NewLazyTransport(func() (Transport, error) {
		builds.Add(1)
		return stub, nil
	})
	assert.Equal(t, int32(0), builds.Load(), "factory must not run before first use")

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.Send(context.Background(), Message{To: []string{"a@x.io"}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, int32(64), stub.sent.Load())

	got, err := lazy.Get()
	require.NoError(t, err)
	assert.Same(t, stub, got)
}

func TestLazyTransport_ErrorIsCached(t *testing.T) {
	var builds atomic.Int32
	boom := errors.New("bad config")
	lazy := NewLazyTransport(func() (Transport, error) {
		builds.Add(1)
		return nil, boom
	})

	_, err := lazy.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, lazy.Verify(context.Background()), boom)
	assert.Equal(t, int32(1), builds.Load())
}

func TestLazyTransport_VerifyDelegates(t *testing.T) {
	down := errors.New("down")
	lazy := NewLazyTransport(func() (Transport, error) {
		return &stubTransport{verifyErr: down}, nil
	})
	assert.ErrorIs(t, lazy.Verify(context.Background()), down)
}
