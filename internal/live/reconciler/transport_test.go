package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/courtside/internal/live/stream"
)

// fakeConn is a scriptable transport handle for driving the reconciler
// through a real stream client.
type fakeConn struct {
	frames chan stream.Frame
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan stream.Frame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) push(f stream.Frame) { c.frames <- f }

func (c *fakeConn) Next() (stream.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return stream.Frame{}, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeTransport struct {
	mu        sync.Mutex
	calls     int
	connected chan *fakeConn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: make(chan *fakeConn, 8)}
}

func (t *fakeTransport) Connect(ctx context.Context, target stream.Target) (stream.Conn, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()

	c := newFakeConn()
	t.connected <- c
	return c, nil
}

func (t *fakeTransport) connectCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func waitFakeConn(t *testing.T, tr *fakeTransport) *fakeConn {
	t.Helper()
	select {
	case c := <-tr.connected:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport connect")
		return nil
	}
}
