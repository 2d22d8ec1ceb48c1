package sessions

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personakit/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func (c *fakeConn) SendFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestDeliverToUnknownIdentityIsSilent(t *testing.T) {
	r := NewRegistry()
	r.Deliver(99, protocol.NewTextResponse(99, "hello"))
	assert.Zero(t, r.ActiveConnections(99))
}

func TestUnregisterDropsEmptyIdentityEntry(t *testing.T) {
	r := NewRegistry()
	c := &fakeConn{}
	r.Register(42, c)
	require.Equal(t, 1, r.ActiveConnections(42))

	r.Unregister(42, c)
	assert.Zero(t, r.ActiveConnections(42))

	r.mu.RLock()
	_, present := r.conns[42]
	r.mu.RUnlock()
	assert.False(t, present, "empty identity entry must be removed")
}

func TestUnregisterUnknownConnIsSilent(t *testing.T) {
	r := NewRegistry()
	r.Unregister(42, &fakeConn{})
}

func TestDeliverFansOutToAllConnections(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register(42, a)
	r.Register(42, b)

	r.Deliver(42, protocol.NewTextResponse(42, "hello"))

	assert.Equal(t, 1, a.frameCount())
	assert.Equal(t, 1, b.frameCount())
	assert.Equal(t, a.frames[0], b.frames[0], "frame is serialized once")
}

func TestDeliverPrunesFailingConnection(t *testing.T) {
	r := NewRegistry()
	healthy := &fakeConn{}
	broken := &fakeConn{sendErr: errors.New("connection reset")}
	r.Register(42, healthy)
	r.Register(42, broken)

	r.Deliver(42, protocol.NewTextResponse(42, "hello"))

	assert.Equal(t, 1, healthy.frameCount(), "healthy connection still receives the frame")
	assert.Equal(t, 1, r.ActiveConnections(42))
	assert.True(t, broken.closed)

	// The failing connection must be gone entirely.
	r.Deliver(42, protocol.NewTextResponse(42, "again"))
	assert.Equal(t, 2, healthy.frameCount())
	assert.Zero(t, broken.frameCount())
}

func TestRegistryIsSafeUnderConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			for j := 0; j < 100; j++ {
				r.Register(7, c)
				r.Deliver(7, protocol.NewTextResponse(7, "x"))
				r.Unregister(7, c)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, r.ActiveConnections(7))
}
