package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/lookgame/internal/log"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h, cancel
}

// attach registers a connection-less client so tests can read its queue.
func attach(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	h.register <- c
	return c
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)
	a := attach(h, 4)
	b := attach(h, 4)
	assert.Equal(t, 2, h.ClientCount())

	require.NoError(t, h.BroadcastJSON(map[string]string{"name": "Intro"}))

	for _, c := range []*Client{a, b} {
		m := recv(t, c)
		assert.JSONEq(t, `{"name":"Intro"}`, string(m))
	}
}

func TestLateClientGetsLatest(t *testing.T) {
	h, _ := startHub(t)
	early := attach(h, 4)

	h.Broadcast([]byte(`"first"`))
	h.Broadcast([]byte(`"second"`))
	recv(t, early)
	recv(t, early)

	late := attach(h, 4)
	assert.Equal(t, `"second"`, string(recv(t, late)))
}

func TestSlowClientIsDropped(t *testing.T) {
	h, _ := startHub(t)
	slow := attach(h, 1)

	h.Broadcast([]byte(`1`))
	h.Broadcast([]byte(`2`))

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte(`1`), <-slow.send)
	_, ok := <-slow.send
	assert.False(t, ok, "slow client channel should be closed")
	assert.Equal(t, int64(1), h.Dropped())
}

func TestUnregister(t *testing.T) {
	h, _ := startHub(t)
	c := attach(h, 1)

	h.unregister <- c
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())
}

func TestRunStopsOnCancel(t *testing.T) {
	h, cancel := startHub(t)
	c := attach(h, 1)
	assert.Eventually(t, h.IsRunning, time.Second, 5*time.Millisecond)

	cancel()
	_, ok := <-c.send
	assert.False(t, ok, "clients are closed when the hub stops")
	assert.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, 5*time.Millisecond)
	assert.Nil(t, NewClient(h, nil), "no registration after stop")
}
