package trace

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstate/modstate/internal/core/machine"
	"github.com/modstate/modstate/internal/server/debug"
)

func startStream(t *testing.T) (*debug.Server, string, func()) {
	t.Helper()
	s := debug.NewServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	ts := httptest.NewServer(s)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	return s, url, func() {
		cancel()
		ts.Close()
	}
}

func TestClientReceivesEvents(t *testing.T) {
	s, url, stop := startStream(t)
	defer stop()

	c := NewClient(DefaultConfig(url))
	defer c.Close()

	var entered atomic.Int32
	c.On(machine.OpEnter, func(machine.TraceEvent) { entered.Add(1) })

	require.NoError(t, c.Connect(context.Background()))
	waitForClient(t, s)

	obs := s.Observer()
	obs.StateEntered(machine.TraceEvent{ID: "1", Machine: "bot", State: "mine", Kind: "action", Op: machine.OpEnter})
	obs.StateExited(machine.TraceEvent{ID: "2", Machine: "bot", State: "mine", Kind: "action", Op: machine.OpExit})

	var got []machine.TraceEvent
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-c.Events():
			got = append(got, e)
		case <-deadline:
			t.Fatalf("only %d events arrived", len(got))
		}
	}
	assert.Equal(t, machine.OpEnter, got[0].Op)
	assert.Equal(t, "mine", got[0].State)
	assert.Equal(t, machine.OpExit, got[1].Op)
	assert.Equal(t, int32(1), entered.Load())
}

func TestClientConnectAfterClose(t *testing.T) {
	c := NewClient(DefaultConfig("ws://localhost:1"))
	c.Close()
	c.Close() // idempotent
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

func TestClientConnectFailsFast(t *testing.T) {
	cfg := DefaultConfig("ws://127.0.0.1:1")
	cfg.DialTimeout = 200 * time.Millisecond
	c := NewClient(cfg)
	defer c.Close()
	assert.Error(t, c.Connect(context.Background()))
}

func TestClientEventsCloseOnContextEnd(t *testing.T) {
	_, url, stop := startStream(t)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(DefaultConfig(url))
	require.NoError(t, c.Connect(ctx))
	cancel()
	c.Close()

	select {
	case _, open := <-drained(c.Events()):
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}

// drained forwards from ch until it closes, then closes its own channel, so
// tests can wait for closure while discarding stragglers.
func drained(ch <-chan machine.TraceEvent) <-chan machine.TraceEvent {
	out := make(chan machine.TraceEvent)
	go func() {
		for range ch {
		}
		close(out)
	}()
	return out
}

func waitForClient(t *testing.T, s *debug.Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with the stream")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
