package event

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDispatcherFanOut(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	got := make(chan Kind, 4)
	d.Register(func(m *Message) { got <- m.Kind })
	d.Register(func(m *Message) { got <- m.Kind })

	frames := make(chan []byte, 1)
	frames <- []byte(`{"type": "RoutingMessage", "data": {"type": "AgentContactAssigned", "interactionId": "int-1"}}`)
	close(frames)

	d.Run(context.Background(), frames)

	for i := 0; i < 2; i++ {
		select {
		case k := <-got:
			if k != KindAgentContactAssigned {
				t.Fatalf("expected AgentContactAssigned, got %s", k)
			}
		default:
			t.Fatalf("expected 2 handler calls, got %d", i)
		}
	}
}

func TestDispatcherDropsMalformed(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	calls := 0
	d.Register(func(m *Message) { calls++ })

	frames := make(chan []byte, 3)
	frames <- []byte(`{broken`)
	frames <- []byte(`{"keepalive": true}`)
	frames <- []byte(`{"type": "RoutingMessage", "data": {"type": "ContactEnded", "interactionId": "int-1"}}`)
	close(frames)

	d.Run(context.Background(), frames)

	if calls != 1 {
		t.Fatalf("expected only the valid frame to dispatch, got %d calls", calls)
	}
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx, make(chan []byte))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after context cancel")
	}
}
