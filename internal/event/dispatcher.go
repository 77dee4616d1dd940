package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives decoded messages. Handlers run on the dispatcher
// goroutine, one message at a time, in arrival order.
type Handler func(*Message)

// Dispatcher consumes raw frames from the event stream, decodes them once
// and fans each message out to every registered handler sequentially.
// Malformed frames are logged and dropped so a bad payload can never kill
// the stream consumer.
type Dispatcher struct {
	mu       sync.Mutex
	handlers []Handler
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Register adds a handler. Registration order is dispatch order.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

// Run consumes frames until the channel closes or the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			d.dispatch(frame)
		}
	}
}

func (d *Dispatcher) dispatch(frame []byte) {
	msg, err := Decode(frame)
	if err != nil {
		d.logger.Warn().Err(err).Msg("dropping malformed event")
		return
	}
	if msg.Kind == KindKeepalive {
		return
	}

	d.mu.Lock()
	handlers := d.handlers
	d.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}
