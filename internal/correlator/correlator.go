package correlator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/event"
)

const (
	// Default window for a matching notification to arrive.
	defaultTimeout = 20 * time.Second

	// NoTimeout disables the notification window for a request. The request
	// then stays pending until a success, failure or cancel notification
	// settles it (consult-to-queue relies on this).
	NoTimeout = time.Duration(-1)
)

// Request is one outbound REST-style action handed to the transport.
type Request struct {
	Method     string
	Path       string
	Body       any
	TrackingID string
}

// Requester performs the underlying HTTP call. The response body is not used
// for correlation; only a transport-level failure matters here.
type Requester interface {
	Do(ctx context.Context, req Request) error
}

// Def describes one correlated action: the request to send and the
// notification kinds that settle it.
type Def struct {
	// Op names the action for logging and error reporting, e.g. "task.accept".
	Op            string
	InteractionID string
	Method        string
	Path          string
	Body          any

	Success []event.Kind
	Failure []event.Kind
	// Cancel optionally settles the request successfully, used when an
	// explicit cancellation event supersedes the original request.
	Cancel event.Kind

	// Timeout overrides the default window; NoTimeout disables it.
	Timeout time.Duration
}

type outcome struct {
	msg *event.Message
	err error
}

type pending struct {
	def  Def
	ch   chan outcome
	once sync.Once
}

func (p *pending) settle(o outcome) {
	p.once.Do(func() {
		p.ch <- o
	})
}

// Correlator issues requests and resolves them against the notification
// stream. At most one request per interaction id + action may be in flight.
type Correlator struct {
	requester Requester
	logger    zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pending
}

// New creates a Correlator. Wire HandleMessage into the event dispatcher.
func New(requester Requester, logger zerolog.Logger) *Correlator {
	return &Correlator{
		requester: requester,
		logger:    logger.With().Str("component", "correlator").Logger(),
		pending:   make(map[string]*pending),
	}
}

// Send issues the request described by def and blocks until a matching
// notification arrives, the transport fails, the window elapses or ctx is
// cancelled. Exactly one of those settles the request; later matching
// notifications are ignored.
func (c *Correlator) Send(ctx context.Context, def Def) (*event.Message, error) {
	key := def.Op + "|" + def.InteractionID

	p := &pending{def: def, ch: make(chan outcome, 1)}

	c.mu.Lock()
	if _, exists := c.pending[key]; exists {
		c.mu.Unlock()
		return nil, &OpError{Kind: KindTransport, Op: def.Op, Reason: "duplicate request", Err: ErrRequestPending}
	}
	c.pending[key] = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	}()

	tracking := newTrackingID()
	c.logger.Debug().
		Str("op", def.Op).
		Str("interaction_id", def.InteractionID).
		Str("tracking_id", tracking).
		Msg("sending correlated request")

	if err := c.requester.Do(ctx, Request{
		Method:     def.Method,
		Path:       def.Path,
		Body:       def.Body,
		TrackingID: tracking,
	}); err != nil {
		p.settle(outcome{err: &OpError{
			Kind:       KindTransport,
			Op:         def.Op,
			Reason:     err.Error(),
			TrackingID: tracking,
			Err:        err,
		}})
	}

	var timeoutCh <-chan time.Time
	if def.Timeout != NoTimeout {
		window := def.Timeout
		if window == 0 {
			window = defaultTimeout
		}
		timer := time.NewTimer(window)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case o := <-p.ch:
		return o.msg, o.err
	case <-timeoutCh:
		p.settle(outcome{err: &OpError{
			Kind:       KindTimeout,
			Op:         def.Op,
			Reason:     "no matching notification",
			TrackingID: tracking,
		}})
	case <-ctx.Done():
		p.settle(outcome{err: &OpError{
			Kind:       KindTransport,
			Op:         def.Op,
			Reason:     ctx.Err().Error(),
			TrackingID: tracking,
			Err:        ctx.Err(),
		}})
	}

	// A notification may have raced the timer or cancellation and settled
	// first; whatever won is the single buffered outcome.
	o := <-p.ch
	return o.msg, o.err
}

// HandleMessage settles pending requests that bind the message's kind.
// Register this with the event dispatcher.
func (c *Correlator) HandleMessage(msg *event.Message) {
	c.mu.Lock()
	var matched []*pending
	for _, p := range c.pending {
		if matches(p.def, msg) {
			matched = append(matched, p)
		}
	}
	c.mu.Unlock()

	for _, p := range matched {
		switch {
		case kindIn(msg.Kind, p.def.Success), msg.Kind == p.def.Cancel && p.def.Cancel != "":
			p.settle(outcome{msg: msg})
		case kindIn(msg.Kind, p.def.Failure):
			p.settle(outcome{err: failureError(p.def, msg)})
		}
	}
}

// matches reports whether msg can settle def. Success and cancel bindings are
// scoped to the interaction id; failure notifications frequently omit it, so
// an empty id on either side matches.
func matches(def Def, msg *event.Message) bool {
	if kindIn(msg.Kind, def.Success) || (def.Cancel != "" && msg.Kind == def.Cancel) {
		return def.InteractionID == "" || msg.InteractionID == def.InteractionID
	}
	if kindIn(msg.Kind, def.Failure) {
		return def.InteractionID == "" || msg.InteractionID == "" || msg.InteractionID == def.InteractionID
	}
	return false
}

func kindIn(k event.Kind, set []event.Kind) bool {
	for _, s := range set {
		if s == k {
			return true
		}
	}
	return false
}

func failureError(def Def, msg *event.Message) error {
	reason := "request rejected"
	var payload struct {
		Reason     string      `json:"reason"`
		ReasonCode json.Number `json:"reasonCode"`
	}
	if err := json.Unmarshal(msg.Raw, &payload); err == nil && payload.Reason != "" {
		reason = payload.Reason
	}
	return &OpError{
		Kind:       KindServerRejected,
		Op:         def.Op,
		Reason:     reason,
		TrackingID: msg.TrackingID,
	}
}
