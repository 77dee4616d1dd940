package task

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/calling"
	"github.com/centrivo/agentcc/internal/event"
)

// EventType names the task lifecycle events emitted to subscribers.
type EventType string

const (
	EventIncoming        EventType = "task:incoming"
	EventAssigned        EventType = "task:assigned"
	EventHeld            EventType = "task:hold"
	EventUnheld          EventType = "task:unhold"
	EventConsult         EventType = "task:consult"
	EventConsultAccepted EventType = "task:consultAccepted"
	EventWrapup          EventType = "task:wrapup"
	EventEnd             EventType = "task:end"
)

// Event is one task lifecycle announcement.
type Event struct {
	Type EventType
	Task *Task
}

// Router merges server contact-lifecycle events with local call-control
// events into a single consistent task view. A reservation and the matching
// local call offer arrive independently and in either order; in browser mode
// the incoming announcement only fires once both are here, in every other
// mode it fires on the reservation alone.
type Router struct {
	contact  *Contact
	calling  *calling.Service
	media    calling.MediaProvider
	registry *Registry
	logger   zerolog.Logger

	mu          sync.Mutex
	current     *Task
	callArrived bool

	events chan Event
}

// NewRouter creates the router. Wire HandleMessage into the event dispatcher
// and start Run to consume local call offers.
func NewRouter(contact *Contact, callingSvc *calling.Service, media calling.MediaProvider, registry *Registry, logger zerolog.Logger) *Router {
	return &Router{
		contact:  contact,
		calling:  callingSvc,
		media:    media,
		registry: registry,
		logger:   logger.With().Str("component", "router").Logger(),
		events:   make(chan Event, 16),
	}
}

// Events returns the channel task lifecycle events are announced on.
func (r *Router) Events() <-chan Event {
	return r.events
}

// Registry returns the live task registry.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Run consumes incoming call offers from the call-control adapter until ctx
// is cancelled.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-r.calling.Incoming():
			if !ok {
				return
			}
			r.mu.Lock()
			r.callArrived = true
			r.mu.Unlock()
			r.tryAnnounce()
		}
	}
}

// HandleMessage processes one server event. Malformed payloads are logged
// and dropped; the router stays live.
func (r *Router) HandleMessage(msg *event.Message) {
	switch msg.Kind {
	case event.KindAgentContactReserved:
		r.handleReserved(msg)
	case event.KindAgentContactAssigned:
		r.transition(msg, StateAssigned, EventAssigned)
	case event.KindAgentContactHeld:
		r.transition(msg, StateHeld, EventHeld)
	case event.KindAgentContactUnheld:
		r.transition(msg, StateAssigned, EventUnheld)
	case event.KindAgentConsultCreated:
		r.transition(msg, StateConsulting, EventConsult)
	case event.KindAgentConsulting:
		r.transition(msg, StateConsulting, EventConsultAccepted)
	case event.KindAgentWrapup:
		r.transition(msg, StateWrapup, EventWrapup)
	case event.KindAgentWrappedUp, event.KindContactEnded:
		r.handleEnded(msg)
	}
}

func (r *Router) handleReserved(msg *event.Message) {
	payload, err := msg.Contact()
	if err != nil {
		r.logger.Warn().Err(err).Msg("dropping malformed reservation")
		return
	}
	if payload.InteractionID == "" {
		r.logger.Warn().Msg("dropping reservation without interaction id")
		return
	}

	if existing := r.registry.Get(payload.InteractionID); existing != nil {
		// A later reservation for the same interaction replaces the cached
		// payload without re-announcing.
		existing.replaceData(payload)
		r.logger.Debug().Str("interaction_id", payload.InteractionID).Msg("reservation payload replaced")
		return
	}

	t := newTask(r.contact, r.calling, r.media, payload, r.logger)
	r.registry.Upsert(payload.InteractionID, t)

	r.mu.Lock()
	r.current = t
	r.mu.Unlock()

	r.logger.Info().Str("interaction_id", payload.InteractionID).Msg("contact reserved")
	r.tryAnnounce()
}

// tryAnnounce fires task:incoming exactly once per task, when the join
// condition holds.
func (r *Router) tryAnnounce() {
	r.mu.Lock()
	t := r.current
	joined := r.calling.LoginOption() != calling.LoginOptionBrowser || r.callArrived
	r.mu.Unlock()

	if t == nil || !joined {
		return
	}
	if !t.markAnnounced() {
		return
	}
	r.emit(Event{Type: EventIncoming, Task: t})
}

func (r *Router) transition(msg *event.Message, state State, evType EventType) {
	t := r.registry.Get(msg.InteractionID)
	if t == nil {
		r.logger.Warn().
			Str("interaction_id", msg.InteractionID).
			Str("event", string(msg.Kind)).
			Msg("event for unknown task, dropping")
		return
	}
	if payload, err := msg.Contact(); err == nil {
		t.replaceData(payload)
	}
	t.setState(state)
	r.emit(Event{Type: evType, Task: t})
}

func (r *Router) handleEnded(msg *event.Message) {
	t := r.registry.Get(msg.InteractionID)
	if t == nil {
		return
	}
	r.endTask(t)
	r.logger.Info().Str("interaction_id", msg.InteractionID).Msg("contact ended")
}

// EndAll force-ends every live task, used on logout and teardown.
func (r *Router) EndAll() {
	for _, t := range r.registry.All() {
		r.endTask(t)
	}
}

func (r *Router) endTask(t *Task) {
	t.setState(StateEnded)
	t.releaseAudio()
	r.registry.Remove(t.ID())

	r.mu.Lock()
	if r.current == t {
		r.current = nil
		r.callArrived = false
	}
	r.mu.Unlock()

	if r.calling.LoginOption() == calling.LoginOptionBrowser {
		r.calling.ClearCall()
	}
	r.emit(Event{Type: EventEnd, Task: t})
}

func (r *Router) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn().Str("event", string(ev.Type)).Msg("event channel full, dropping")
	}
}
