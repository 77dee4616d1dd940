package task

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/calling"
	"github.com/centrivo/agentcc/internal/correlator"
	"github.com/centrivo/agentcc/internal/event"
)

// State is the lifecycle phase of a task.
type State string

const (
	StateReserved     State = "reserved"
	StateIncoming     State = "incoming"
	StateAssigned     State = "assigned"
	StateHeld         State = "held"
	StateConsulting   State = "consulting"
	StateTransferring State = "transferring"
	StateWrapup       State = "wrapup"
	StateEnded        State = "ended"
)

// Task is one interaction routed to the agent. The login mode decides which
// accept/decline pathway is legal: browser mode drives the local call leg,
// every other mode goes through the correlated task API.
type Task struct {
	contact *Contact
	calling *calling.Service
	media   calling.MediaProvider
	logger  zerolog.Logger

	mu        sync.Mutex
	data      *event.AgentContact
	state     State
	announced bool
	audio     calling.MediaStream
}

func newTask(contact *Contact, callingSvc *calling.Service, media calling.MediaProvider, data *event.AgentContact, logger zerolog.Logger) *Task {
	return &Task{
		contact: contact,
		calling: callingSvc,
		media:   media,
		data:    data,
		state:   StateReserved,
		logger:  logger.With().Str("interaction_id", data.InteractionID).Logger(),
	}
}

// ID returns the interaction id.
func (t *Task) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.InteractionID
}

// State returns the current lifecycle phase.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Data returns the latest raw interaction payload.
func (t *Task) Data() *event.AgentContact {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// replaceData applies a later payload for the same interaction,
// last-writer-wins.
func (t *Task) replaceData(data *event.AgentContact) {
	t.mu.Lock()
	t.data = data
	t.mu.Unlock()
}

func (t *Task) markAnnounced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.announced {
		return false
	}
	t.announced = true
	t.state = StateIncoming
	return true
}

// Accept accepts the incoming task. In browser mode this acquires a local
// microphone stream and answers the call; resolution means the answer was
// issued, not that media flows. In every other mode it is a correlated
// accept request resolved by the assignment confirmation.
func (t *Task) Accept(ctx context.Context) error {
	id := t.ID()

	if t.calling.LoginOption() == calling.LoginOptionBrowser {
		t.mu.Lock()
		if t.audio != nil {
			t.mu.Unlock()
			return correlator.ErrRequestPending
		}
		t.mu.Unlock()

		stream, err := t.media.MicrophoneStream(ctx)
		if err != nil {
			return &correlator.OpError{
				Kind:   correlator.KindLocalMedia,
				Op:     "task.accept",
				Reason: "microphone acquisition failed",
				Err:    err,
			}
		}
		if err := t.calling.AnswerCall(stream, id); err != nil {
			stream.Stop()
			return &correlator.OpError{
				Kind:   correlator.KindLocalMedia,
				Op:     "task.accept",
				Reason: "answer failed",
				Err:    err,
			}
		}
		t.mu.Lock()
		prev := t.audio
		t.audio = stream
		t.mu.Unlock()
		if prev != nil {
			prev.Stop()
		}
		return nil
	}

	if _, err := t.contact.Accept(ctx, id); err != nil {
		return err
	}
	return nil
}

// Decline declines the incoming task. Browser mode ends the local call;
// other modes issue a correlated cancel request.
func (t *Task) Decline(ctx context.Context) error {
	id := t.ID()

	if t.calling.LoginOption() == calling.LoginOptionBrowser {
		if err := t.calling.DeclineCall(id); err != nil {
			return &correlator.OpError{
				Kind:   correlator.KindLocalMedia,
				Op:     "task.decline",
				Reason: "decline failed",
				Err:    err,
			}
		}
		return nil
	}

	if _, err := t.contact.CancelTask(ctx, id); err != nil {
		return err
	}
	return nil
}

// Hold places the task's media leg on hold.
func (t *Task) Hold(ctx context.Context) error {
	_, err := t.contact.Hold(ctx, t.ID(), HoldResumePayload{MediaResourceID: t.mediaResourceID()})
	return err
}

// Resume takes the task's media leg off hold.
func (t *Task) Resume(ctx context.Context) error {
	_, err := t.contact.Unhold(ctx, t.ID(), HoldResumePayload{MediaResourceID: t.mediaResourceID()})
	return err
}

// Consult starts a consultation with the given destination.
func (t *Task) Consult(ctx context.Context, payload ConsultPayload) error {
	_, err := t.contact.Consult(ctx, t.ID(), payload)
	return err
}

// CancelConsultToQueue cancels a pending consult-to-queue request.
func (t *Task) CancelConsultToQueue(ctx context.Context, agentID, queueID string) error {
	_, err := t.contact.CancelCtq(ctx, t.ID(), CancelCtqPayload{AgentID: agentID, QueueID: queueID})
	return err
}

// ConsultAccept accepts an incoming consult on this agent's side.
func (t *Task) ConsultAccept(ctx context.Context) error {
	_, err := t.contact.ConsultAccept(ctx, t.ID())
	return err
}

// BlindTransfer transfers the contact without consultation.
func (t *Task) BlindTransfer(ctx context.Context, payload TransferPayload) error {
	_, err := t.contact.BlindTransfer(ctx, t.ID(), payload)
	return err
}

// VteamTransfer transfers the contact to another queue.
func (t *Task) VteamTransfer(ctx context.Context, payload TransferPayload) error {
	_, err := t.contact.VteamTransfer(ctx, t.ID(), payload)
	return err
}

// ConsultTransfer completes a transfer to the consulted destination.
func (t *Task) ConsultTransfer(ctx context.Context, payload TransferPayload) error {
	_, err := t.contact.ConsultTransfer(ctx, t.ID(), payload)
	return err
}

// End ends the assigned contact.
func (t *Task) End(ctx context.Context) error {
	_, err := t.contact.End(ctx, t.ID())
	return err
}

// Wrapup closes out the contact with a disposition.
func (t *Task) Wrapup(ctx context.Context, payload WrapupPayload) error {
	_, err := t.contact.Wrapup(ctx, t.ID(), payload)
	return err
}

// PauseRecording pauses recording on the contact.
func (t *Task) PauseRecording(ctx context.Context) error {
	_, err := t.contact.PauseRecording(ctx, t.ID())
	return err
}

// ResumeRecording resumes recording on the contact.
func (t *Task) ResumeRecording(ctx context.Context, autoResumed bool) error {
	_, err := t.contact.ResumeRecording(ctx, t.ID(), ResumeRecordingPayload{AutoResumed: autoResumed})
	return err
}

// ToggleMute toggles mute on the local call leg. Only meaningful in browser
// mode after a successful Accept.
func (t *Task) ToggleMute() error {
	t.mu.Lock()
	stream := t.audio
	t.mu.Unlock()

	if stream == nil {
		return calling.ErrNoActiveCall
	}
	return t.calling.MuteCall(stream)
}

// IsMuted reports the mute state of the local call leg.
func (t *Task) IsMuted() bool {
	return t.calling.IsCallMuted()
}

// releaseAudio stops the scoped capture stream if one is held.
func (t *Task) releaseAudio() {
	t.mu.Lock()
	stream := t.audio
	t.audio = nil
	t.mu.Unlock()

	if stream != nil {
		stream.Stop()
		t.logger.Debug().Msg("released local audio stream")
	}
}

func (t *Task) mediaResourceID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.data.MediaResourceID != "" {
		return t.data.MediaResourceID
	}
	if t.data.Interaction != nil {
		if ref, ok := t.data.Interaction.Media[t.data.InteractionID]; ok {
			return ref.MediaResourceID
		}
	}
	return ""
}
