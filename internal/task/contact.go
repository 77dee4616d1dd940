package task

import (
	"context"
	"net/http"

	"github.com/centrivo/agentcc/internal/correlator"
	"github.com/centrivo/agentcc/internal/event"
)

const (
	taskAPI             = "/v1/tasks/"
	pathAccept          = "/accept"
	pathHold            = "/hold"
	pathUnhold          = "/unhold"
	pathConsult         = "/consult"
	pathConsultAccept   = "/consult/accept"
	pathTransfer        = "/transfer"
	pathConsultTransfer = "/consult/transfer"
	pathPauseRecording  = "/record/pause"
	pathResumeRecording = "/record/resume"
	pathEnd             = "/end"
	pathWrapup          = "/wrapup"
	pathCancelCtq       = "/cancelCtq"
)

// DestinationType is where a consult or transfer is directed.
type DestinationType string

const (
	DestinationQueue      DestinationType = "queue"
	DestinationDialNumber DestinationType = "dialNumber"
	DestinationAgent      DestinationType = "agent"
)

// HoldResumePayload targets the media leg to hold or resume.
type HoldResumePayload struct {
	MediaResourceID string `json:"mediaResourceId"`
}

// ResumeRecordingPayload controls how recording resumes.
type ResumeRecordingPayload struct {
	AutoResumed bool `json:"autoResumed"`
}

// ConsultPayload starts a consultation with an agent, dial number or queue.
type ConsultPayload struct {
	To               string          `json:"to,omitempty"`
	DestinationType  DestinationType `json:"destinationType"`
	HoldParticipants *bool           `json:"holdParticipants,omitempty"`
}

// TransferPayload moves the contact to another destination.
type TransferPayload struct {
	To              string          `json:"to"`
	DestinationType DestinationType `json:"destinationType"`
}

// WrapupPayload closes out a contact with a disposition.
type WrapupPayload struct {
	WrapUpReason string `json:"wrapUpReason"`
	AuxCodeID    string `json:"auxCodeId"`
}

// CancelCtqPayload cancels a pending consult-to-queue request.
type CancelCtqPayload struct {
	AgentID string `json:"agentId"`
	QueueID string `json:"queueId"`
}

// Contact issues correlated task actions against the task API. Every method
// blocks until the bound notification settles the request.
type Contact struct {
	aqm *correlator.Correlator
}

// NewContact creates the task action layer.
func NewContact(aqm *correlator.Correlator) *Contact {
	return &Contact{aqm: aqm}
}

func (c *Contact) send(ctx context.Context, def correlator.Def) (*event.AgentContact, error) {
	msg, err := c.aqm.Send(ctx, def)
	if err != nil {
		return nil, err
	}
	return msg.Contact()
}

// Accept accepts an incoming task. Resolution is the server's assignment
// confirmation.
func (c *Contact) Accept(ctx context.Context, interactionID string) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.accept",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathAccept,
		Body:          struct{}{},
		Success:       []event.Kind{event.KindAgentContactAssigned},
		Failure:       []event.Kind{event.KindAgentContactAssignFailed},
	})
}

// Hold places the contact's media leg on hold.
func (c *Contact) Hold(ctx context.Context, interactionID string, payload HoldResumePayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.hold",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathHold,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentContactHeld},
		Failure:       []event.Kind{event.KindAgentContactHoldFailed},
	})
}

// Unhold resumes a held media leg.
func (c *Contact) Unhold(ctx context.Context, interactionID string, payload HoldResumePayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.unhold",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathUnhold,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentContactUnheld},
		Failure:       []event.Kind{event.KindAgentContactUnholdFailed},
	})
}

// PauseRecording pauses call recording.
func (c *Contact) PauseRecording(ctx context.Context, interactionID string) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.pauseRecording",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathPauseRecording,
		Body:          struct{}{},
		Success:       []event.Kind{event.KindContactRecordingPaused},
		Failure:       []event.Kind{event.KindContactRecordingPauseFailed},
	})
}

// ResumeRecording resumes call recording.
func (c *Contact) ResumeRecording(ctx context.Context, interactionID string, payload ResumeRecordingPayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.resumeRecording",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathResumeRecording,
		Body:          payload,
		Success:       []event.Kind{event.KindContactRecordingResumed},
		Failure:       []event.Kind{event.KindContactRecordingResumeFailed},
	})
}

// Consult starts a consultation. Consult-to-queue disables the notification
// window: the request stays pending until created, failed or explicitly
// cancelled via CancelCtq.
func (c *Contact) Consult(ctx context.Context, interactionID string, payload ConsultPayload) (*event.AgentContact, error) {
	def := correlator.Def{
		Op:            "task.consult",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathConsult,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentConsultCreated},
		Failure:       []event.Kind{event.KindAgentConsultFailed},
	}
	if payload.DestinationType == DestinationQueue {
		def.Timeout = correlator.NoTimeout
		def.Failure = []event.Kind{event.KindAgentCtqFailed}
		def.Cancel = event.KindAgentCtqCancelled
	}
	return c.send(ctx, def)
}

// ConsultAccept accepts an incoming consult on this agent's side.
func (c *Contact) ConsultAccept(ctx context.Context, interactionID string) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.consultAccept",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathConsultAccept,
		Body:          struct{}{},
		Success:       []event.Kind{event.KindAgentConsulting},
		Failure:       []event.Kind{event.KindAgentContactAssignFailed},
	})
}

// BlindTransfer transfers the contact without consultation.
func (c *Contact) BlindTransfer(ctx context.Context, interactionID string, payload TransferPayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.blindTransfer",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathTransfer,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentBlindTransferred},
		Failure:       []event.Kind{event.KindAgentBlindTransferFailed},
	})
}

// VteamTransfer transfers the contact to another queue.
func (c *Contact) VteamTransfer(ctx context.Context, interactionID string, payload TransferPayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.vteamTransfer",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathTransfer,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentVteamTransferred},
		Failure:       []event.Kind{event.KindAgentVteamTransferFailed},
	})
}

// ConsultTransfer completes a transfer to the consulted destination.
func (c *Contact) ConsultTransfer(ctx context.Context, interactionID string, payload TransferPayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.consultTransfer",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathConsultTransfer,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentConsultTransferred, event.KindAgentConsultTransferring},
		Failure:       []event.Kind{event.KindAgentConsultTransferFailed},
	})
}

// End ends an assigned contact; the agent then moves to wrapup.
func (c *Contact) End(ctx context.Context, interactionID string) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.end",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathEnd,
		Body:          struct{}{},
		Success:       []event.Kind{event.KindAgentWrapup},
		Failure:       []event.Kind{event.KindAgentContactEndFailed},
	})
}

// Wrapup records the disposition and releases the contact.
func (c *Contact) Wrapup(ctx context.Context, interactionID string, payload WrapupPayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.wrapup",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathWrapup,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentWrappedUp},
		Failure:       []event.Kind{event.KindAgentWrapupFailed},
	})
}

// CancelTask declines a task that was offered but not yet accepted.
func (c *Contact) CancelTask(ctx context.Context, interactionID string) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.cancel",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathEnd,
		Body:          struct{}{},
		Success:       []event.Kind{event.KindContactEnded},
		Failure:       []event.Kind{event.KindAgentContactEndFailed},
	})
}

// CancelCtq cancels a pending consult-to-queue. Its success notification also
// settles the original consult request.
func (c *Contact) CancelCtq(ctx context.Context, interactionID string, payload CancelCtqPayload) (*event.AgentContact, error) {
	return c.send(ctx, correlator.Def{
		Op:            "task.cancelCtq",
		InteractionID: interactionID,
		Method:        http.MethodPost,
		Path:          taskAPI + interactionID + pathCancelCtq,
		Body:          payload,
		Success:       []event.Kind{event.KindAgentCtqCancelled},
		Failure:       []event.Kind{event.KindAgentCtqCancelFailed},
	})
}
