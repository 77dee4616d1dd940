package event

import "encoding/json"

// Kind identifies a notification type pushed on the agent event stream.
// The set is closed: frames carrying any other type string are treated as
// malformed and never reach subscribers.
type Kind string

const (
	// Connection lifecycle
	KindWelcome   Kind = "Welcome"
	KindKeepalive Kind = "Keepalive"

	// Contact lifecycle
	KindAgentContactReserved     Kind = "AgentContactReserved"
	KindAgentContactAssigned     Kind = "AgentContactAssigned"
	KindAgentContactAssignFailed Kind = "AgentContactAssignFailed"
	KindAgentContactEndFailed    Kind = "AgentContactEndFailed"
	KindContactEnded             Kind = "ContactEnded"
	KindAgentWrapup              Kind = "AgentWrapup"
	KindAgentWrappedUp           Kind = "AgentWrappedUp"
	KindAgentWrapupFailed        Kind = "AgentWrapupFailed"

	// Hold / resume
	KindAgentContactHeld         Kind = "AgentContactHeld"
	KindAgentContactUnheld       Kind = "AgentContactUnheld"
	KindAgentContactHoldFailed   Kind = "AgentContactHoldFailed"
	KindAgentContactUnholdFailed Kind = "AgentContactUnholdFailed"

	// Consult / consult-to-queue
	KindAgentConsultCreated  Kind = "AgentConsultCreated"
	KindAgentConsulting      Kind = "AgentConsulting"
	KindAgentConsultFailed   Kind = "AgentConsultFailed"
	KindAgentCtqFailed       Kind = "AgentCtqFailed"
	KindAgentCtqCancelled    Kind = "AgentCtqCancelled"
	KindAgentCtqCancelFailed Kind = "AgentCtqCancelFailed"

	// Transfers
	KindAgentBlindTransferred      Kind = "AgentBlindTransferredEvent"
	KindAgentBlindTransferFailed   Kind = "AgentBlindTransferFailedEvent"
	KindAgentVteamTransferred      Kind = "AgentVteamTransferred"
	KindAgentVteamTransferFailed   Kind = "AgentVteamTransferFailed"
	KindAgentConsultTransferred    Kind = "AgentConsultTransferred"
	KindAgentConsultTransferring   Kind = "AgentConsultTransferring"
	KindAgentConsultTransferFailed Kind = "AgentConsultTransferFailed"

	// Recording
	KindContactRecordingPaused       Kind = "ContactRecordingPaused"
	KindContactRecordingPauseFailed  Kind = "ContactRecordingPauseFailed"
	KindContactRecordingResumed      Kind = "ContactRecordingResumed"
	KindContactRecordingResumeFailed Kind = "ContactRecordingResumeFailed"

	// Agent session
	KindAgentStationLoginSuccess  Kind = "AgentStationLoginSuccess"
	KindAgentStationLoginFailed   Kind = "AgentStationLoginFailed"
	KindAgentLogoutSuccess        Kind = "AgentLogoutSuccess"
	KindAgentLogoutFailed         Kind = "AgentLogoutFailed"
	KindAgentReloginSuccess       Kind = "AgentReloginSuccess"
	KindAgentReloginFailed        Kind = "AgentReloginFailed"
	KindAgentStateChangeSuccess   Kind = "AgentStateChangeSuccess"
	KindAgentStateChangeFailed    Kind = "AgentStateChangeFailed"
	KindBuddyAgents               Kind = "BuddyAgents"
	KindBuddyAgentsRetrieveFailed Kind = "BuddyAgentsRetrieveFailed"
)

var knownKinds = map[Kind]struct{}{
	KindWelcome:                      {},
	KindKeepalive:                    {},
	KindAgentContactReserved:         {},
	KindAgentContactAssigned:         {},
	KindAgentContactAssignFailed:     {},
	KindAgentContactEndFailed:        {},
	KindContactEnded:                 {},
	KindAgentWrapup:                  {},
	KindAgentWrappedUp:               {},
	KindAgentWrapupFailed:            {},
	KindAgentContactHeld:             {},
	KindAgentContactUnheld:           {},
	KindAgentContactHoldFailed:       {},
	KindAgentContactUnholdFailed:     {},
	KindAgentConsultCreated:          {},
	KindAgentConsulting:              {},
	KindAgentConsultFailed:           {},
	KindAgentCtqFailed:               {},
	KindAgentCtqCancelled:            {},
	KindAgentCtqCancelFailed:         {},
	KindAgentBlindTransferred:        {},
	KindAgentBlindTransferFailed:     {},
	KindAgentVteamTransferred:        {},
	KindAgentVteamTransferFailed:     {},
	KindAgentConsultTransferred:      {},
	KindAgentConsultTransferring:     {},
	KindAgentConsultTransferFailed:   {},
	KindContactRecordingPaused:       {},
	KindContactRecordingPauseFailed:  {},
	KindContactRecordingResumed:      {},
	KindContactRecordingResumeFailed: {},
	KindAgentStationLoginSuccess:     {},
	KindAgentStationLoginFailed:      {},
	KindAgentLogoutSuccess:           {},
	KindAgentLogoutFailed:            {},
	KindAgentReloginSuccess:          {},
	KindAgentReloginFailed:           {},
	KindAgentStateChangeSuccess:      {},
	KindAgentStateChangeFailed:       {},
	KindBuddyAgents:                  {},
	KindBuddyAgentsRetrieveFailed:    {},
}

// Known reports whether k is part of the recognized event set.
func Known(k Kind) bool {
	_, ok := knownKinds[k]
	return ok
}

// Envelope is the wire shape of one frame on the event stream:
// {"type": "RoutingMessage", "keepalive": false, "data": {"type": ..., ...}}
type Envelope struct {
	Type      string          `json:"type"`
	Keepalive bool            `json:"keepalive,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Message is one decoded notification. Raw carries the full data payload so
// consumers can unmarshal the event-specific shape they care about.
type Message struct {
	Kind          Kind
	InteractionID string
	AgentID       string
	OrgID         string
	TrackingID    string
	Raw           json.RawMessage
}

// body is the common subset every data payload shares.
type body struct {
	Type          Kind   `json:"type"`
	InteractionID string `json:"interactionId,omitempty"`
	AgentID       string `json:"agentId,omitempty"`
	OrgID         string `json:"orgId,omitempty"`
	TrackingID    string `json:"trackingId,omitempty"`
}

// CallDetails is the routing metadata attached to a contact.
type CallDetails struct {
	ANI             string `json:"ani,omitempty"`
	DisplayANI      string `json:"displayAni,omitempty"`
	DNIS            string `json:"dnis,omitempty"`
	QueueID         string `json:"QueueId,omitempty"`
	CustomerName    string `json:"customerName,omitempty"`
	VirtualTeamName string `json:"virtualTeamName,omitempty"`
	RonaTimeout     string `json:"ronaTimeout,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Interaction is the raw contact payload carried by lifecycle events.
type Interaction struct {
	InteractionID string              `json:"interactionId"`
	OrgID         string              `json:"orgId,omitempty"`
	State         string              `json:"state,omitempty"`
	MediaType     string              `json:"mediaType,omitempty"`
	MediaChannel  string              `json:"mediaChannel,omitempty"`
	Owner         string              `json:"owner,omitempty"`
	IsTerminated  bool                `json:"isTerminated,omitempty"`
	Participants  map[string]any      `json:"participants,omitempty"`
	CallDetails   CallDetails         `json:"callProcessingDetails,omitempty"`
	Media         map[string]MediaRef `json:"media,omitempty"`
}

// MediaRef describes one media leg of an interaction.
type MediaRef struct {
	MediaResourceID string   `json:"mediaResourceId"`
	MediaType       string   `json:"mediaType,omitempty"`
	Participants    []string `json:"participants,omitempty"`
	IsHold          bool     `json:"isHold,omitempty"`
}

// AgentContact is the payload shape of contact lifecycle notifications.
type AgentContact struct {
	Type            Kind         `json:"type"`
	EventType       string       `json:"eventType,omitempty"`
	AgentID         string       `json:"agentId,omitempty"`
	InteractionID   string       `json:"interactionId"`
	OrgID           string       `json:"orgId,omitempty"`
	TrackingID      string       `json:"trackingId,omitempty"`
	MediaResourceID string       `json:"mediaResourceId,omitempty"`
	DestinationType string       `json:"destinationType,omitempty"`
	Owner           string       `json:"owner,omitempty"`
	QueueName       string       `json:"queueName,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	ReasonCode      json.Number  `json:"reasonCode,omitempty"`
	RonaTimeout     int          `json:"ronaTimeout,omitempty"`
	Interaction     *Interaction `json:"interaction,omitempty"`
}

// Welcome is the payload of the first frame after subscribing.
type Welcome struct {
	AgentID string `json:"agentId"`
}
