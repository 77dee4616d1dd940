// Package agent issues the correlated session-level actions: station
// login/logout/relogin, state changes and buddy-agent lookups.
package agent

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/calling"
	"github.com/centrivo/agentcc/internal/correlator"
	"github.com/centrivo/agentcc/internal/event"
)

const (
	agentAPI        = "/v1/agents"
	pathLogin       = agentAPI + "/login"
	pathLogout      = agentAPI + "/logout"
	pathReload      = agentAPI + "/reload"
	pathStateChange = agentAPI + "/session/state"
	pathBuddyAgents = agentAPI + "/buddyList"
)

// AgentState values accepted by the state-change API.
const (
	StateAvailable = "Available"
	StateIdle      = "Idle"
)

// LoginRequest is the station login payload.
type LoginRequest struct {
	DialNumber  string              `json:"dialNumber"`
	TeamID      string              `json:"teamId"`
	DeviceType  calling.LoginOption `json:"deviceType"`
	IsExtension bool                `json:"isExtension"`
	DeviceID    string              `json:"deviceId"`
	Roles       []string            `json:"roles"`
	TeamName    string              `json:"teamName"`
	SiteID      string              `json:"siteId"`
	UsesOtherDN bool                `json:"usesOtherDN"`
	AuxCodeID   string              `json:"auxCodeId"`
}

// LogoutRequest carries the reason the agent signs out.
type LogoutRequest struct {
	LogoutReason string `json:"logoutReason"`
}

// StateChangeRequest moves the agent between Available and an idle state.
type StateChangeRequest struct {
	State                 string `json:"state"`
	AuxCodeID             string `json:"auxCodeId"`
	LastStateChangeReason string `json:"lastStateChangeReason,omitempty"`
	AgentID               string `json:"agentId"`
}

// BuddyAgentsRequest filters the buddy-agent lookup.
type BuddyAgentsRequest struct {
	AgentProfileID string `json:"agentProfileId"`
	MediaType      string `json:"mediaType"`
	State          string `json:"state,omitempty"`
}

// BuddyAgent is one entry of the buddy-agent list.
type BuddyAgent struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	State     string `json:"state"`
	TeamID    string `json:"teamId,omitempty"`
	SiteID    string `json:"siteId,omitempty"`
	DN        string `json:"dn,omitempty"`
}

// Service issues correlated agent-session requests.
type Service struct {
	aqm    *correlator.Correlator
	logger zerolog.Logger
}

// NewService creates the agent action layer.
func NewService(aqm *correlator.Correlator, logger zerolog.Logger) *Service {
	return &Service{
		aqm:    aqm,
		logger: logger.With().Str("component", "agent").Logger(),
	}
}

// StationLogin signs the agent into a station. Resolution is the server's
// login confirmation on the event stream.
func (s *Service) StationLogin(ctx context.Context, req LoginRequest) (*event.Message, error) {
	return s.aqm.Send(ctx, correlator.Def{
		Op:      "agent.stationLogin",
		Method:  http.MethodPost,
		Path:    pathLogin,
		Body:    req,
		Success: []event.Kind{event.KindAgentStationLoginSuccess},
		Failure: []event.Kind{event.KindAgentStationLoginFailed},
	})
}

// Logout signs the agent out of the station.
func (s *Service) Logout(ctx context.Context, req LogoutRequest) (*event.Message, error) {
	return s.aqm.Send(ctx, correlator.Def{
		Op:      "agent.logout",
		Method:  http.MethodPost,
		Path:    pathLogout,
		Body:    req,
		Success: []event.Kind{event.KindAgentLogoutSuccess},
		Failure: []event.Kind{event.KindAgentLogoutFailed},
	})
}

// ReLogin re-establishes the previous station session.
func (s *Service) ReLogin(ctx context.Context) (*event.Message, error) {
	return s.aqm.Send(ctx, correlator.Def{
		Op:      "agent.reLogin",
		Method:  http.MethodPost,
		Path:    pathReload,
		Body:    struct{}{},
		Success: []event.Kind{event.KindAgentReloginSuccess},
		Failure: []event.Kind{event.KindAgentReloginFailed},
	})
}

// StateChange sets the agent's availability state.
func (s *Service) StateChange(ctx context.Context, req StateChangeRequest) (*event.Message, error) {
	return s.aqm.Send(ctx, correlator.Def{
		Op:      "agent.stateChange",
		Method:  http.MethodPut,
		Path:    pathStateChange,
		Body:    req,
		Success: []event.Kind{event.KindAgentStateChangeSuccess},
		Failure: []event.Kind{event.KindAgentStateChangeFailed},
	})
}

// BuddyAgents returns the agents this agent can consult or transfer to.
func (s *Service) BuddyAgents(ctx context.Context, req BuddyAgentsRequest) ([]BuddyAgent, error) {
	msg, err := s.aqm.Send(ctx, correlator.Def{
		Op:      "agent.buddyAgents",
		Method:  http.MethodPost,
		Path:    pathBuddyAgents,
		Body:    req,
		Success: []event.Kind{event.KindBuddyAgents},
		Failure: []event.Kind{event.KindBuddyAgentsRetrieveFailed},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		AgentList []BuddyAgent `json:"agentList"`
	}
	if err := json.Unmarshal(msg.Raw, &payload); err != nil {
		return nil, err
	}
	return payload.AgentList, nil
}
