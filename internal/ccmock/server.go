// Package ccmock is a local development stand-in for the contact-center
// backend: it serves the notification channel, the agent/task API and the
// profile endpoint, and lets callers inject contact reservations. Used by
// the integration tests and the ccmock binary.
package ccmock

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/event"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local development server, all origins allowed.
		return true
	},
}

// Server fakes the contact-center backend for one agent session.
type Server struct {
	agentID string
	logger  zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	assigned map[string]bool

	router chi.Router
}

// NewServer creates a mock backend for the given agent id.
func NewServer(agentID string, logger zerolog.Logger) *Server {
	s := &Server{
		agentID:  agentID,
		logger:   logger.With().Str("component", "ccmock").Logger(),
		assigned: make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Get("/ws", s.handleSocket)
	r.Get("/organization/{orgID}/agent/{agentID}/config", s.handleProfile)
	r.Post("/v1/agents/login", s.notifyHandler(event.KindAgentStationLoginSuccess, ""))
	r.Post("/v1/agents/logout", s.notifyHandler(event.KindAgentLogoutSuccess, ""))
	r.Post("/v1/agents/reload", s.notifyHandler(event.KindAgentReloginSuccess, ""))
	r.Put("/v1/agents/session/state", s.notifyHandler(event.KindAgentStateChangeSuccess, ""))
	r.Post("/v1/agents/buddyList", s.handleBuddyAgents)
	r.Post("/v1/tasks/{interactionID}/accept", s.handleAccept)
	r.Post("/v1/tasks/{interactionID}/hold", s.taskHandler(event.KindAgentContactHeld))
	r.Post("/v1/tasks/{interactionID}/unhold", s.taskHandler(event.KindAgentContactUnheld))
	r.Post("/v1/tasks/{interactionID}/consult", s.handleConsult)
	r.Post("/v1/tasks/{interactionID}/consult/accept", s.taskHandler(event.KindAgentConsulting))
	r.Post("/v1/tasks/{interactionID}/transfer", s.handleTransfer)
	r.Post("/v1/tasks/{interactionID}/consult/transfer", s.taskHandler(event.KindAgentConsultTransferred))
	r.Post("/v1/tasks/{interactionID}/end", s.handleEnd)
	r.Post("/v1/tasks/{interactionID}/wrapup", s.taskHandler(event.KindAgentWrappedUp))
	r.Post("/v1/tasks/{interactionID}/cancelCtq", s.taskHandler(event.KindAgentCtqCancelled))
	r.Post("/v1/tasks/{interactionID}/record/pause", s.taskHandler(event.KindContactRecordingPaused))
	r.Post("/v1/tasks/{interactionID}/record/resume", s.taskHandler(event.KindContactRecordingResumed))
	r.Post("/internal/reserve", s.handleReserve)
	s.router = r

	return s
}

// Router returns the HTTP handler serving all mock endpoints.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleSocket upgrades the notification channel, consumes the subscribe
// request and pushes the welcome frame.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	// First client frame is the subscribe request.
	var sub map[string]any
	if err := conn.ReadJSON(&sub); err != nil {
		s.logger.Debug().Err(err).Msg("failed to read subscribe request")
		conn.Close()
		return
	}

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	welcome, _ := json.Marshal(map[string]any{
		"type": string(event.KindWelcome),
		"data": map[string]any{"agentId": s.agentID},
	})
	s.write(welcome)

	// Drain client frames so control messages keep flowing.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Push sends one notification event over the channel.
func (s *Server) Push(kind event.Kind, fields map[string]any) {
	data := map[string]any{
		"type":       string(kind),
		"agentId":    s.agentID,
		"trackingId": uuid.NewString(),
	}
	for k, v := range fields {
		data[k] = v
	}
	frame, _ := json.Marshal(map[string]any{
		"type": "RoutingMessage",
		"data": data,
	})
	s.write(frame)
}

// Reserve pushes a contact reservation for the interaction id.
func (s *Server) Reserve(interactionID string) {
	s.Push(event.KindAgentContactReserved, map[string]any{
		"interactionId": interactionID,
		"interaction": map[string]any{
			"interactionId": interactionID,
			"state":         "new",
			"mediaType":     "telephony",
		},
	})
}

func (s *Server) write(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		s.logger.Debug().Msg("no subscriber, dropping frame")
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Debug().Err(err).Msg("write error")
	}
}

// notifyHandler acknowledges the request and pushes the bound notification.
func (s *Server) notifyHandler(kind event.Kind, interactionID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields := map[string]any{}
		if interactionID != "" {
			fields["interactionId"] = interactionID
		}
		go s.Push(kind, fields)
		writeJSON(w, map[string]string{"status": "accepted"})
	}
}

// taskHandler acknowledges a task action and pushes its success notification
// scoped to the interaction id from the path.
func (s *Server) taskHandler(kind event.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interactionID := chi.URLParam(r, "interactionID")
		go s.Push(kind, map[string]any{"interactionId": interactionID})
		writeJSON(w, map[string]string{"status": "accepted"})
	}
}

// handleAccept marks the interaction assigned and pushes the confirmation.
func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	interactionID := chi.URLParam(r, "interactionID")

	s.mu.Lock()
	s.assigned[interactionID] = true
	s.mu.Unlock()

	go s.Push(event.KindAgentContactAssigned, map[string]any{"interactionId": interactionID})
	writeJSON(w, map[string]string{"status": "accepted"})
}

// handleEnd pushes the wrapup prompt for an assigned contact; ending a
// contact that was never accepted is a decline and terminates it outright.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	interactionID := chi.URLParam(r, "interactionID")

	s.mu.Lock()
	wasAssigned := s.assigned[interactionID]
	delete(s.assigned, interactionID)
	s.mu.Unlock()

	kind := event.KindContactEnded
	if wasAssigned {
		kind = event.KindAgentWrapup
	}
	go s.Push(kind, map[string]any{"interactionId": interactionID})
	writeJSON(w, map[string]string{"status": "accepted"})
}

// handleConsult confirms direct consults immediately. A consult to a queue
// stays queued with no confirmation until an agent picks up or the request
// is cancelled via cancelCtq.
func (s *Server) handleConsult(w http.ResponseWriter, r *http.Request) {
	interactionID := chi.URLParam(r, "interactionID")

	var req struct {
		DestinationType string `json:"destinationType"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	if req.DestinationType != "queue" {
		go s.Push(event.KindAgentConsultCreated, map[string]any{"interactionId": interactionID})
	}
	writeJSON(w, map[string]string{"status": "accepted"})
}

// handleTransfer distinguishes queue transfers from blind transfers by the
// destination type in the body, pushing the matching confirmation.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	interactionID := chi.URLParam(r, "interactionID")

	var req struct {
		DestinationType string `json:"destinationType"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	kind := event.KindAgentBlindTransferred
	if req.DestinationType == "queue" {
		kind = event.KindAgentVteamTransferred
	}
	go s.Push(kind, map[string]any{"interactionId": interactionID})
	writeJSON(w, map[string]string{"status": "accepted"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"agentProfileId": "profile-" + s.agentID,
		"agentName":      "Mock Agent",
		"teams": []map[string]string{
			{"id": "T1", "name": "Tier 1"},
			{"id": "T2", "name": "Tier 2"},
		},
		"loginVoiceOptions": []string{"BROWSER", "EXTENSION", "AGENT_DN"},
		"idleCodes": []map[string]any{
			{"id": "idle-1", "name": "Break"},
			{"id": "idle-2", "name": "Lunch"},
			{"id": "idle-3", "name": "Meeting"},
		},
		"wrapupCodes": []map[string]any{
			{"id": "wrap-1", "name": "Resolved", "isDefault": true},
		},
	})
}

func (s *Server) handleBuddyAgents(w http.ResponseWriter, r *http.Request) {
	go s.Push(event.KindBuddyAgents, map[string]any{
		"agentList": []map[string]string{
			{"agentId": "buddy-1", "agentName": "Buddy One", "state": "Available"},
		},
	})
	writeJSON(w, map[string]string{"status": "accepted"})
}

// handleReserve injects a reservation, the entry point for driving demo
// scenarios: POST {"interactionId": "..."}.
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InteractionID string `json:"interactionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.InteractionID == "" {
		req.InteractionID = uuid.NewString()
	}
	s.Reserve(req.InteractionID)
	writeJSON(w, map[string]string{"interactionId": req.InteractionID})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
