// Package control exposes a local HTTP surface for driving the agent
// session from tooling: register, station login and logout, state changes
// and per-task accept or decline.
package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/task"
	"github.com/centrivo/agentcc/pkg/ccclient"
	"github.com/centrivo/agentcc/pkg/middleware"
)

// API provides the HTTP control interface for one agent session.
type API struct {
	client         *ccclient.Client
	logger         zerolog.Logger
	allowedOrigins []string
	requestTimeout time.Duration
}

// NewAPI creates a control API around the client.
func NewAPI(client *ccclient.Client, allowedOrigins []string, requestTimeout time.Duration, logger zerolog.Logger) *API {
	return &API{
		client:         client,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		requestTimeout: requestTimeout,
	}
}

// SetupRoutes configures HTTP routes
func (api *API) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/health", api.healthHandler).Methods("GET")
	router.HandleFunc("/register", api.registerHandler).Methods("POST")
	router.HandleFunc("/login", api.loginHandler).Methods("POST")
	router.HandleFunc("/logout", api.logoutHandler).Methods("POST")
	router.HandleFunc("/relogin", api.reloginHandler).Methods("POST")
	router.HandleFunc("/state", api.stateHandler).Methods("PUT")
	router.HandleFunc("/buddy-agents", api.buddyAgentsHandler).Methods("GET")
	router.HandleFunc("/tasks", api.tasksHandler).Methods("GET")
	router.HandleFunc("/tasks/{id}/accept", api.acceptHandler).Methods("POST")
	router.HandleFunc("/tasks/{id}/decline", api.declineHandler).Methods("POST")
}

func (api *API) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), api.requestTimeout)
}

// healthHandler returns service health
func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// registerHandler opens the notification channel and fetches the agent profile
func (api *API) registerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.opCtx()
	defer cancel()

	profile, err := api.client.Register(ctx)
	if err != nil {
		api.logger.Error().Err(err).Msg("register failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// loginHandler signs the agent into a station
func (api *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID      string `json:"teamId"`
		LoginOption string `json:"loginOption"`
		DialNumber  string `json:"dialNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := api.opCtx()
	defer cancel()

	err := api.client.StationLogin(ctx, ccclient.AgentLogin{
		TeamID:      req.TeamID,
		LoginOption: ccclient.LoginOption(req.LoginOption),
		DialNumber:  req.DialNumber,
	})
	if err != nil {
		api.logger.Error().Err(err).Msg("station login failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in"})
}

// logoutHandler signs the agent out of the station
func (api *API) logoutHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "User requested logout"
	}

	ctx, cancel := api.opCtx()
	defer cancel()

	if err := api.client.StationLogout(ctx, req.Reason); err != nil {
		api.logger.Error().Err(err).Msg("station logout failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// reloginHandler re-establishes the previous station session
func (api *API) reloginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.opCtx()
	defer cancel()

	if err := api.client.StationReLogin(ctx); err != nil {
		api.logger.Error().Err(err).Msg("station relogin failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "relogin confirmed"})
}

// stateHandler changes agent availability
func (api *API) stateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State     string `json:"state"`
		AuxCodeID string `json:"auxCodeId"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := api.opCtx()
	defer cancel()

	err := api.client.SetAgentState(ctx, ccclient.StateChange{
		State:     req.State,
		AuxCodeID: req.AuxCodeID,
		Reason:    req.Reason,
	})
	if err != nil {
		api.logger.Error().Err(err).Msg("state change failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "state changed"})
}

// buddyAgentsHandler lists agents available for consult or transfer
func (api *API) buddyAgentsHandler(w http.ResponseWriter, r *http.Request) {
	mediaType := r.URL.Query().Get("mediaType")
	if mediaType == "" {
		mediaType = "telephony"
	}

	ctx, cancel := api.opCtx()
	defer cancel()

	agents, err := api.client.GetBuddyAgents(ctx, mediaType)
	if err != nil {
		api.logger.Error().Err(err).Msg("buddy agents lookup failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// tasksHandler returns a snapshot of live tasks
func (api *API) tasksHandler(w http.ResponseWriter, r *http.Request) {
	type taskView struct {
		InteractionID string     `json:"interactionId"`
		State         task.State `json:"state"`
	}

	tasks := api.client.Tasks()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView{InteractionID: t.ID(), State: t.State()})
	}
	writeJSON(w, http.StatusOK, views)
}

// acceptHandler accepts the task in the path
func (api *API) acceptHandler(w http.ResponseWriter, r *http.Request) {
	api.taskOp(w, r, api.client.AcceptTask, "accepted")
}

// declineHandler declines the task in the path
func (api *API) declineHandler(w http.ResponseWriter, r *http.Request) {
	api.taskOp(w, r, api.client.DeclineTask, "declined")
}

func (api *API) taskOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error, verb string) {
	taskID := mux.Vars(r)["id"]

	ctx, cancel := api.opCtx()
	defer cancel()

	if err := op(ctx, taskID); err != nil {
		if err == ccclient.ErrTaskNotFound {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		api.logger.Error().Err(err).Str("task_id", taskID).Msg("task operation failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "task " + verb, "taskId": taskID})
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (api *API) Start(ctx context.Context, addr string) error {
	router := mux.NewRouter()
	api.SetupRoutes(router)

	handler := middleware.Logger(api.logger)(middleware.CORS(api.allowedOrigins)(router))

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		api.logger.Info().Msg("shutting down control API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	api.logger.Info().Str("addr", addr).Msg("control API started")
	return server.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
