// Package ccclient is the agent-facing API of the contact-center client:
// register, station login/logout, state changes, buddy agents and per-task
// accept/decline, backed by the correlated request layer and the task
// router.
package ccclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/agent"
	"github.com/centrivo/agentcc/internal/calling"
	"github.com/centrivo/agentcc/internal/correlator"
	"github.com/centrivo/agentcc/internal/event"
	"github.com/centrivo/agentcc/internal/socket"
	"github.com/centrivo/agentcc/internal/task"
)

// LoginOption is re-exported for callers.
type LoginOption = calling.LoginOption

const (
	LoginOptionBrowser   = calling.LoginOptionBrowser
	LoginOptionExtension = calling.LoginOptionExtension
	LoginOptionAgentDN   = calling.LoginOptionAgentDN
)

const (
	defaultClientType = "agentcc"
	agentRole         = "agent"
	webRTCPrefix      = "webrtc-"
)

var (
	// ErrNotRegistered is returned when an operation requires a prior
	// successful Register call.
	ErrNotRegistered = errors.New("client is not registered")
	// ErrDialNumberRequired is returned when extension or dial-number login
	// is attempted without a dial number.
	ErrDialNumberRequired = errors.New("dial number is required for this login option")
	// ErrTaskNotFound is returned for operations on unknown interaction ids.
	ErrTaskNotFound = errors.New("no task with this interaction id")
)

// Config configures the client.
type Config struct {
	// GatewayURL is the base URL of the agent/task API gateway.
	GatewayURL string
	// NotifURL is the notification channel endpoint.
	NotifURL string
	// AccessToken authenticates the agent. Its claims carry the org id.
	AccessToken string
	// ClientType identifies this client on the subscribe request.
	ClientType string
}

// Stream is the notification channel the client consumes. Implemented by
// the socket manager; tests substitute fakes.
type Stream interface {
	Subscribe(ctx context.Context, req socket.SubscribeRequest) (*event.Welcome, error)
	Frames() <-chan []byte
	Close()
}

// ProfileLoader fetches the agent profile after registration.
type ProfileLoader interface {
	Fetch(ctx context.Context, orgID, agentID string) (*agent.Profile, error)
}

// Options injects collaborators. Zero-value fields get defaults built from
// Config; Line and Media are required only for browser login.
type Options struct {
	Stream    Stream
	Requester correlator.Requester
	Profiles  ProfileLoader
	Line      calling.Line
	Media     calling.MediaProvider
}

// AgentLogin is the station login request.
type AgentLogin struct {
	TeamID      string
	LoginOption LoginOption
	DialNumber  string
}

// StateChange sets the agent's availability.
type StateChange struct {
	State     string
	AuxCodeID string
	Reason    string
}

// Client is the top-level agent session.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	stream     Stream
	dispatcher *event.Dispatcher
	aqm        *correlator.Correlator
	callingSvc *calling.Service
	agentSvc   *agent.Service
	router     *task.Router
	registry   *task.Registry
	profiles   ProfileLoader

	bgCancel context.CancelFunc

	mu          sync.Mutex
	profile     *agent.Profile
	loginOption LoginOption
	registered  bool
}

// New builds a client from config and options.
func New(cfg Config, opts Options, logger zerolog.Logger) *Client {
	if cfg.ClientType == "" {
		cfg.ClientType = defaultClientType
	}

	stream := opts.Stream
	if stream == nil {
		stream = socket.NewManager(cfg.NotifURL, cfg.AccessToken, logger)
	}
	requester := opts.Requester
	if requester == nil {
		requester = correlator.NewHTTPRequester(cfg.GatewayURL, cfg.AccessToken)
	}
	profiles := opts.Profiles
	if profiles == nil {
		profiles = agent.NewProfileFetcher(cfg.GatewayURL, cfg.AccessToken)
	}

	aqm := correlator.New(requester, logger)
	callingSvc := calling.NewService(opts.Line, logger)
	registry := task.NewRegistry()
	router := task.NewRouter(task.NewContact(aqm), callingSvc, opts.Media, registry, logger)

	dispatcher := event.NewDispatcher(logger)
	dispatcher.Register(aqm.HandleMessage)
	dispatcher.Register(router.HandleMessage)

	return &Client{
		cfg:        cfg,
		logger:     logger.With().Str("component", "ccclient").Logger(),
		stream:     stream,
		dispatcher: dispatcher,
		aqm:        aqm,
		callingSvc: callingSvc,
		agentSvc:   agent.NewService(aqm, logger),
		router:     router,
		registry:   registry,
		profiles:   profiles,
	}
}

// Register opens the notification channel, resolves the agent identity from
// the welcome event and token claims, and fetches the agent profile.
func (c *Client) Register(ctx context.Context) (*agent.Profile, error) {
	welcome, err := c.stream.Subscribe(ctx, socket.SubscribeRequest{
		Force:           true,
		ClientType:      c.cfg.ClientType,
		AllowMultiLogin: true,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	c.bgCancel = cancel
	go c.dispatcher.Run(bgCtx, c.stream.Frames())
	go c.router.Run(bgCtx)

	orgID := orgIDFromToken(c.cfg.AccessToken)
	profile, err := c.profiles.Fetch(ctx, orgID, welcome.AgentID)
	if err != nil {
		return nil, fmt.Errorf("fetch agent profile: %w", err)
	}

	c.mu.Lock()
	c.profile = profile
	c.registered = true
	c.mu.Unlock()

	c.logger.Info().
		Str("agent_id", profile.AgentID).
		Int("teams", len(profile.Teams)).
		Msg("agent registered")
	return profile, nil
}

// StationLogin signs the agent into a station. Browser mode registers the
// local calling line before issuing the login request; other modes require
// a dial number.
func (c *Client) StationLogin(ctx context.Context, login AgentLogin) error {
	profile, err := c.currentProfile()
	if err != nil {
		return err
	}

	dialNumber := login.DialNumber
	switch login.LoginOption {
	case LoginOptionBrowser:
		// Browser mode ignores any supplied dial number.
		dialNumber = profile.AgentID
	case LoginOptionExtension, LoginOptionAgentDN:
		if dialNumber == "" {
			return ErrDialNumberRequired
		}
	default:
		return fmt.Errorf("unknown login option %q", login.LoginOption)
	}

	// Non-browser modes have no local media leg; Register then only records
	// the mode so task accept/decline picks the correlated path.
	if err := c.callingSvc.Register(ctx, login.LoginOption); err != nil {
		return fmt.Errorf("register calling line: %w", err)
	}

	_, err = c.agentSvc.StationLogin(ctx, agent.LoginRequest{
		DialNumber:  dialNumber,
		TeamID:      login.TeamID,
		DeviceType:  login.LoginOption,
		IsExtension: login.LoginOption == LoginOptionExtension,
		DeviceID:    c.deviceID(login.LoginOption, dialNumber, profile.AgentID),
		Roles:       []string{agentRole},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.loginOption = login.LoginOption
	c.mu.Unlock()

	c.logger.Info().
		Str("team_id", login.TeamID).
		Str("login_option", string(login.LoginOption)).
		Msg("station login confirmed")
	return nil
}

// StationLogout signs the agent out, ends live tasks and releases the
// calling line.
func (c *Client) StationLogout(ctx context.Context, reason string) error {
	if _, err := c.currentProfile(); err != nil {
		return err
	}

	_, err := c.agentSvc.Logout(ctx, agent.LogoutRequest{LogoutReason: reason})
	if err != nil {
		return err
	}

	c.router.EndAll()
	c.callingSvc.Deregister()
	return nil
}

// StationReLogin re-establishes the previous station session.
func (c *Client) StationReLogin(ctx context.Context) error {
	if _, err := c.currentProfile(); err != nil {
		return err
	}
	_, err := c.agentSvc.ReLogin(ctx)
	return err
}

// SetAgentState changes the agent's availability. Anything other than
// exactly Available is sent as Idle with the aux code.
func (c *Client) SetAgentState(ctx context.Context, change StateChange) error {
	profile, err := c.currentProfile()
	if err != nil {
		return err
	}

	state := agent.StateIdle
	if change.State == agent.StateAvailable {
		state = agent.StateAvailable
	}

	_, err = c.agentSvc.StateChange(ctx, agent.StateChangeRequest{
		State:                 state,
		AuxCodeID:             change.AuxCodeID,
		LastStateChangeReason: change.Reason,
		AgentID:               profile.AgentID,
	})
	return err
}

// GetBuddyAgents lists agents available for consult or transfer on the
// given media type.
func (c *Client) GetBuddyAgents(ctx context.Context, mediaType string) ([]agent.BuddyAgent, error) {
	profile, err := c.currentProfile()
	if err != nil {
		return nil, err
	}

	return c.agentSvc.BuddyAgents(ctx, agent.BuddyAgentsRequest{
		AgentProfileID: profile.AgentProfileID,
		MediaType:      mediaType,
	})
}

// AcceptTask accepts the task with the given interaction id.
func (c *Client) AcceptTask(ctx context.Context, taskID string) error {
	t := c.registry.Get(taskID)
	if t == nil {
		return ErrTaskNotFound
	}
	return t.Accept(ctx)
}

// DeclineTask declines the task with the given interaction id.
func (c *Client) DeclineTask(ctx context.Context, taskID string) error {
	t := c.registry.Get(taskID)
	if t == nil {
		return ErrTaskNotFound
	}
	return t.Decline(ctx)
}

// Task returns the live task for the interaction id, or nil.
func (c *Client) Task(taskID string) *task.Task {
	return c.registry.Get(taskID)
}

// Tasks returns a snapshot of all live tasks.
func (c *Client) Tasks() []*task.Task {
	return c.registry.All()
}

// Events returns the task lifecycle event channel.
func (c *Client) Events() <-chan task.Event {
	return c.router.Events()
}

// Close tears the session down: background consumers stop and the
// notification channel closes.
func (c *Client) Close() {
	if c.bgCancel != nil {
		c.bgCancel()
	}
	c.stream.Close()
}

func (c *Client) currentProfile() (*agent.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered || c.profile == nil {
		return nil, ErrNotRegistered
	}
	return c.profile, nil
}

func (c *Client) deviceID(opt LoginOption, dialNumber, agentID string) string {
	if opt == LoginOptionExtension || opt == LoginOptionAgentDN {
		return dialNumber
	}
	return webRTCPrefix + agentID
}

// orgIDFromToken extracts the org id claim without verifying the signature;
// verification is the gateway's job, the client only needs the identifier.
func orgIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"orgId", "realm"} {
		if v, ok := claims[key].(string); ok {
			return v
		}
	}
	return ""
}
