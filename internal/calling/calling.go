// Package calling wraps the device/line layer that carries the agent's
// media path. It owns the single active call slot; everything above it
// references calls by interaction id only.
package calling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LoginOption is how the agent's media path is established.
type LoginOption string

const (
	LoginOptionBrowser   LoginOption = "BROWSER"
	LoginOptionExtension LoginOption = "EXTENSION"
	LoginOptionAgentDN   LoginOption = "AGENT_DN"
)

// registerTimeout bounds the wait for the line to reach registered state.
const registerTimeout = 10 * time.Second

// ErrNoActiveCall is returned by call operations invoked with no call in
// the slot.
var ErrNoActiveCall = errors.New("no active call")

// ErrRegisterTimeout is returned when line registration does not complete
// within the allotted window.
var ErrRegisterTimeout = errors.New("line registration timed out")

// ErrNoLine is returned when browser-mode registration is attempted without
// a device line configured.
var ErrNoLine = errors.New("no device line configured")

// LineEventType enumerates signals from the device layer.
type LineEventType string

const (
	LineRegistered   LineEventType = "registered"
	LineUnregistered LineEventType = "unregistered"
	LineIncomingCall LineEventType = "incoming_call"
)

// LineEvent is one signal from the device layer.
type LineEvent struct {
	Type     LineEventType
	DeviceID string
	Call     Call
}

// Line is the registration surface of the device layer.
type Line interface {
	Register() error
	Deregister() error
	Events() <-chan LineEvent
}

// Call is a handle to one local media session.
type Call interface {
	Answer(stream MediaStream) error
	Mute(stream MediaStream) error
	IsMuted() bool
	End() error
}

// MediaStream is a local capture resource. Stop releases the underlying
// device handle and must be called on every exit path.
type MediaStream interface {
	Stop()
}

// MediaProvider acquires local capture resources.
type MediaProvider interface {
	MicrophoneStream(ctx context.Context) (MediaStream, error)
}

// Service is the call-control adapter. It tracks at most one active call
// per agent session.
type Service struct {
	line   Line
	logger zerolog.Logger

	registered chan struct{}
	incoming   chan Call
	done       chan struct{}

	mu          sync.Mutex
	loginOption LoginOption
	call        Call
}

// NewService creates the adapter around a device line.
func NewService(line Line, logger zerolog.Logger) *Service {
	return &Service{
		line:       line,
		logger:     logger.With().Str("component", "calling").Logger(),
		registered: make(chan struct{}, 1),
		incoming:   make(chan Call, 4),
		done:       make(chan struct{}),
	}
}

// LoginOption returns the mode the line was registered with.
func (s *Service) LoginOption() LoginOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginOption
}

// Incoming returns the channel on which inbound calls arrive.
func (s *Service) Incoming() <-chan Call {
	return s.incoming
}

// Register records the login option, starts consuming line events and
// triggers registration, waiting up to a fixed ceiling for the line to
// report registered. Non-browser modes have no local media leg and return
// immediately.
func (s *Service) Register(ctx context.Context, loginOption LoginOption) error {
	s.mu.Lock()
	s.loginOption = loginOption
	s.mu.Unlock()

	if loginOption != LoginOptionBrowser {
		return nil
	}
	if s.line == nil {
		return ErrNoLine
	}

	go s.pumpEvents()

	if err := s.line.Register(); err != nil {
		return err
	}

	timer := time.NewTimer(registerTimeout)
	defer timer.Stop()

	select {
	case <-s.registered:
		s.logger.Info().Msg("line registered")
		return nil
	case <-timer.C:
		return ErrRegisterTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deregister releases the device line. Safe to call when never registered.
func (s *Service) Deregister() {
	if s.LoginOption() != LoginOptionBrowser || s.line == nil {
		return
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if err := s.line.Deregister(); err != nil {
		s.logger.Warn().Err(err).Msg("line deregister failed")
	}
}

func (s *Service) pumpEvents() {
	events := s.line.Events()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case LineRegistered:
				s.logger.Debug().Str("device_id", ev.DeviceID).Msg("line reported registered")
				select {
				case s.registered <- struct{}{}:
				default:
				}
			case LineUnregistered:
				s.logger.Info().Msg("line unregistered")
			case LineIncomingCall:
				s.setCall(ev.Call)
				select {
				case s.incoming <- ev.Call:
				default:
					s.logger.Warn().Msg("incoming call channel full, dropping")
				}
			}
		}
	}
}

func (s *Service) setCall(call Call) {
	s.mu.Lock()
	s.call = call
	s.mu.Unlock()
}

// ClearCall drops the active call reference, releasing the slot for the
// next inbound call.
func (s *Service) ClearCall() {
	s.setCall(nil)
}

func (s *Service) currentCall() Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call
}

// AnswerCall answers the active call with the given capture stream.
func (s *Service) AnswerCall(stream MediaStream, taskID string) error {
	call := s.currentCall()
	if call == nil {
		s.logger.Info().Str("task_id", taskID).Msg("cannot answer, no active call")
		return ErrNoActiveCall
	}
	s.logger.Info().Str("task_id", taskID).Msg("answering call")
	if err := call.Answer(stream); err != nil {
		s.logger.Error().Err(err).Str("task_id", taskID).Msg("failed to answer call")
		return err
	}
	return nil
}

// MuteCall toggles mute on the active call.
func (s *Service) MuteCall(stream MediaStream) error {
	call := s.currentCall()
	if call == nil {
		s.logger.Info().Msg("cannot mute, no active call")
		return ErrNoActiveCall
	}
	return call.Mute(stream)
}

// IsCallMuted reports the mute state of the active call; false with no call.
func (s *Service) IsCallMuted() bool {
	call := s.currentCall()
	if call == nil {
		return false
	}
	return call.IsMuted()
}

// DeclineCall ends the active call.
func (s *Service) DeclineCall(taskID string) error {
	call := s.currentCall()
	if call == nil {
		s.logger.Info().Str("task_id", taskID).Msg("cannot decline, no active call")
		return ErrNoActiveCall
	}
	s.logger.Info().Str("task_id", taskID).Msg("ending call")
	if err := call.End(); err != nil {
		s.logger.Error().Err(err).Str("task_id", taskID).Msg("failed to end call")
		return err
	}
	s.ClearCall()
	return nil
}
