// Package socket maintains the server-pushed notification channel: it
// subscribes, waits for the welcome frame and then feeds raw frames to the
// event dispatcher, reconnecting with backoff when the connection drops.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/centrivo/agentcc/internal/event"
)

const (
	writeTimeout   = 10 * time.Second
	welcomeTimeout = 30 * time.Second
	pingPeriod     = 20 * time.Second

	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// ErrWelcomeTimeout is returned when the server does not send the welcome
// frame within the allotted window after subscribing.
var ErrWelcomeTimeout = errors.New("timed out waiting for welcome event")

// SubscribeRequest is the body sent to open the notification channel.
type SubscribeRequest struct {
	Force              bool   `json:"force"`
	IsKeepAliveEnabled bool   `json:"isKeepAliveEnabled"`
	ClientType         string `json:"clientType"`
	AllowMultiLogin    bool   `json:"allowMultiLogin"`
}

// Manager owns the websocket connection to the notification service.
type Manager struct {
	url       string
	token     string
	subscribe SubscribeRequest
	logger    zerolog.Logger

	frames chan []byte
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	reconnects int64
}

// NewManager creates a manager for the given websocket URL.
func NewManager(url, token string, logger zerolog.Logger) *Manager {
	return &Manager{
		url:    wsURL(url),
		token:  token,
		logger: logger.With().Str("component", "socket").Logger(),
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

// wsURL converts http:// and https:// URLs to their websocket scheme.
func wsURL(url string) string {
	if len(url) > 4 && url[:4] == "http" {
		return "ws" + url[4:]
	}
	return url
}

// Frames returns the channel raw event frames are delivered on.
func (m *Manager) Frames() <-chan []byte {
	return m.frames
}

// Subscribe opens the connection, sends the subscribe request and blocks
// until the welcome frame arrives. ctx bounds only the dial and welcome
// handshake; on success a background goroutine keeps pumping frames and
// reconnecting until Close is called.
func (m *Manager) Subscribe(ctx context.Context, req SubscribeRequest) (*event.Welcome, error) {
	m.subscribe = req

	welcome, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}

	go m.run()

	return welcome, nil
}

// connect dials, subscribes and waits for the welcome frame.
func (m *Manager) connect(ctx context.Context) (*event.Welcome, error) {
	header := map[string][]string{}
	if m.token != "" {
		header["Authorization"] = []string{"Bearer " + m.token}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial notification service: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(m.subscribe); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(welcomeTimeout))
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrWelcomeTimeout, err)
		}

		var env event.Envelope
		if err := json.Unmarshal(frame, &env); err != nil || env.Type != string(event.KindWelcome) {
			// Anything before the welcome frame is noise.
			continue
		}

		var welcome event.Welcome
		if err := json.Unmarshal(env.Data, &welcome); err != nil {
			conn.Close()
			return nil, fmt.Errorf("decode welcome event: %w", err)
		}

		conn.SetReadDeadline(time.Time{})
		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		m.logger.Info().Str("agent_id", welcome.AgentID).Msg("notification channel established")
		return &welcome, nil
	}
}

// run pumps frames and reconnects until Close.
func (m *Manager) run() {
	reconnectDelay := initialReconnectDelay

	for {
		m.pump()

		m.mu.Lock()
		closed := m.closed
		if m.conn != nil {
			m.conn.Close()
			m.conn = nil
		}
		m.mu.Unlock()

		if closed {
			return
		}

		m.logger.Info().Dur("retry_in", reconnectDelay).Msg("notification channel lost, reconnecting")
		select {
		case <-m.done:
			return
		case <-time.After(reconnectDelay):
		}

		if _, err := m.connect(context.Background()); err != nil {
			m.logger.Debug().Err(err).Msg("reconnect failed")
			reconnectDelay *= 2
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
			continue
		}
		reconnectDelay = initialReconnectDelay
		m.reconnects++
	}
}

// pump reads frames until the connection breaks.
func (m *Manager) pump() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case m.frames <- frame:
			default:
				m.logger.Warn().Msg("frame buffer full, dropping event")
			}
		}
	}()

	for {
		select {
		case <-m.done:
			return
		case <-readDone:
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.logger.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}

// Close permanently shuts the channel down. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
