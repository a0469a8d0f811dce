// Package conn manages the single websocket connection to the telemetry
// producer and reports its coarse state.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridwatch/pkg/model"
)

var ErrInvalidEndpoint = errors.New("endpoint must be a ws:// or wss:// url")

// Handler receives every data message. It returns true when the message was
// the end-of-stream signal.
type Handler interface {
	HandleMessage(payload []byte) bool
}

type HandlerFunc func(payload []byte) bool

func (f HandlerFunc) HandleMessage(payload []byte) bool { return f(payload) }

type Option func(*Manager)

func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithStateHook is called on every accepted state change, from the goroutine
// running Run.
func WithStateHook(fn func(model.ConnectionState)) Option {
	return func(m *Manager) { m.hook = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns one connection attempt. It never reconnects.
type Manager struct {
	endpoint string
	handler  Handler
	dialer   *websocket.Dialer
	hook     func(model.ConnectionState)
	logger   *log.Logger

	mu    sync.RWMutex
	state model.ConnectionState
}

func New(endpoint string, h Handler, opts ...Option) (*Manager, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}
	if h == nil {
		return nil, errors.New("handler required")
	}
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = 10 * time.Second
	m := &Manager{
		endpoint: u.String(),
		handler:  h,
		dialer:   &d,
		logger:   log.Default(),
		state:    model.StateConnecting,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) State() model.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Endpoint() string { return m.endpoint }

// setState applies s unless the current state is terminal.
func (m *Manager) setState(s model.ConnectionState) bool {
	m.mu.Lock()
	if m.state.Terminal() {
		m.mu.Unlock()
		return false
	}
	m.state = s
	m.mu.Unlock()
	if m.hook != nil {
		m.hook(s)
	}
	return true
}

// Run dials once and pumps messages into the handler until the peer closes,
// the read fails or ctx is cancelled. Cancellation and normal closes end in
// Disconnected and return nil; dial and read failures end in Error.
func (m *Manager) Run(ctx context.Context) error {
	if m.hook != nil {
		m.hook(m.State())
	}
	c, resp, err := m.dialer.DialContext(ctx, m.endpoint, nil)
	if err != nil {
		if ctx.Err() != nil {
			m.setState(model.StateDisconnected)
			return nil
		}
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.logger.Printf("ws dial failed: %v (url=%s status=%d)", err, m.endpoint, status)
		m.setState(model.StateError)
		return fmt.Errorf("dial %s: %w", m.endpoint, err)
	}
	defer c.Close()

	m.setState(model.StateConnected)
	m.logger.Printf("ws connected url=%s", m.endpoint)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.closeNormal(c)
			_ = c.Close()
		case <-done:
		}
	}()

	return m.readLoop(ctx, c)
}

func (m *Manager) readLoop(ctx context.Context, c *websocket.Conn) error {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return m.finish(ctx, err)
		}
		if m.handler.HandleMessage(data) {
			if m.setState(model.StateCompleted) {
				m.logger.Printf("ws stream completed url=%s", m.endpoint)
			}
		}
	}
}

func (m *Manager) finish(ctx context.Context, err error) error {
	if m.State() == model.StateCompleted {
		return nil
	}
	if ctx.Err() != nil || websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		m.setState(model.StateDisconnected)
		m.logger.Printf("ws disconnected url=%s", m.endpoint)
		return nil
	}
	m.setState(model.StateError)
	m.logger.Printf("ws read failed url=%s err=%v", m.endpoint, err)
	return fmt.Errorf("read %s: %w", m.endpoint, err)
}

func (m *Manager) closeNormal(c *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		m.logger.Printf("ws close send failed url=%s err=%v", m.endpoint, err)
	}
}
