package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

const (
	// DefaultReconnectDelay is the fixed delay between a connection loss and the
	// next connection attempt.
	DefaultReconnectDelay = 3 * time.Second

	defaultEventsBuffer = 64
	pushPath            = "/ws"
)

// ErrNotConnected is returned when sending while there is no open connection.
var ErrNotConnected = errors.New("not connected")

// EventKind is the kind of a push channel event.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventMessage      EventKind = "message"
)

// Event is an inbound event of the push channel. Connected and disconnected
// events are the connectivity signal, message events carry a decoded frame.
type Event struct {
	Kind EventKind
	// Message is only set on EventMessage.
	Message model.PushMessage
	// Err is the cause of a disconnection, if any.
	Err error
}

// Connected returns the connectivity signal carried by the event.
func (e Event) Connected() bool { return e.Kind == EventConnected }

// Conn is a full duplex message connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer knows how to open connections to the push endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc is a helper to use functions as Dialers.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (d DialerFunc) Dial(ctx context.Context, url string) (Conn, error) { return d(ctx, url) }

// NewWebsocketDialer returns a Dialer that opens websocket connections. If d is
// nil the gorilla default dialer is used.
func NewWebsocketDialer(d *websocket.Dialer) Dialer {
	if d == nil {
		d = websocket.DefaultDialer
	}

	return DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		conn, _, err := d.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// URLFromBase returns the push endpoint URL for a backend HTTP base URL. The
// scheme mirrors the transport security of the base URL.
func URLFromBase(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q: %w", u.Scheme, model.ErrNotValid)
	}
	if u.Host == "" {
		return "", fmt.Errorf("host is required: %w", model.ErrNotValid)
	}

	u.Path = pushPath
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// ManagerConfig is the configuration for the connection manager.
type ManagerConfig struct {
	// URL is the push endpoint (ws:// or wss://).
	URL string
	// Dialer opens the connections, by default a websocket dialer.
	Dialer Dialer
	// ReconnectDelay is the fixed delay before reconnecting. Default 3s.
	ReconnectDelay time.Duration
	// PingInterval enables keepalive pings when greater than zero.
	PingInterval time.Duration
	// EventsBuffer is the size of the inbound events channel buffer.
	EventsBuffer int
	Logger       log.Logger
}

func (c *ManagerConfig) defaults() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Dialer == nil {
		c.Dialer = NewWebsocketDialer(nil)
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay can't be negative")
	}
	if c.PingInterval < 0 {
		return fmt.Errorf("ping interval can't be negative")
	}
	if c.EventsBuffer <= 0 {
		c.EventsBuffer = defaultEventsBuffer
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "push.Manager"})
	return nil
}

// Manager owns one full duplex connection to the backend push endpoint. It
// detects connection loss and reconnects after a fixed delay, forever, until
// its context ends.
type Manager struct {
	url            string
	dialer         Dialer
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         log.Logger
	events         chan Event

	// wait blocks for the reconnect delay, returns false if the context ended first.
	wait func(ctx context.Context, d time.Duration) bool

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    Conn
	phase   model.ConnectionPhase
	started bool
}

// NewManager returns a new connection manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Manager{
		url:            cfg.URL,
		dialer:         cfg.Dialer,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		logger:         cfg.Logger,
		events:         make(chan Event, cfg.EventsBuffer),
		wait:           waitTimer,
		phase:          model.ConnectionPhaseDisconnected,
	}, nil
}

// Events returns the inbound event stream. It's closed when Run returns.
func (m *Manager) Events() <-chan Event { return m.events }

// Phase returns the current connection phase.
func (m *Manager) Phase() model.ConnectionPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Run connects to the push endpoint and keeps the connection alive until the
// context is cancelled. A pending reconnection is cancelled with the context.
//
// A frame that can't be decoded is not recovered: Run returns an error that
// wraps model.ErrProtocolDecode.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already running")
	}
	m.started = true
	m.mu.Unlock()

	defer close(m.events)

	for {
		err := m.connectAndRead(ctx)
		if ctx.Err() != nil {
			m.logger.Debugf("Connection manager stopped")
			return nil
		}
		if errors.Is(err, model.ErrProtocolDecode) {
			return err
		}

		m.logger.Warningf("Connection lost, reconnecting in %s: %s", m.reconnectDelay, err)
		if !m.emit(ctx, Event{Kind: EventDisconnected, Err: err}) {
			return nil
		}

		if !m.wait(ctx, m.reconnectDelay) {
			m.logger.Debugf("Pending reconnection cancelled")
			return nil
		}
	}
}

// Send encodes v as JSON and writes it on the current connection. A write
// failure closes the connection, which triggers the reconnection flow.
func (m *Manager) Send(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	m.writeMu.Unlock()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("could not send message: %w", err)
	}

	return nil
}

func (m *Manager) connectAndRead(ctx context.Context) error {
	m.setPhase(model.ConnectionPhaseConnecting, nil)

	conn, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.setPhase(model.ConnectionPhaseDisconnected, nil)
		return fmt.Errorf("could not connect to %s: %w", m.url, err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		_ = conn.Close()
		m.setPhase(model.ConnectionPhaseDisconnected, nil)
	}()

	m.setPhase(model.ConnectionPhaseConnected, conn)
	m.logger.Infof("Connected to %s", m.url)
	if !m.emit(ctx, Event{Kind: EventConnected}) {
		return ctx.Err()
	}

	// Unblock the reader when the context ends.
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	if m.pingInterval > 0 {
		go m.keepalive(connCtx)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("could not read message: %w", err)
		}

		msg, err := decodeMessage(data)
		if err != nil {
			m.logger.Errorf("Could not decode push frame: %s", err)
			return err
		}

		if !m.emit(ctx, Event{Kind: EventMessage, Message: msg}) {
			return ctx.Err()
		}
	}
}

func (m *Manager) keepalive(ctx context.Context) {
	t := time.NewTicker(m.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := m.Send(ctx, wireMessage{Type: string(model.PushMessageTypePing)})
			if err != nil {
				m.logger.Warningf("Could not send ping: %s", err)
				return
			}
		}
	}
}

func (m *Manager) setPhase(p model.ConnectionPhase, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = p
	m.conn = conn
}

func (m *Manager) emit(ctx context.Context, e Event) bool {
	select {
	case m.events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func waitTimer(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// --- JSON wire types ---

type wireMessage struct {
	Type  string          `json:"type"`
	Stage string          `json:"stage,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wireArtifact struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type wireStageData struct {
	TaskID    string         `json:"task_id"`
	Artifacts []wireArtifact `json:"artifacts"`
}

func decodeMessage(data []byte) (model.PushMessage, error) {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return model.PushMessage{}, fmt.Errorf("%w: %w", model.ErrProtocolDecode, err)
	}

	msg := model.PushMessage{
		Type: model.PushMessageType(wm.Type),
		Event: model.StageEvent{
			Stage: model.Stage(wm.Stage),
			Data:  model.StageData{Raw: wm.Data},
		},
	}

	if len(wm.Data) == 0 || string(wm.Data) == "null" {
		return msg, nil
	}

	var sd wireStageData
	if err := json.Unmarshal(wm.Data, &sd); err != nil {
		return model.PushMessage{}, fmt.Errorf("%w: invalid data: %w", model.ErrProtocolDecode, err)
	}

	msg.Event.Data.TaskID = sd.TaskID
	for _, a := range sd.Artifacts {
		msg.Event.Data.Artifacts = append(msg.Event.Data.Artifacts, model.Artifact{
			Path:        a.Path,
			Type:        a.Type,
			Description: a.Description,
		})
	}

	return msg, nil
}
