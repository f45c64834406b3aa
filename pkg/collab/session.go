// Package collab implements the per-client collaboration session: the
// WebSocket lifecycle against the relay, heartbeats, fixed-delay
// reconnection, and dispatch of inbound messages to the presence registry
// and the document-update callback.
package collab

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liveboard-dev/liveboard/pkg/document"
	"github.com/liveboard-dev/liveboard/pkg/presence"
	"github.com/liveboard-dev/liveboard/pkg/protocol"
)

// State is a session's position in its connection lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var (
	// ErrNoURL is returned by Connect when no relay URL is configured.
	ErrNoURL = errors.New("collab: no relay URL configured")

	// ErrAlreadyConnected is returned by Connect while a connection is
	// being established or is live.
	ErrAlreadyConnected = errors.New("collab: session already connected")
)

// DocumentUpdateFunc receives the full Block payload of an inbound block
// mutation. The implementation is expected to replace its block of matching
// id wholesale; see document.Store.ApplyBlock.
type DocumentUpdateFunc func(document.Block)

// Session is one client's connection to the relay. All timers — heartbeat
// and the reconnect delay — are owned by the session and die with it, so
// concurrent sessions never interfere.
type Session struct {
	identity Identity
	config   *Config
	registry *presence.Registry
	onBlock  DocumentUpdateFunc
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	enabled   bool
	lastErr   error
	reconnect *time.Timer
	hbStop    chan struct{}
	gen       int

	writeMu sync.Mutex
}

// NewSession creates a session in the Idle state. Connect must be called to
// go live.
func NewSession(identity Identity, registry *presence.Registry, onBlock DocumentUpdateFunc, config *Config) *Session {
	return &Session{
		identity: identity,
		config:   config.withDefaults(),
		registry: registry,
		onBlock:  onBlock,
		logger: slog.Default().With(
			"component", "collab",
			"user_id", identity.ID,
		),
	}
}

// Identity returns the session's identity.
func (s *Session) Identity() Identity { return s.identity }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last transport error, cleared on a successful connect.
// The error is informational; the reconnect loop keeps running regardless.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect dials the relay, embedding the room id as a query parameter. On
// success it sends the join envelope and starts the heartbeat; on dial
// failure it records the error and schedules a reconnect after the fixed
// delay.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.config.URL == "" {
		s.mu.Unlock()
		return ErrNoURL
	}
	switch s.state {
	case StateConnecting, StateOpen, StateClosing:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.enabled = true
	s.state = StateConnecting
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	s.gen++
	gen := s.gen
	target := s.dialURL()
	s.mu.Unlock()

	conn, resp, err := s.config.Dialer.Dial(target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.lastErr = err
		if s.enabled {
			s.scheduleReconnectLocked()
		}
		s.mu.Unlock()
		return fmt.Errorf("collab: connect %s: %w", target, err)
	}

	s.mu.Lock()
	if !s.enabled {
		// Disconnect raced the dial; drop the fresh connection.
		s.state = StateClosed
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.state = StateOpen
	s.lastErr = nil
	hbStop := make(chan struct{})
	s.hbStop = hbStop
	s.mu.Unlock()

	inbox := make(chan protocol.Message, s.config.InboxSize)
	go s.readLoop(conn, gen, inbox)
	go s.dispatchLoop(inbox)
	go s.heartbeatLoop(conn, hbStop)

	s.broadcast(protocol.TypeJoin, nil)
	s.logger.Info("session open", "room", s.config.Room)
	return nil
}

// Disconnect sends a leave envelope, clears all timers, and closes with the
// normal code so no reconnect is scheduled. It is the only cancellation
// path and is synchronous from the caller's perspective.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.enabled = false
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if s.state != StateOpen {
		if s.state != StateIdle {
			s.state = StateClosed
		}
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	conn := s.conn
	s.mu.Unlock()

	if leave, err := protocol.New(protocol.TypeLeave, s.identity.ID, s.identity.Name, s.identity.Color, nil); err == nil {
		if err := s.write(conn, leave); err != nil {
			s.logger.Debug("leave send failed", "error", err)
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(s.config.WriteTimeout))
	conn.Close()
	s.logger.Info("session disconnected")
}

// BroadcastCursor announces the local cursor position.
func (s *Session) BroadcastCursor(x, y float64) {
	s.broadcast(protocol.TypeCursor, protocol.CursorPayload{X: x, Y: y})
}

// BroadcastSelect announces the local selection. A nil blockID clears it.
func (s *Session) BroadcastSelect(blockID *string) {
	s.broadcast(protocol.TypeSelect, protocol.SelectPayload{BlockID: blockID})
}

// BroadcastBlockMove announces a moved block, full payload.
func (s *Session) BroadcastBlockMove(b document.Block) {
	s.broadcast(protocol.TypeBlockMove, b)
}

// BroadcastBlockResize announces a resized block, full payload.
func (s *Session) BroadcastBlockResize(b document.Block) {
	s.broadcast(protocol.TypeBlockResize, b)
}

// BroadcastBlockUpdate announces any other block mutation, full payload.
func (s *Session) BroadcastBlockUpdate(b document.Block) {
	s.broadcast(protocol.TypeBlockUpdate, b)
}

// broadcast wraps payload in a full envelope and sends it. A session that
// is not open swallows the call silently.
func (s *Session) broadcast(t protocol.Type, payload any) {
	s.mu.Lock()
	conn := s.conn
	open := s.state == StateOpen
	s.mu.Unlock()
	if !open || conn == nil {
		return
	}

	msg, err := protocol.New(t, s.identity.ID, s.identity.Name, s.identity.Color, payload)
	if err != nil {
		s.logger.Error("encode outbound message", "type", t, "error", err)
		return
	}
	if err := s.write(conn, msg); err != nil {
		s.logger.Error("send failed", "type", t, "error", err)
	}
}

func (s *Session) write(conn *websocket.Conn, msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// dialURL attaches the room query parameter to the configured endpoint.
func (s *Session) dialURL() string {
	u, err := url.Parse(s.config.URL)
	if err != nil {
		return s.config.URL
	}
	q := u.Query()
	q.Set("room", s.config.Room)
	u.RawQuery = q.Encode()
	return u.String()
}

// readLoop moves decoded messages from the socket to the dispatch loop.
// Malformed payloads are logged and dropped without touching the
// connection.
func (s *Session) readLoop(conn *websocket.Conn, gen int, inbox chan<- protocol.Message) {
	defer close(inbox)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(conn, gen, err)
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			s.logger.Warn("dropping malformed message", "error", err)
			continue
		}
		inbox <- msg
	}
}

// dispatchLoop consumes inbound messages on a goroutine separate from
// network I/O, so the registry and document callback never run on the read
// path.
func (s *Session) dispatchLoop(inbox <-chan protocol.Message) {
	for msg := range inbox {
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg protocol.Message) {
	// The relay never echoes, but a self-addressed message must not reach
	// the registry regardless.
	if msg.UserID == s.identity.ID && msg.UserID != "" {
		return
	}

	switch msg.Type {
	case protocol.TypeJoin, protocol.TypeLeave, protocol.TypeCursor, protocol.TypeSelect:
		s.registry.Apply(msg)

	case protocol.TypeBlockMove, protocol.TypeBlockResize, protocol.TypeBlockUpdate:
		s.registry.Apply(msg)
		var b document.Block
		if err := msg.DecodePayload(&b); err != nil {
			s.logger.Warn("dropping block mutation", "type", msg.Type, "error", err)
			return
		}
		if s.onBlock != nil {
			s.onBlock(b)
		}

	case protocol.TypePing, protocol.TypePong:
		// Heartbeat traffic; nothing to track.

	case protocol.TypeSyncRequest, protocol.TypeSyncResponse:
		// Reserved protocol members with no defined semantics yet.

	default:
		s.logger.Warn("unknown message type", "type", msg.Type)
	}
}

// heartbeatLoop sends the bare ping frame on a fixed interval. The frame
// deliberately bypasses the envelope; see protocol.Ping.
func (s *Session) heartbeatLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.write(conn, protocol.Ping()); err != nil {
				s.logger.Debug("heartbeat failed", "error", err)
				return
			}
		case <-stop:
			return
		}
	}
}

// handleClose runs when the read loop dies. An intentional close ends the
// session; anything else schedules one reconnect after the fixed delay.
func (s *Session) handleClose(conn *websocket.Conn, gen int, err error) {
	s.mu.Lock()
	if gen != s.gen {
		// A newer connection already took over.
		s.mu.Unlock()
		conn.Close()
		return
	}
	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
	s.conn = nil
	intentional := s.state == StateClosing || websocket.IsCloseError(err, websocket.CloseNormalClosure)
	s.state = StateClosed
	if !intentional {
		s.lastErr = err
		if s.enabled {
			s.scheduleReconnectLocked()
		}
	}
	s.mu.Unlock()
	conn.Close()

	if intentional {
		s.logger.Info("connection closed")
	} else {
		s.logger.Warn("connection lost", "error", err)
	}
}

// scheduleReconnectLocked arms the fixed-delay reconnect timer. Callers
// hold s.mu.
func (s *Session) scheduleReconnectLocked() {
	if s.reconnect != nil {
		s.reconnect.Stop()
	}
	s.reconnect = time.AfterFunc(s.config.ReconnectDelay, func() {
		s.mu.Lock()
		enabled := s.enabled
		s.mu.Unlock()
		if !enabled {
			return
		}
		if err := s.Connect(); err != nil && !errors.Is(err, ErrAlreadyConnected) {
			s.logger.Warn("reconnect failed", "error", err)
		}
	})
	s.logger.Info("reconnect scheduled", "delay", s.config.ReconnectDelay)
}
