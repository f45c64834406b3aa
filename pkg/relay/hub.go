package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liveboard-dev/liveboard/pkg/protocol"
)

// inboundFrame is a raw frame read from one connection, handed to the hub.
type inboundFrame struct {
	conn *conn
	data []byte
}

// hub owns the room table. All mutation happens on the run goroutine;
// connections talk to it only through channels, so the table needs no lock.
type hub struct {
	register   chan *conn
	unregister chan *conn
	frames     chan inboundFrame

	// rooms maps room id to the set of live connections joined to it.
	// Rooms are created lazily on first join and destroyed when empty.
	rooms map[string]map[*conn]struct{}

	maxMessageSize int64
	logger         *slog.Logger
	metrics        *metrics

	stop    chan struct{}
	stopped chan struct{}
}

// conn is one relayed WebSocket connection. userID and the identity fields
// are written only by the hub goroutine, on the connection's first
// registering message.
type conn struct {
	ws           *websocket.Conn
	hub          *hub
	room         string
	send         chan []byte
	writeTimeout time.Duration
	logger       *slog.Logger

	userID    string
	userName  string
	userColor string
}

func newHub(maxMessageSize int64, logger *slog.Logger, m *metrics) *hub {
	return &hub{
		register:       make(chan *conn),
		unregister:     make(chan *conn),
		frames:         make(chan inboundFrame),
		rooms:          make(map[string]map[*conn]struct{}),
		maxMessageSize: maxMessageSize,
		logger:         logger.With("component", "hub"),
		metrics:        m,
		stop:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
}

// run is the hub's event loop. It exits when Stop is called, closing every
// remaining connection.
func (h *hub) run() {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			h.addConn(c)

		case c := <-h.unregister:
			h.removeConn(c)

		case f := <-h.frames:
			h.handleFrame(f.conn, f.data)

		case <-h.stop:
			for room, members := range h.rooms {
				for c := range members {
					close(c.send)
				}
				delete(h.rooms, room)
			}
			h.metrics.connectionsActive.Set(0)
			h.metrics.roomsActive.Set(0)
			return
		}
	}
}

// Stop asks the run loop to shut down and waits for it.
func (h *hub) Stop() {
	close(h.stop)
	<-h.stopped
}

func (h *hub) addConn(c *conn) {
	members, ok := h.rooms[c.room]
	if !ok {
		members = make(map[*conn]struct{})
		h.rooms[c.room] = members
		h.metrics.roomsActive.Inc()
	}
	members[c] = struct{}{}
	h.metrics.connectionsActive.Inc()
	h.metrics.connectsTotal.Inc()
	c.logger.Debug("connection joined room")
}

func (h *hub) removeConn(c *conn) {
	members, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	close(c.send)
	h.metrics.connectionsActive.Dec()

	// A registered member that vanishes gets a synthetic leave broadcast so
	// the rest of the room does not wait on the staleness sweep.
	if c.userID != "" {
		leave := protocol.Message{
			Type:      protocol.TypeLeave,
			UserID:    c.userID,
			UserName:  c.userName,
			UserColor: c.userColor,
			Timestamp: time.Now().UnixMilli(),
		}
		if data, err := leave.Encode(); err == nil {
			for member := range members {
				h.trySend(member, data)
			}
		}
		c.logger.Debug("member left", "user_id", c.userID)
	}

	if len(members) == 0 {
		delete(h.rooms, c.room)
		h.metrics.roomsActive.Dec()
	}
}

func (h *hub) handleFrame(c *conn, data []byte) {
	h.metrics.framesIn.Inc()

	msg, err := protocol.Decode(data)
	if err != nil {
		// Parse failures cost the sender nothing but the frame.
		h.metrics.framesDropped.WithLabelValues("malformed").Inc()
		c.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	// Heartbeats are answered, never relayed.
	if msg.Type == protocol.TypePing {
		if pong, err := protocol.Pong().Encode(); err == nil {
			h.trySend(c, pong)
		}
		return
	}

	if c.userID == "" && msg.UserID != "" {
		h.registerMember(c, msg)
	}

	members := h.rooms[c.room]
	for member := range members {
		if member == c {
			continue
		}
		h.trySend(member, data)
		h.metrics.framesForwarded.Inc()
	}
}

// registerMember records the connection's identity on its first envelope and
// replays a synthetic join for every current member to that connection only.
// The catch-up covers membership, not cursors or selections: a new joiner
// sees no cursors until those peers next move.
func (h *hub) registerMember(c *conn, msg protocol.Message) {
	c.userID = msg.UserID
	c.userName = msg.UserName
	c.userColor = msg.UserColor

	for member := range h.rooms[c.room] {
		if member == c || member.userID == "" {
			continue
		}
		join := protocol.Message{
			Type:      protocol.TypeJoin,
			UserID:    member.userID,
			UserName:  member.userName,
			UserColor: member.userColor,
			Timestamp: time.Now().UnixMilli(),
		}
		if data, err := join.Encode(); err == nil {
			h.trySend(c, data)
		}
	}
	c.logger.Debug("member registered", "user_id", c.userID)
}

// trySend queues data on the connection's outbound buffer. There is no flow
// control; a consumer too slow to drain its buffer loses frames.
func (h *hub) trySend(c *conn, data []byte) {
	select {
	case c.send <- data:
	default:
		h.metrics.framesDropped.WithLabelValues("slow_consumer").Inc()
		c.logger.Warn("send buffer full, dropping frame")
	}
}

// readPump moves frames from the socket to the hub. It blocks until the
// connection dies or the hub stops.
func (c *conn) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.hub.maxMessageSize)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		select {
		case c.hub.frames <- inboundFrame{conn: c, data: data}:
		case <-c.hub.stopped:
			return
		}
	}
}

// writePump drains the outbound buffer to the socket. The hub closing the
// send channel is the signal to say goodbye cleanly.
func (c *conn) writePump() {
	defer c.ws.Close()

	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			c.logger.Error("write error", "error", err)
			return
		}
	}

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
