package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/pkg/types"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10

	// A reading changes at most once per tick; a viewer four readings
	// behind is dropped.
	viewerBacklog = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 2048,
	// Origin checks belong at the reverse proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is the JSON envelope sent to viewers.
type Message struct {
	Event string        `json:"event"`
	Data  types.Reading `json:"data"`
}

// Hub pushes readings to WebSocket viewers. A viewer gets the current
// reading on connect and one message per Publish after that.
type Hub struct {
	guard   *ratestate.Guard
	pending chan ratestate.Snapshot

	mu      sync.Mutex
	viewers map[*viewer]struct{}
	closed  bool
}

type viewer struct {
	conn *websocket.Conn
	out  chan []byte
	once sync.Once
}

// New returns a Hub that reads the current state from guard for newly
// connected viewers.
func New(guard *ratestate.Guard) *Hub {
	return &Hub{
		guard:   guard,
		pending: make(chan ratestate.Snapshot, 1),
		viewers: make(map[*viewer]struct{}),
	}
}

// Publish queues snap for delivery. It never blocks; a snapshot not yet
// sent is replaced by the newer one.
func (h *Hub) Publish(snap ratestate.Snapshot) {
	for {
		select {
		case h.pending <- snap:
			return
		default:
		}
		select {
		case <-h.pending:
		default:
		}
	}
}

// Run delivers published snapshots until ctx ends, then disconnects every
// viewer.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case snap := <-h.pending:
			msg, err := encode(snap)
			if err != nil {
				slog.Warn("ws: encode reading", "err", err)
				continue
			}
			h.fanOut(msg)
		}
	}
}

// ServeHTTP upgrades the request and holds the connection until the viewer
// leaves or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	v := &viewer{conn: conn, out: make(chan []byte, viewerBacklog)}

	if msg, err := encode(h.guard.Snapshot()); err == nil {
		v.out <- msg
	}
	if !h.join(v) {
		conn.Close()
		return
	}
	slog.Debug("ws: viewer joined", "remote", r.RemoteAddr)
	defer func() {
		h.leave(v)
		slog.Debug("ws: viewer left", "remote", r.RemoteAddr)
	}()

	go v.write()
	v.drain()
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

func encode(snap ratestate.Snapshot) ([]byte, error) {
	return json.Marshal(Message{Event: "reading", Data: snap.Reading(types.FormatTime(time.Now()))})
}

func (h *Hub) join(v *viewer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.viewers[v] = struct{}{}
	return true
}

func (h *Hub) leave(v *viewer) {
	h.mu.Lock()
	delete(h.viewers, v)
	h.mu.Unlock()
	v.hangUp()
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		select {
		case v.out <- msg:
		default:
			slog.Warn("ws: dropping slow viewer", "remote", v.conn.RemoteAddr().String())
			delete(h.viewers, v)
			v.hangUp()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for v := range h.viewers {
		delete(h.viewers, v)
		v.hangUp()
	}
}

// hangUp ends the writer, which sends a close frame and drops the
// connection. Safe to call more than once.
func (v *viewer) hangUp() {
	v.once.Do(func() { close(v.out) })
}

func (v *viewer) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		v.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-v.out:
			v.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// drain discards anything the viewer sends and returns once the
// connection is gone or stops answering pings.
func (v *viewer) drain() {
	v.conn.SetReadLimit(512)
	v.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}
