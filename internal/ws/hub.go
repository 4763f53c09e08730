package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/schoolhealth/schoolhealth/internal/api"
	"github.com/schoolhealth/schoolhealth/internal/store"
)

const (
	writeWait   = 10 * time.Second
	idleTimeout = 60 * time.Second
	pingEvery   = idleTimeout * 9 / 10
	queueDepth  = 16
	readLimit   = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string               `json:"event"`
	Data  api.SnapshotResponse `json:"data"`
}

// Hub pushes the current analysis snapshot to every connected client, on a
// fixed interval and whenever Notify is called.
type Hub struct {
	store    *store.Store
	alerts   api.AlertSource
	interval time.Duration
	wake     chan struct{}

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// subscriber is one connected client. Each snapshot is encoded once per
// broadcast as a PreparedMessage and shared by all subscribers.
type subscriber struct {
	conn  *websocket.Conn
	queue chan *websocket.PreparedMessage
	once  sync.Once
}

func (s *subscriber) stop() { s.once.Do(func() { close(s.queue) }) }

// New creates a Hub that reads from st and broadcasts every interval.
// al may be nil.
func New(st *store.Store, al api.AlertSource, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		alerts:   al,
		interval: interval,
		wake:     make(chan struct{}, 1),
		subs:     make(map[*subscriber]struct{}),
	}
}

// Run broadcasts until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case <-t.C:
		case <-h.wake:
		}
		if msg := h.snapshot(); msg != nil {
			h.publish(msg)
		}
	}
}

// Notify requests a broadcast from Run, e.g. after a reload. Pending
// requests coalesce.
func (h *Hub) Notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects. The current snapshot, if any, is sent right away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := &subscriber{conn: conn, queue: make(chan *websocket.PreparedMessage, queueDepth)}
	if msg := h.snapshot(); msg != nil {
		s.queue <- msg
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	slog.Debug("ws: client connected", "remote", conn.RemoteAddr().String())

	go s.writeLoop()
	s.readLoop()
	h.drop(s)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// snapshot encodes the current store contents, or returns nil while no data
// has been loaded.
func (h *Hub) snapshot() *websocket.PreparedMessage {
	snap, ok := api.BuildSnapshot(h.store, h.alerts)
	if !ok {
		return nil
	}
	data, err := json.Marshal(Message{Event: "snapshot", Data: snap})
	if err != nil {
		slog.Error("ws: encode snapshot", "err", err)
		return nil
	}
	msg, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		slog.Error("ws: prepare snapshot", "err", err)
		return nil
	}
	return msg
}

// publish queues msg for every client. A client whose queue is full is
// disconnected.
func (h *Hub) publish(msg *websocket.PreparedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.queue <- msg:
		default:
			slog.Warn("ws: client too slow, disconnecting", "remote", s.conn.RemoteAddr().String())
			delete(h.subs, s)
			s.stop()
		}
	}
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.stop()
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		s.stop()
	}
}

// writeLoop is the only writer on the connection. It ends with a close
// frame once the queue is closed, or on the first write error.
func (s *subscriber) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	defer s.conn.Close()

	for {
		select {
		case msg, ok := <-s.queue:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck
				return
			}
			if err := s.conn.WritePreparedMessage(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames so pongs and close frames are processed.
// It returns once the connection is gone or idle past idleTimeout.
func (s *subscriber) readLoop() {
	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(idleTimeout)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}
