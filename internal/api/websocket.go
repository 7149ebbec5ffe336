package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"worldconnector/internal/auth"
	"worldconnector/internal/domain"
	"worldconnector/internal/live"
)

// clientFrame is a frame received on the sync socket.
type clientFrame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
}

// serverFrame is a frame sent on the sync socket. Snapshot frames carry
// exactly one payload field, matching the topic kind.
type serverFrame struct {
	Type     string                `json:"type"`
	ID       string                `json:"id,omitempty"`
	Topic    string                `json:"topic,omitempty"`
	Error    string                `json:"error,omitempty"`
	Profile  *domain.Profile       `json:"profile,omitempty"`
	Profiles []*domain.Profile     `json:"profiles,omitempty"`
	Messages []*domain.ChatMessage `json:"messages,omitempty"`
}

func frameFromSnapshot(id string, snap live.Snapshot) serverFrame {
	return serverFrame{
		Type:     "snapshot",
		ID:       id,
		Topic:    snap.Topic,
		Profile:  snap.Profile,
		Profiles: snap.Profiles,
		Messages: snap.Messages,
	}
}

// Sync handles GET /ws/sync, a long-lived socket multiplexing topic
// subscriptions. Each subscribe frame gets an acknowledgement, an immediate
// full snapshot, and a push on every later change until unsubscribed.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	slog.Info("sync connection opened", "user_id", identity, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept sync socket", "error", err, "user_id", identity)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "sync ended"); closeErr != nil {
			slog.Debug("failed to close sync socket", "error", closeErr, "user_id", identity)
		}
	}()

	conn := &syncConn{
		handler:  h,
		ws:       ws,
		identity: identity,
		subs:     make(map[string]*live.Subscription),
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer conn.teardown()
	defer cancel()

	conn.readLoop(ctx)
	slog.Info("sync connection ended", "user_id", identity)
}

// syncConn tracks one socket's subscriptions, keyed by the client-chosen id.
type syncConn struct {
	handler  *Handler
	ws       *websocket.Conn
	identity string

	mu   sync.Mutex
	subs map[string]*live.Subscription
	wg   sync.WaitGroup
}

func (c *syncConn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("sync socket closed by client", "user_id", c.identity)
			} else {
				slog.Warn("sync socket read error", "error", err, "user_id", c.identity)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.send(ctx, serverFrame{Type: "error", Error: "invalid_frame"})
			continue
		}

		switch frame.Type {
		case "subscribe":
			c.subscribe(ctx, frame.ID, frame.Topic)
		case "unsubscribe":
			c.unsubscribe(frame.ID)
		case "ping":
			c.send(ctx, serverFrame{Type: "pong"})
		default:
			c.send(ctx, serverFrame{Type: "error", ID: frame.ID, Error: "unknown_type"})
		}
	}
}

func (c *syncConn) subscribe(ctx context.Context, id, topic string) {
	if id == "" {
		c.send(ctx, serverFrame{Type: "error", Error: "missing_id"})
		return
	}

	// Register before loading the initial snapshot so a mutation landing in
	// between is not lost; at worst the client sees one state twice.
	sub := c.handler.hub.Subscribe(topic)

	snap, err := c.handler.snapshotFor(ctx, topic)
	if err != nil {
		sub.Cancel()
		if errors.Is(err, errUnknownTopic) {
			c.send(ctx, serverFrame{Type: "error", ID: id, Error: "unknown_topic"})
		} else {
			slog.Error("failed to load initial snapshot", "topic", topic, "user_id", c.identity, "error", err)
			c.send(ctx, serverFrame{Type: "error", ID: id, Error: "snapshot_failed"})
		}
		return
	}

	c.mu.Lock()
	if existing, exists := c.subs[id]; exists {
		existing.Cancel()
	}
	c.subs[id] = sub
	c.mu.Unlock()

	c.send(ctx, serverFrame{Type: "subscribed", ID: id, Topic: topic})
	c.send(ctx, frameFromSnapshot(id, snap))

	c.wg.Add(1)
	go c.pump(ctx, id, sub)
}

// pump forwards snapshots from one subscription to the socket until the
// subscription is cancelled or the socket dies.
func (c *syncConn) pump(ctx context.Context, id string, sub *live.Subscription) {
	defer c.wg.Done()

	for snap := range sub.Updates() {
		data, err := json.Marshal(frameFromSnapshot(id, snap))
		if err != nil {
			slog.Error("failed to encode snapshot frame", "topic", sub.Topic, "error", err)
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("sync write failed, cancelling subscription",
				"topic", sub.Topic, "user_id", c.identity, "error", err)
			sub.Cancel()
			return
		}
	}
}

func (c *syncConn) unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, exists := c.subs[id]; exists {
		sub.Cancel()
		delete(c.subs, id)
	}
}

// teardown cancels every subscription and waits for the pumps to drain. The
// caller cancels the socket context first so blocked writes unwind.
func (c *syncConn) teardown() {
	c.mu.Lock()
	for id, sub := range c.subs {
		sub.Cancel()
		delete(c.subs, id)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *syncConn) send(ctx context.Context, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("failed to encode sync frame", "error", err)
		return
	}
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("failed to write sync frame", "user_id", c.identity, "error", err)
	}
}
