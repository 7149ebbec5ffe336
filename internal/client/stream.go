package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"worldconnector/internal/domain"
	"worldconnector/internal/live"
)

// syncFrame mirrors the backend's sync socket frames in both directions.
type syncFrame struct {
	Type     string                `json:"type"`
	ID       string                `json:"id,omitempty"`
	Topic    string                `json:"topic,omitempty"`
	Error    string                `json:"error,omitempty"`
	Profile  *domain.Profile       `json:"profile,omitempty"`
	Profiles []*domain.Profile     `json:"profiles,omitempty"`
	Messages []*domain.ChatMessage `json:"messages,omitempty"`
}

// Stream is a live feed of snapshot values for one topic. Each stream owns its
// own socket, so cancelling one never disturbs another.
type Stream[T any] struct {
	updates    chan T
	cancel     context.CancelFunc
	cancelOnce sync.Once
}

// Updates returns the channel snapshot values arrive on. It buffers at most
// the latest undelivered value and is closed after Cancel or a transport
// failure.
func (s *Stream[T]) Updates() <-chan T { return s.updates }

// Cancel tears the subscription down. Safe to call repeatedly.
func (s *Stream[T]) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// SubscribeOwnProfile streams the signed-in identity's profile document. A nil
// value means the profile has not been published yet.
func (c *Client) SubscribeOwnProfile(ctx context.Context) (*Stream[*domain.Profile], error) {
	_, identity, namespace := c.session()
	if identity == "" {
		return nil, domain.ErrSignedOut
	}
	topic := live.ProfileTopic(namespace, identity)
	return subscribe(ctx, c, topic, func(f syncFrame) *domain.Profile { return f.Profile })
}

// SubscribeProfiles streams the whole profile collection, own record included;
// callers filter for their views.
func (c *Client) SubscribeProfiles(ctx context.Context) (*Stream[[]*domain.Profile], error) {
	_, identity, namespace := c.session()
	if identity == "" {
		return nil, domain.ErrSignedOut
	}
	topic := live.ProfilesTopic(namespace)
	return subscribe(ctx, c, topic, func(f syncFrame) []*domain.Profile { return f.Profiles })
}

// SubscribeMessages streams the chat timeline.
func (c *Client) SubscribeMessages(ctx context.Context) (*Stream[[]*domain.ChatMessage], error) {
	_, identity, namespace := c.session()
	if identity == "" {
		return nil, domain.ErrSignedOut
	}
	topic := live.MessagesTopic(namespace)
	return subscribe(ctx, c, topic, func(f syncFrame) []*domain.ChatMessage { return f.Messages })
}

func subscribe[T any](ctx context.Context, c *Client, topic string, extract func(syncFrame) T) (*Stream[T], error) {
	token, _, _ := c.session()
	if token == "" {
		return nil, domain.ErrSignedOut
	}

	streamCtx, cancel := context.WithCancel(ctx)

	wsURL := c.serverURL + "/ws/sync?access_token=" + url.QueryEscape(token)
	ws, resp, err := websocket.Dial(streamCtx, wsURL, nil)
	if err != nil {
		cancel()
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			c.handleSignedOut()
			return nil, domain.ErrSignedOut
		}
		return nil, fmt.Errorf("dial sync socket: %w", err)
	}

	frame, err := json.Marshal(syncFrame{Type: "subscribe", ID: uuid.NewString(), Topic: topic})
	if err != nil {
		cancel()
		_ = ws.Close(websocket.StatusInternalError, "encode failed")
		return nil, fmt.Errorf("encode subscribe frame: %w", err)
	}
	if err := ws.Write(streamCtx, websocket.MessageText, frame); err != nil {
		cancel()
		_ = ws.Close(websocket.StatusNormalClosure, "subscribe failed")
		return nil, fmt.Errorf("send subscribe frame: %w", err)
	}

	stream := &Stream[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
	}
	go pumpStream(streamCtx, ws, topic, stream, extract)

	return stream, nil
}

// pumpStream forwards snapshot frames into the stream until the context is
// cancelled or the socket dies.
func pumpStream[T any](ctx context.Context, ws *websocket.Conn, topic string, stream *Stream[T], extract func(syncFrame) T) {
	defer close(stream.updates)
	defer func() {
		_ = ws.Close(websocket.StatusNormalClosure, "subscription ended")
	}()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				slog.Warn("sync stream read failed", "topic", topic, "error", err)
			}
			return
		}

		var frame syncFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("bad sync frame", "topic", topic, "error", err)
			continue
		}

		switch frame.Type {
		case "snapshot":
			pushLatest(stream.updates, extract(frame))
		case "error":
			slog.Warn("sync stream error frame", "topic", topic, "error", frame.Error)
		}
	}
}

// pushLatest mirrors the hub's latest-wins delivery on the client side.
func pushLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- v:
	default:
	}
}
