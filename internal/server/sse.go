package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/dropin/internal/events"
)

const (
	// streamBacklog is how many recent events are kept for Last-Event-ID replay.
	streamBacklog = 256

	// streamKeepalive is the interval between comment lines on idle streams.
	streamKeepalive = 15 * time.Second
)

// streamEvent is one lifecycle event as delivered to stream clients.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// eventHub fans lifecycle events out to GET /runs/events clients and keeps
// a short backlog for reconnects. Payloads carry redacted active runs only.
type eventHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	nextID  uint64
	backlog []streamEvent
}

type streamClient struct {
	topics []string
	ch     chan streamEvent
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*streamClient]struct{})}
}

func (h *eventHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	evt := streamEvent{ID: h.nextID, Topic: topic, Data: payload}
	h.backlog = append(h.backlog, evt)
	if len(h.backlog) > streamBacklog {
		h.backlog = h.backlog[len(h.backlog)-streamBacklog:]
	}

	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// slow client; it can catch up with Last-Event-ID
		}
	}
}

func (h *eventHub) subscribe(topics []string) *streamClient {
	c := &streamClient{topics: topics, ch: make(chan streamEvent, 32)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *eventHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns backlog events with ID > lastID, oldest first.
func (h *eventHub) since(lastID uint64) []streamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []streamEvent
	for _, evt := range h.backlog {
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

func (c *streamClient) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if events.Match(p, topic) {
			return true
		}
	}
	return false
}

// broadcastEvent hands an already redacted event to stream clients.
func (s *RunsServer) broadcastEvent(topic string, event any) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for stream", "topic", topic, "error", err)
		return
	}
	s.hub.broadcast(topic, payload)
}

// handleEventStream handles GET /runs/events as a server-sent event stream.
func (s *RunsServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var lastID uint64
	replay := false
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			lastID, replay = id, true
		}
	}
	s.streamEvents(r.Context(), w, flusher, client, lastID, replay)
}

// streamEvents writes backlog events after lastID when replay is set, then
// forwards live events until ctx is done. The client is subscribed before
// the backlog is read, so live events already sent by the replay are
// dropped.
func (s *RunsServer) streamEvents(ctx context.Context, w io.Writer, flusher http.Flusher, client *streamClient, lastID uint64, replay bool) {
	sent := lastID
	if replay {
		for _, evt := range s.hub.since(lastID) {
			if client.wants(evt.Topic) {
				writeStreamEvent(w, evt)
			}
			sent = evt.ID
		}
		flusher.Flush()
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-client.ch:
			if evt.ID <= sent {
				continue
			}
			sent = evt.ID
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w io.Writer, evt streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
