package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gonotes/internal/note"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	subscriberSize = 16
)

// Close codes sent when the hub ends a stream. A dropped subscriber has
// missed events and must reload before trusting its mirror again.
const (
	CloseShutdown = websocket.CloseGoingAway
	CloseDropped  = websocket.CloseTryAgainLater
)

// Subscription is one registered event listener.
type Subscription struct {
	hub     *Hub
	events  chan note.Event
	dropped bool // written under hub.mu before events is closed
}

// Events yields events until the subscription ends.
func (s *Subscription) Events() <-chan note.Event { return s.events }

// Dropped reports whether the hub ended the subscription because it fell
// behind. Only meaningful once Events is closed.
func (s *Subscription) Dropped() bool {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.dropped
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() { s.hub.remove(s, false) }

// Hub fans note events out to websocket subscribers. A subscriber that
// cannot keep up is disconnected rather than allowed to block publishers.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber. On a closed hub the subscription
// starts out ended.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{hub: h, events: make(chan note.Event, subscriberSize)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.events)
	} else {
		h.subs[sub] = struct{}{}
	}
	return sub
}

func (h *Hub) remove(sub *Subscription, dropped bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, dropped)
}

func (h *Hub) removeLocked(sub *Subscription, dropped bool) {
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		sub.dropped = dropped
		close(sub.events)
	}
}

// Publish delivers ev to every subscriber without blocking. Stores call it
// while holding their own lock, so it never calls back out.
func (h *Hub) Publish(ev note.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			h.logger.Warn("dropping slow event subscriber")
			h.removeLocked(sub, true)
		}
	}
}

// Subscribers reports the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		h.removeLocked(sub, false)
	}
}

// ServeHTTP upgrades the request to a websocket and streams events as JSON
// text messages until either side goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade", "err", err)
		return
	}
	defer conn.Close()

	sub := h.Subscribe()
	defer sub.Close()

	// Inbound messages are ignored; reading is only how a close is noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				code, reason := CloseShutdown, "server shutting down"
				if sub.Dropped() {
					code, reason = CloseDropped, "subscriber fell behind"
				}
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("event write failed", "err", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
