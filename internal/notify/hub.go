// Package notify delivers notifications to users outside the request that
// created them: live to connected browsers through the Hub, and by email
// through a Mailer.
package notify

import (
	"log/slog"
	"sync"

	"github.com/sakif/clothconnect/internal/model"
)

// DefaultBuffer is how many undelivered notifications a subscription holds
// before further sends to it are dropped.
const DefaultBuffer = 16

// Subscription is one live connection for a user. Read notifications from C
// until it is closed by Disconnect.
type Subscription struct {
	UserID string
	C      <-chan model.Notification

	ch chan model.Notification
}

// Hub is the registry of live connections, keyed by user id. A user may have
// several subscriptions open at once (one per browser tab).
//
// Create one Hub at startup and share it; the zero value is not usable.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Connect registers a new subscription for userID.
func (h *Hub) Connect(userID string) *Subscription {
	ch := make(chan model.Notification, h.buffer)
	sub := &Subscription{UserID: userID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	h.logger.Debug("notification stream connected",
		slog.String("user_id", userID),
		slog.Int("connections", len(h.subs[userID])),
	)
	return sub
}

// Disconnect removes sub and closes its channel. Calling it twice is safe.
func (h *Hub) Disconnect(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.UserID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.UserID)
	}

	h.logger.Debug("notification stream disconnected", slog.String("user_id", sub.UserID))
}

// Send pushes n to every live subscription of userID and returns how many
// received it. It never blocks: a subscription whose buffer is full misses
// this notification, which it can still read from the store later.
func (h *Hub) Send(userID string, n model.Notification) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- n:
			delivered++
		default:
			h.logger.Warn("notification dropped, subscriber too slow",
				slog.String("user_id", userID),
				slog.String("notification_id", n.ID),
			)
		}
	}
	return delivered
}

// Connections reports how many live subscriptions userID has.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
