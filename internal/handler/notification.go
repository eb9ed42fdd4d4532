package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/clothconnect/internal/notify"
	"github.com/sakif/clothconnect/internal/service"
)

// DefaultHeartbeat is how often an idle event stream sends a comment line so
// proxies do not close it.
const DefaultHeartbeat = 25 * time.Second

// NotificationHandler serves the stored notification inbox and the live
// event stream.
type NotificationHandler struct {
	notifications *service.NotificationService
	hub           *notify.Hub
	heartbeat     time.Duration
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, hub *notify.Hub, heartbeat time.Duration, logger *slog.Logger) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &NotificationHandler{
		notifications: notifications,
		hub:           hub,
		heartbeat:     heartbeat,
		logger:        logger,
	}
}

// List returns the caller's latest unexpired notifications.
//
// HTTP: GET /api/notifications, GET /api/ngos/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.notifications.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkRead marks one notification as read.
//
// HTTP: PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkAllRead marks every notification of the caller as read.
//
// HTTP: PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications marked as read",
		"updated": n,
	})
}

// Create stores a notification addressed to the caller.
//
// HTTP: POST /api/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	n, err := h.notifications.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UnreadCount returns how many of the caller's notifications are unread.
//
// HTTP: GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.UnreadCount(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Delete removes one of the caller's notifications.
//
// HTTP: DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Notification deleted"})
}

// Stream pushes the caller's new notifications as Server-Sent Events.
//
// HTTP: GET /api/notifications/stream
//
// WIRE FORMAT:
//
//	data: {"id":"...","title":"Donation accepted",...}\n\n
//	: heartbeat\n\n
//
// The stream stays open until the client goes away (request context done)
// or the hub closes the subscription.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// The server-wide write timeout would cut the stream off.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("event stream: write deadline not adjustable", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream: response cannot be flushed", slog.String("error", err.Error()))
		return
	}

	sub := h.hub.Connect(user.ID)
	defer h.hub.Disconnect(sub)

	h.logger.Debug("event stream opened", slog.String("user_id", user.ID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("event stream closed", slog.String("user_id", user.ID))
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}

		case n, open := <-sub.C:
			if !open {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("event stream: encoding notification",
					slog.String("notification_id", n.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
		}

		if err := rc.Flush(); err != nil {
			return
		}
	}
}
