// Package handler contains the HTTP handlers of the ClothConnect API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Most handlers here are methods with the http.HandlerFunc signature, which
// chi's router accepts directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, query, JSON body)
// 2. Call the service layer with the authenticated user
// 3. Write the HTTP response (status code, headers, JSON body)
//
// Handlers hold no business rules. Lifecycle logic lives in internal/service;
// handlers are the glue between HTTP and those services.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the API banner and the liveness probe.
//
// WHY A STRUCT?
// Even two tiny routes need a dependency (the store), and a struct lets it
// be injected instead of reached through a global.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// Root identifies the API.
//
// HTTP: GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Welcome to ClothConnect API"})
}

// Health pings the store with a short deadline.
//
// HTTP: GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"store":  "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
}
