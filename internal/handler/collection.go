package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/service"
)

// CollectionHandler serves an NGO's clothing inventory.
type CollectionHandler struct {
	collections *service.CollectionService
	logger      *slog.Logger
}

func NewCollectionHandler(collections *service.CollectionService, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, logger: logger}
}

// MarkDonated records clothes arriving at the NGO outside the pickup flow.
//
// HTTP: POST /api/ngos/donated
func (h *CollectionHandler) MarkDonated(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.MarkDonatedInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.collections.MarkAsDonated(r.Context(), ngo.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Distribute records items leaving a collection row.
//
// HTTP: PUT /api/ngos/collection/{id}/distribute
func (h *CollectionHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.DistributeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.collections.Distribute(r.Context(), ngo.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// List returns the caller's collection rows. Admins see every NGO's rows.
//
// HTTP: GET /api/ngos/collection, GET /api/collections
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ngoID := user.ID
	if user.Role == model.RoleAdmin {
		ngoID = ""
	}

	rows, err := h.collections.List(r.Context(), ngoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
