package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/clothconnect/internal/service"
)

// PickupHandler serves pickup scheduling and completion.
type PickupHandler struct {
	pickups *service.PickupService
	logger  *slog.Logger
}

func NewPickupHandler(pickups *service.PickupService, logger *slog.Logger) *PickupHandler {
	return &PickupHandler{pickups: pickups, logger: logger}
}

// Scheduled returns the calling NGO's pickups that are still to be done.
//
// HTTP: GET /api/ngos/pickups
func (h *PickupHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	pickups, err := h.pickups.Scheduled(r.Context(), ngo.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pickups)
}

// History returns all of the calling NGO's pickups.
//
// HTTP: GET /api/ngos/donations
func (h *PickupHandler) History(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	pickups, err := h.pickups.ForNGO(r.Context(), ngo.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pickups)
}

// Complete moves a Scheduled pickup to Picked or Rejected.
//
// HTTP: PUT /api/pickups/{id}, PUT /api/ngos/pickups/{id}
func (h *PickupHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	pickup, err := h.pickups.Complete(r.Context(), user, chi.URLParam(r, "id"), in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pickup)
}

// Create lets a donor request a pickup from a chosen NGO directly.
//
// HTTP: POST /api/pickups
func (h *PickupHandler) Create(w http.ResponseWriter, r *http.Request) {
	donor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.DonationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	pickup, err := h.pickups.Create(r.Context(), donor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pickup)
}

// List returns the pickups visible to the caller's role.
//
// HTTP: GET /api/pickups
func (h *PickupHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	pickups, err := h.pickups.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pickups)
}

// Assign records the NGO team member handling a pickup.
//
// HTTP: PUT /api/ngos/pickups/{id}/assign
func (h *PickupHandler) Assign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in struct {
		TeamMember string `json:"teamMember"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	pickup, err := h.pickups.Assign(r.Context(), user, chi.URLParam(r, "id"), in.TeamMember)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pickup)
}

// Export downloads the calling NGO's pickups as CSV.
//
// HTTP: GET /api/ngos/export
//
// The CSV is built in memory first so a store error can still be reported
// as JSON instead of a truncated file.
func (h *PickupHandler) Export(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.pickups.ExportCSV(r.Context(), ngo.ID, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="donations.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("csv export interrupted", slog.String("error", err.Error()))
	}
}
