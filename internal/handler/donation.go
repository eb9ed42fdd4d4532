package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/clothconnect/internal/service"
)

// DonationHandler serves the donation lifecycle: donors offer clothes, NGOs
// accept or reject the offer.
type DonationHandler struct {
	donations *service.DonationService
	logger    *slog.Logger
}

func NewDonationHandler(donations *service.DonationService, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{donations: donations, logger: logger}
}

// Create records a new Pending donation for the caller.
//
// HTTP: POST /api/donations
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.DonationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	donation, err := h.donations.Create(r.Context(), user, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, donation)
}

// MyDonations returns the caller's open donations and their pickups as one
// history, newest first.
//
// HTTP: GET /api/donations/my-donations
func (h *DonationHandler) MyDonations(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.donations.History(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Public returns recent donations without donor contact details.
//
// HTTP: GET /api/donations/public
func (h *DonationHandler) Public(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.Public(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// Decide accepts or rejects a Pending donation.
//
// HTTP: PUT /api/donations/{id}, PUT /api/ngos/donations/{id}
func (h *DonationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	ngo, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.DecisionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.donations.Decide(r.Context(), ngo, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// List returns every donation.
//
// HTTP: GET /api/donations, GET /api/donations/admin
func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

// Pending returns donations still waiting for an NGO.
//
// HTTP: GET /api/ngos/pending-donations
func (h *DonationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.Pending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}
