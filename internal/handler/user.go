package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/service"
)

// UserHandler serves profile, user administration and NGO directory routes.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Profile returns the caller's own record.
//
// HTTP: GET /api/users/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile changes the caller's editable fields. Role, email and
// password are not part of model.ProfileUpdate, so they are ignored.
//
// HTTP: PUT /api/users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteProfile removes the caller's account.
//
// HTTP: DELETE /api/users/profile
func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

// List returns every user, or only one role with ?role=.
//
// HTTP: GET /api/users/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), model.Role(r.URL.Query().Get("role")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListRole returns a handler that lists users of one role.
//
// HTTP: GET /api/admin/donors, GET /api/admin/ngos, GET /api/ngos
func (h *UserHandler) ListRole(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.users.List(r.Context(), role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// Get returns one user.
//
// HTTP: GET /api/users/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangeRole is the only way a role changes after registration.
//
// HTTP: PUT /api/users/users/{id}
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.ChangeRole(r.Context(), admin, chi.URLParam(r, "id"), in.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete removes one user.
//
// HTTP: DELETE /api/users/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), admin, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// BulkUpdate applies profile updates to several users.
//
// HTTP: POST /api/users/users  {"users": [{"id": "...", "city": "..."}]}
func (h *UserHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in struct {
		Users []service.BulkUpdateItem `json:"users"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	users, err := h.users.BulkUpdate(r.Context(), admin, in.Users)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// BulkDelete removes several users. Unknown ids are skipped.
//
// HTTP: DELETE /api/users/users  {"userIds": ["..."]}
func (h *UserHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in struct {
		UserIDs []string `json:"userIds"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	n, err := h.users.BulkDelete(r.Context(), admin, in.UserIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Users deleted successfully",
		"deleted": n,
	})
}

// VerifyNGO marks an NGO account as verified.
//
// HTTP: PUT /api/ngos/{id}/verify, PUT /api/admin/ngos/{id}/verify
func (h *UserHandler) VerifyNGO(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	ngo, err := h.users.VerifyNGO(r.Context(), admin, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ngo)
}
