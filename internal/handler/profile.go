package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inkwell/internal/service"
)

// ProfileHandler serves the signed-in user's own account.
//
// Edits change the claims a session carries, so every successful PATCH
// replaces the session cookie with a freshly issued token.
type ProfileHandler struct {
	identity *service.IdentityService
	session  Session
	logger   *slog.Logger
}

func NewProfileHandler(identity *service.IdentityService, session Session, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		identity: identity,
		session:  session,
		logger:   logger,
	}
}

// HandleGet returns the current user.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.Me(r.Context(), callerFrom(r))
	if err != nil {
		fail(h.logger, w, r, "loading profile failed", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleUpdate edits name, username and bio.
//
// HTTP: PATCH /api/profile
// REQUEST BODY: {"name":"Ada","username":"ada_l","bio":"…"}
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.UpdateProfile(r.Context(), callerFrom(r), in)
	if err != nil {
		fail(h.logger, w, r, "updating profile failed", err)
		return
	}

	h.session.set(w, result.Token)
	writeJSON(w, http.StatusOK, userResponse{User: result.User})
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleChangePassword replaces the password after checking the current one.
//
// HTTP: PATCH /api/profile/password
// REQUEST BODY: {"currentPassword":"…","newPassword":"…"}
// RESPONSE: 204 with a new session cookie
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.ChangePassword(r.Context(), callerFrom(r), req.CurrentPassword, req.NewPassword)
	if err != nil {
		fail(h.logger, w, r, "changing password failed", err)
		return
	}

	h.session.set(w, result.Token)
	w.WriteHeader(http.StatusNoContent)
}
