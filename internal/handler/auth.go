package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// Session holds the cookie settings shared by every handler that issues or
// clears a session.
type Session struct {
	TTL    time.Duration
	Secure bool
}

func (s Session) set(w http.ResponseWriter, token string) {
	auth.SetSessionCookie(w, token, s.TTL, s.Secure)
}

func (s Session) clear(w http.ResponseWriter) {
	auth.ClearSessionCookie(w, s.Secure)
}

// userResponse wraps a user the way every account endpoint returns it.
type userResponse struct {
	User *model.User `json:"user"`
}

// AuthHandler serves registration, login and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account (no session is started)
//   - HandleLogin    → verify credentials and set the session cookie
//   - HandleLogout   → clear the session cookie
type AuthHandler struct {
	identity *service.IdentityService
	session  Session
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(identity *service.IdentityService, session Session, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		session:  session,
		logger:   logger,
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name":"Ada","email":"ada@example.com","password":"…","username":"ada"}
// RESPONSE: 201 {"user": {...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.identity.Register(r.Context(), in)
	if err != nil {
		fail(h.logger, w, r, "register failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and starts a session.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"ada@example.com","password":"…"}
// RESPONSE: 200 {"user": {...}} plus an HttpOnly session cookie
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(h.logger, w, r, "login failed", err)
		return
	}

	h.session.set(w, result.Token)
	writeJSON(w, http.StatusOK, userResponse{User: result.User})
}

// HandleLogout drops the session cookie. The token itself stays valid until
// it expires.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.session.clear(w)
	w.WriteHeader(http.StatusNoContent)
}
