package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/auth"
)

// AuthHandler issues spectator and operator tokens.
type AuthHandler struct {
	jwtMgr      *auth.JWTManager
	operatorKey string
	devMode     bool
}

// NewAuthHandler creates an AuthHandler. An empty operatorKey disables
// operator login.
func NewAuthHandler(jwtMgr *auth.JWTManager, operatorKey string, devMode bool) *AuthHandler {
	return &AuthHandler{jwtMgr: jwtMgr, operatorKey: operatorKey, devMode: devMode}
}

// SpectatorLogin handles POST /auth/spectator?name=. Spectator tokens can
// read matches and watch them live.
func (h *AuthHandler) SpectatorLogin(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "spectator"
	}
	h.issue(w, "spectator-"+uuid.NewString(), name, auth.RoleSpectator)
}

// OperatorLogin handles POST /auth/operator with {"key": "..."}.
func (h *AuthHandler) OperatorLogin(w http.ResponseWriter, r *http.Request) {
	if h.operatorKey == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(h.operatorKey)) != 1 {
		log.Warn().Str("remote", r.RemoteAddr).Msg("Rejected operator login")
		writeError(w, http.StatusUnauthorized, "invalid operator key")
		return
	}
	if req.Name == "" {
		req.Name = "operator"
	}
	h.issue(w, "operator-"+req.Name, req.Name, auth.RoleOperator)
}

// DevLogin handles POST /auth/dev?name=&role=. It issues any role without a
// key and only works in dev mode.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name parameter")
		return
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		role = auth.RoleOperator
	}
	if !auth.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	h.issue(w, "dev-"+name, name, role)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := h.jwtMgr.ValidateToken(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	h.issue(w, claims.Subject, claims.Name, claims.Role)
}

func (h *AuthHandler) issue(w http.ResponseWriter, subject, name, role string) {
	tokens, err := h.jwtMgr.GenerateTokenPair(subject, name, role)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to generate tokens")
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
