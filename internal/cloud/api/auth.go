package api

import (
	"errors"
	"net/http"
	"strings"

	"laptop-checkpoint/internal/cloud/database"
	"laptop-checkpoint/internal/cloud/models"
	"laptop-checkpoint/internal/cloud/sessions"
	"laptop-checkpoint/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// passwordCost is lowered in tests
var passwordCost = 12

// Login handles POST /auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeErrorResponse(w, r, "Email and password are required", http.StatusBadRequest, codeBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		h.internalError(w, r, err, "login")
		return
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logging.LogSecurityError(h.logger, errors.New("invalid credentials"), req.Email, "login")
		h.writeErrorResponse(w, r, "Invalid credentials", http.StatusUnauthorized, codeUnauthorized)
		return
	}

	if err := h.users.TouchLogin(r.Context(), user.ID); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	tokens, err := h.tokens.issue(r.Context(), user)
	if err != nil {
		h.internalError(w, r, err, "login")
		return
	}

	h.log.WithField("user_id", user.ID).Info("User logged in")
	h.writeJSONResponse(w, tokens, http.StatusOK)
}

// Register handles POST /auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, r, err.Error(), http.StatusBadRequest, codeBadRequest)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		h.writeErrorResponse(w, r, "A valid email is required", http.StatusBadRequest, codeBadRequest)
		return
	}
	if len(req.Password) < minPasswordLength {
		h.writeErrorResponse(w, r, "Password must be at least 8 characters", http.StatusBadRequest, codeBadRequest)
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		h.writeErrorResponse(w, r, "Role must be either 'admin' or 'user'", http.StatusBadRequest, codeBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
	if err != nil {
		h.internalError(w, r, err, "register")
		return
	}

	user := &models.User{Email: req.Email, PasswordHash: string(hash), Role: role}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			h.writeErrorResponse(w, r, "User already exists", http.StatusConflict, codeConflict)
			return
		}
		h.internalError(w, r, err, "register")
		return
	}

	tokens, err := h.tokens.issue(r.Context(), user)
	if err != nil {
		h.internalError(w, r, err, "register")
		return
	}

	h.log.WithField("user_id", user.ID).Info("User registered")
	h.writeJSONResponse(w, tokens, http.StatusCreated)
}

// Refresh handles POST /auth/refresh. The presented token is consumed and a
// new pair issued, so each refresh token works once.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		h.writeErrorResponse(w, r, "refresh_token is required", http.StatusBadRequest, codeBadRequest)
		return
	}

	userID, err := h.sessions.Consume(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, sessions.ErrUnknownToken) {
			logging.LogSecurityError(h.logger, err, "", "refresh")
			h.writeErrorResponse(w, r, "Invalid refresh token", http.StatusUnauthorized, codeUnauthorized)
			return
		}
		h.internalError(w, r, err, "refresh")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.writeErrorResponse(w, r, "Invalid refresh token", http.StatusUnauthorized, codeUnauthorized)
			return
		}
		h.internalError(w, r, err, "refresh")
		return
	}

	tokens, err := h.tokens.issue(r.Context(), user)
	if err != nil {
		h.internalError(w, r, err, "refresh")
		return
	}

	h.writeJSONResponse(w, tokens, http.StatusOK)
}

// Logout handles POST /auth/logout by revoking the refresh token
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		h.writeErrorResponse(w, r, "refresh_token is required", http.StatusBadRequest, codeBadRequest)
		return
	}

	if err := h.sessions.Revoke(r.Context(), req.RefreshToken); err != nil {
		h.internalError(w, r, err, "logout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
