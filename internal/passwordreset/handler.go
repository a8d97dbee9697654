package passwordreset

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handler serves the password reset endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a reset handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the reset endpoints under /password-reset
func (h *Handler) Routes(r chi.Router) {
	r.Route("/password-reset", func(r chi.Router) {
		r.Post("/request", h.RequestReset)
		r.Post("/validate", h.ValidateToken)
		r.Post("/complete", h.CompleteReset)
	})
}

type resetRequestBody struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenBody struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// RequestReset handles POST /password-reset/request
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var body resetRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.service.Request(r.Context(), body.Email, body.Name)
	if errors.Is(err, ErrInvalidEmail) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue password reset")
		respondError(w, http.StatusInternalServerError, "failed to send password reset email")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":   true,
		"message":   "Password reset email sent",
		"expiresIn": h.service.ttl.String(),
		"expiresAt": req.ExpiresAt,
	})
}

// ValidateToken handles POST /password-reset/validate
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Validate(r.Context(), body.Email, body.Token); err != nil {
		respondTokenError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"message": "Token is valid",
	})
}

// CompleteReset handles POST /password-reset/complete
func (h *Handler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Complete(r.Context(), body.Email, body.Token); err != nil {
		respondTokenError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset completed",
	})
}

func respondTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoRequest), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenUsed), errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrInvalidEmail):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
	default:
		log.Error().Err(err).Msg("Failed to check password reset token")
		respondError(w, http.StatusInternalServerError, "failed to check reset token")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
		"code":    status,
	})
}
