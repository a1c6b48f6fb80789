package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackfest-platform/registration-engine/internal/allocation"
	"github.com/hackfest-platform/registration-engine/internal/models"
	"github.com/hackfest-platform/registration-engine/internal/storage"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondRaw writes data as-is, without the apiResponse envelope. The
// public form endpoints predate the envelope and their shapes are frozen.
func respondRaw(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	// Readiness also reflects the backing services the cache and admin
	// tooling depend on.
	if s.registry != nil {
		for name, err := range s.registry.HealthCheckAll(r.Context()) {
			if err != nil {
				slog.Warn("backing service unhealthy", "service", name, "error", err)
				respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready: "+name)
				return
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Registration form handlers

// handleValidateSecret is the form's advisory pre-check. It answers
// whether a group is currently claimable with the given code; the final
// word always belongs to register.
func (s *Server) handleValidateSecret(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondRaw(w, http.StatusBadRequest, map[string]interface{}{
			"valid":   false,
			"message": "Missing fields",
		})
		return
	}

	err := s.engine.ValidateSecret(r.Context(), req.GroupNumber, req.SecretCode)
	if err == nil {
		respondRaw(w, http.StatusOK, map[string]interface{}{"valid": true})
		return
	}

	status, message := http.StatusInternalServerError, "Server Error"
	switch {
	case errors.Is(err, allocation.ErrInvalidRequest):
		status, message = http.StatusBadRequest, "Missing fields"
	case errors.Is(err, allocation.ErrGroupNotFound):
		status, message = http.StatusNotFound, "Group not found"
	case errors.Is(err, allocation.ErrInvalidSecret):
		status, message = http.StatusUnauthorized, "Invalid Secret Code"
	case errors.Is(err, allocation.ErrGroupAssigned):
		status, message = http.StatusBadRequest, "Group already assigned"
	default:
		slog.Error("failed to validate secret", "error", err, "group", req.GroupNumber)
	}

	respondRaw(w, status, map[string]interface{}{
		"valid":   false,
		"message": message,
	})
}

// registerResponse is the frozen wire shape of the register endpoint
type registerResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	Confirmation string       `json:"confirmation,omitempty"`
	Team         *models.Team `json:"team,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondRaw(w, http.StatusBadRequest, registerResponse{
			Success: false,
			Message: "Missing required fields",
		})
		return
	}

	team, err := s.engine.Register(r.Context(), req)
	if err == nil {
		respondRaw(w, http.StatusOK, registerResponse{
			Success:      true,
			Message:      "Registration Successful",
			Confirmation: team.Confirmation,
			Team:         team,
		})
		return
	}

	// Rejections carry a precise reason; every rejection path left the
	// store untouched.
	if message, ok := rejectionMessage(err); ok {
		respondRaw(w, http.StatusBadRequest, registerResponse{
			Success: false,
			Message: message,
		})
		return
	}

	if errors.Is(err, storage.ErrContention) {
		slog.Warn("registration retries exhausted under contention",
			"group", req.GroupNumber, "title", req.ProjectTitle)
		respondRaw(w, http.StatusInternalServerError, registerResponse{
			Success: false,
			Message: "Registration could not be completed, please retry",
		})
		return
	}

	slog.Error("registration failed", "error", err, "group", req.GroupNumber)
	respondRaw(w, http.StatusInternalServerError, registerResponse{
		Success: false,
		Message: "Internal Server Error",
	})
}

// rejectionMessage maps an allocation rejection to the reason shown to
// the participant. Unknown errors are not rejections.
func rejectionMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, allocation.ErrInvalidRequest):
		return "Missing required fields", true
	case errors.Is(err, allocation.ErrGroupNotFound):
		return "Registration Failed. Group not found.", true
	case errors.Is(err, allocation.ErrInvalidSecret):
		return "Registration Failed. Invalid Secret Code.", true
	case errors.Is(err, allocation.ErrGroupAssigned):
		return "Registration Failed. Group already taken.", true
	case errors.Is(err, allocation.ErrTitleNotFound):
		return "Registration Failed. Project title not found.", true
	case errors.Is(err, allocation.ErrTitleAssigned):
		return "Registration Failed. Project title already taken.", true
	case errors.Is(err, allocation.ErrDuplicateTeam):
		return "Registration Failed. A team is already registered for this leader.", true
	}
	return "", false
}

// handleListTitles serves the public title catalog the form renders.
// Served from the cache when available.
func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	var (
		titles []*models.Title
		err    error
	)

	if s.titleCache != nil {
		titles, err = s.titleCache.Titles(r.Context())
	} else {
		titles, err = s.engine.ListTitles(r.Context())
	}
	if err != nil {
		slog.Error("failed to list titles", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list titles")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"titles": titles,
		"total":  len(titles),
	})
}

// handleGetRegistration lets the form show a read-only view when a
// leader who already owns a team returns.
func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	leaderEmail := chi.URLParam(r, "leaderEmail")
	if leaderEmail == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "leader email is required")
		return
	}

	team, err := s.engine.Registration(r.Context(), leaderEmail)
	if err != nil {
		if errors.Is(err, allocation.ErrTeamNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no registration for this leader")
			return
		}
		slog.Error("failed to get registration", "error", err, "leader", leaderEmail)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get registration")
		return
	}

	respondJSON(w, http.StatusOK, team)
}
