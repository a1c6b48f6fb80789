package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hackfest-platform/registration-engine/internal/allocation"
	"github.com/hackfest-platform/registration-engine/internal/models"
)

// Admin handlers: seeding groups and titles, listing registrations.

func (s *Server) handleAdminListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.engine.ListGroups(r.Context())
	if err != nil {
		slog.Error("failed to list groups", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list groups")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
		"total":  len(groups),
	})
}

func (s *Server) handleAdminCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	group, err := s.engine.AddGroup(r.Context(), req.Number, req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, "validation_error", "group number and secret are required")
		case errors.Is(err, allocation.ErrGroupExists):
			respondError(w, http.StatusConflict, "already_exists", "group already exists")
		default:
			slog.Error("failed to create group", "error", err, "group", req.Number)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to create group")
		}
		return
	}

	respondJSON(w, http.StatusCreated, group)
}

func (s *Server) handleAdminCreateTitle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	title, err := s.engine.AddTitle(r.Context(), req.Title)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, "validation_error", "title is required")
		case errors.Is(err, allocation.ErrTitleExists):
			respondError(w, http.StatusConflict, "already_exists", "title already exists")
		default:
			slog.Error("failed to create title", "error", err, "title", req.Title)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to create title")
		}
		return
	}

	respondJSON(w, http.StatusCreated, title)
}

func (s *Server) handleAdminListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.engine.ListTeams(r.Context())
	if err != nil {
		slog.Error("failed to list teams", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": teams,
		"total": len(teams),
	})
}
