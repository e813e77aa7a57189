package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sgtbyhqi/genz-planner-app/internal/binding"
	"github.com/sgtbyhqi/genz-planner-app/internal/models"
	"github.com/sgtbyhqi/genz-planner-app/internal/services"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a failed operation onto a short inline message.
func writeError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyName),
		errors.Is(err, models.ErrInvalidCategory),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, models.ErrInvalidTarget),
		errors.Is(err, models.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, workspace.ErrTaskNotFound),
		errors.Is(err, workspace.ErrSubtaskNotFound),
		errors.Is(err, workspace.ErrHabitNotFound),
		errors.Is(err, services.ErrUnknownActivity):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrSaveInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrNoSession), errors.Is(err, binding.ErrNotBound):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in", "action": "reload"})
	default:
		slog.Error(action, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "request failed, try again"})
	}
}
