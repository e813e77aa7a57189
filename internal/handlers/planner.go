package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sgtbyhqi/genz-planner-app/internal/middleware"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

// PlannerHandler serves the caller's workspace. Writes answer 202: the new
// state arrives with the next dashboard push.
type PlannerHandler struct{}

func NewPlannerHandler() *PlannerHandler {
	return &PlannerHandler{}
}

var accepted = map[string]string{"status": "accepted"}

func (handler *PlannerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.GetWorkspace(r.Context()).Dashboard())
}

func (handler *PlannerHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input workspace.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := middleware.GetWorkspace(r.Context()).AddTask(r.Context(), input); err != nil {
		writeError(w, "adding task", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch workspace.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := middleware.GetWorkspace(r.Context()).UpdateTask(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, "updating task", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetWorkspace(r.Context()).ToggleTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "toggling task", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	err := middleware.GetWorkspace(r.Context()).ToggleSubtask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subtaskID"))
	if err != nil {
		writeError(w, "toggling subtask", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetWorkspace(r.Context()).DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting task", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var input workspace.HabitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := middleware.GetWorkspace(r.Context()).AddHabit(r.Context(), input); err != nil {
		writeError(w, "adding habit", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) ToggleHabit(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetWorkspace(r.Context()).ToggleHabit(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "toggling habit", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := middleware.GetWorkspace(r.Context()).DeleteHabit(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting habit", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (handler *PlannerHandler) Reflection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.GetWorkspace(r.Context()).TodayReflection())
}

func (handler *PlannerHandler) ReflectionByDate(w http.ResponseWriter, r *http.Request) {
	reflection, err := middleware.GetWorkspace(r.Context()).ReflectionFor(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, "loading reflection", err)
		return
	}
	writeJSON(w, http.StatusOK, reflection)
}

func (handler *PlannerHandler) SaveReflection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := middleware.GetWorkspace(r.Context()).SaveReflection(r.Context(), body.Content); err != nil {
		writeError(w, "saving reflection", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (handler *PlannerHandler) ToggleRoutine(w http.ResponseWriter, r *http.Request) {
	block, err := strconv.Atoi(chi.URLParam(r, "block"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid block"})
		return
	}

	checked, err := middleware.GetWorkspace(r.Context()).ToggleRoutine(block, chi.URLParam(r, "activityID"))
	if err != nil {
		writeError(w, "toggling routine", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"checked": checked})
}

func (handler *PlannerHandler) Pomodoro(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetWorkspace(r.Context())

	switch chi.URLParam(r, "action") {
	case "start":
		writeJSON(w, http.StatusOK, current.StartPomodoro())
	case "pause":
		writeJSON(w, http.StatusOK, current.PausePomodoro())
	case "reset":
		writeJSON(w, http.StatusOK, current.ResetPomodoro())
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown pomodoro action"})
	}
}
