package workspace

import (
	"fmt"

	"github.com/sgtbyhqi/genz-planner-app/internal/binding"
	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/models"
	"github.com/sgtbyhqi/genz-planner-app/internal/services"
	"github.com/sgtbyhqi/genz-planner-app/internal/views"
)

type RoutineProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

type ReflectionView struct {
	Today  models.DailyReflection    `json:"today"`
	Status services.ReflectionStatus `json:"status"`
	Saving bool                      `json:"saving"`
}

// Dashboard is everything the client renders, derived fresh on each call.
type Dashboard struct {
	Session         identity.Session          `json:"session"`
	Today           string                    `json:"today"`
	Summary         views.Summary             `json:"summary"`
	PendingTasks    []models.Task             `json:"pendingTasks"`
	CompletedTasks  []models.Task             `json:"completedTasks"`
	TopPriorities   []models.Task             `json:"topPriorities"`
	Habits          []views.HabitView         `json:"habits"`
	Routine         []services.ChecklistBlock `json:"routine"`
	RoutineProgress RoutineProgress           `json:"routineProgress"`
	Reflection      ReflectionView            `json:"reflection"`
	Pomodoro        services.PomodoroSnapshot `json:"pomodoro"`
	Loading         bool                      `json:"loading"`
	LoadingMessages map[string]string         `json:"loadingMessages,omitempty"`
}

func (workspace *Workspace) Dashboard() Dashboard {
	now := workspace.now()
	tasks := workspace.tasks.State()
	habits := workspace.habits.State()
	reflections := workspace.reflections.State()
	done, total := workspace.checklist.Progress()

	dashboard := Dashboard{
		Session:         workspace.Session(),
		Today:           models.DateKey(now),
		Summary:         views.Summarize(tasks.Items, habits.Items),
		PendingTasks:    views.PendingTasks(tasks.Items),
		CompletedTasks:  views.CompletedTasks(tasks.Items),
		TopPriorities:   views.TopPriorities(tasks.Items, topPriorityCount),
		Habits:          views.HabitsWithBadges(habits.Items),
		Routine:         workspace.checklist.Blocks(),
		RoutineProgress: RoutineProgress{Done: done, Total: total},
		Reflection: ReflectionView{
			Today:  workspace.TodayReflection(),
			Status: workspace.reflection.Status(),
			Saving: workspace.reflection.Saving(),
		},
		Pomodoro:        workspace.pomodoro.Snapshot(now),
		Loading:         tasks.Loading || habits.Loading || reflections.Loading,
		LoadingMessages: make(map[string]string),
	}

	addLoadingMessage(dashboard.LoadingMessages, workspace.tasks.Collection(), tasks)
	addLoadingMessage(dashboard.LoadingMessages, workspace.habits.Collection(), habits)
	addLoadingMessage(dashboard.LoadingMessages, workspace.reflections.Collection(), reflections)
	return dashboard
}

func addLoadingMessage[T any](messages map[string]string, collection string, state binding.State[T]) {
	switch {
	case state.Err != nil:
		messages[collection] = fmt.Sprintf("could not load %s: %v", collection, state.Err)
	case state.Loading:
		messages[collection] = fmt.Sprintf("loading %s", collection)
	}
}
