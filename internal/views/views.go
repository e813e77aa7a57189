// Package views derives dashboard state from mirrored collections. Every
// function is pure and recomputed on each call.
package views

import (
	"slices"

	"github.com/sgtbyhqi/genz-planner-app/internal/models"
	"github.com/sgtbyhqi/genz-planner-app/internal/services"
)

type Summary struct {
	CompletedTasks int `json:"completedTasks"`
	TotalTasks     int `json:"totalTasks"`
	CheckedToday   int `json:"checkedToday"`
	TotalHabits    int `json:"totalHabits"`
	LongestStreak  int `json:"longestStreak"`
}

type HabitView struct {
	models.Habit
	Badge services.Badge `json:"badge"`
}

// PendingTasks returns incomplete tasks, newest first.
func PendingTasks(tasks []models.Task) []models.Task {
	return newestFirst(filterTasks(tasks, false))
}

// CompletedTasks returns completed tasks, newest first.
func CompletedTasks(tasks []models.Task) []models.Task {
	return newestFirst(filterTasks(tasks, true))
}

// TopPriorities ranks pending tasks with only "Penting - Mendesak" lifted to
// the front; every other priority keeps its pending order.
func TopPriorities(tasks []models.Task, limit int) []models.Task {
	ranked := PendingTasks(tasks)
	slices.SortStableFunc(ranked, func(a, b models.Task) int {
		return urgentRank(a) - urgentRank(b)
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func Summarize(tasks []models.Task, habits []models.Habit) Summary {
	summary := Summary{TotalTasks: len(tasks), TotalHabits: len(habits)}
	for _, task := range tasks {
		if task.Completed {
			summary.CompletedTasks++
		}
	}
	for _, habit := range habits {
		if habit.CheckedToday {
			summary.CheckedToday++
		}
		summary.LongestStreak = max(summary.LongestStreak, habit.Streak)
	}
	return summary
}

func HabitsWithBadges(habits []models.Habit) []HabitView {
	views := make([]HabitView, 0, len(habits))
	for _, habit := range habits {
		views = append(views, HabitView{Habit: habit, Badge: services.BadgeFor(habit.Streak)})
	}
	return views
}

func filterTasks(tasks []models.Task, completed bool) []models.Task {
	filtered := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Completed == completed {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

func newestFirst(tasks []models.Task) []models.Task {
	slices.SortStableFunc(tasks, func(a, b models.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return tasks
}

func urgentRank(task models.Task) int {
	if task.Priority == models.PriorityImportantUrgent {
		return 0
	}
	return 1
}
