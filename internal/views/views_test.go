package views

import (
	"testing"
	"time"

	"github.com/sgtbyhqi/genz-planner-app/internal/models"
	"github.com/sgtbyhqi/genz-planner-app/internal/services"
)

var baseTime = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

func task(id string, minutes int, priority models.Priority, completed bool) models.Task {
	return models.Task{
		ID:        id,
		Name:      "task " + id,
		Category:  models.TaskCategoryCollege,
		Priority:  priority,
		Completed: completed,
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func ids(tasks []models.Task) []string {
	result := make([]string, len(tasks))
	for index, task := range tasks {
		result[index] = task.ID
	}
	return result
}

func assertIDs(t *testing.T, got []models.Task, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got %v, want %v", gotIDs, want)
	}
	for index := range want {
		if gotIDs[index] != want[index] {
			t.Fatalf("got %v, want %v", gotIDs, want)
		}
	}
}

func TestPendingTasks_NewestFirst(t *testing.T) {
	tasks := []models.Task{
		task("1", 0, models.PriorityImportantUrgent, false),
		task("2", 10, models.PriorityImportantUrgent, false),
	}

	assertIDs(t, PendingTasks(tasks), "2", "1")
}

func TestPendingTasks_DoesNotReorderInput(t *testing.T) {
	tasks := []models.Task{
		task("1", 0, models.PriorityImportantUrgent, false),
		task("2", 10, models.PriorityImportantUrgent, false),
	}
	PendingTasks(tasks)

	assertIDs(t, tasks, "1", "2")
}

func TestCompletedTasks_Complement(t *testing.T) {
	tasks := []models.Task{
		task("1", 0, models.PriorityImportantUrgent, true),
		task("2", 5, models.PriorityImportantUrgent, false),
		task("3", 10, models.PriorityImportantUrgent, true),
	}

	assertIDs(t, CompletedTasks(tasks), "3", "1")
	assertIDs(t, PendingTasks(tasks), "2")
}

func TestTopPriorities_OnlyUrgentImportantIsLifted(t *testing.T) {
	tasks := []models.Task{
		task("a", 0, models.PriorityNotImportantNotUrgent, false),
		task("b", 1, models.PriorityImportantUrgent, false),
		task("c", 2, models.PriorityImportantNotUrgent, false),
		task("d", 3, models.PriorityNotImportantUrgent, false),
		task("e", 4, models.PriorityImportantUrgent, true),
	}

	assertIDs(t, TopPriorities(tasks, 10), "b", "d", "c", "a")
	assertIDs(t, TopPriorities(tasks, 2), "b", "d")
}

func TestSummarize(t *testing.T) {
	tasks := []models.Task{
		task("1", 0, models.PriorityImportantUrgent, true),
		task("2", 1, models.PriorityImportantUrgent, false),
	}
	habits := []models.Habit{
		{ID: "h1", Streak: 4, CheckedToday: true},
		{ID: "h2", Streak: 12},
		{ID: "h3", Streak: 0, CheckedToday: true},
	}

	summary := Summarize(tasks, habits)
	want := Summary{CompletedTasks: 1, TotalTasks: 2, CheckedToday: 2, TotalHabits: 3, LongestStreak: 12}
	if summary != want {
		t.Errorf("got %+v, want %+v", summary, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if summary := Summarize(nil, nil); summary != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", summary)
	}
}

func TestHabitsWithBadges(t *testing.T) {
	views := HabitsWithBadges([]models.Habit{{ID: "h1", Streak: 7}, {ID: "h2", Streak: 1}})

	if views[0].Badge != services.BadgeGold || views[1].Badge != services.BadgeStarter {
		t.Errorf("unexpected badges %v and %v", views[0].Badge, views[1].Badge)
	}
	if views[0].ID != "h1" {
		t.Errorf("expected habit fields to carry through, got %+v", views[0])
	}
}
