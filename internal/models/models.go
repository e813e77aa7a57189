package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidTarget   = errors.New("habit target must be between 1 and 7")
	ErrInvalidDate     = errors.New("invalid calendar date")
	ErrEmptyName       = errors.New("name is required")
)

const DateLayout = "2006-01-02"

type TaskCategory string

const (
	TaskCategoryCollege      TaskCategory = "Kuliah"
	TaskCategoryWork         TaskCategory = "Pekerjaan"
	TaskCategoryPersonal     TaskCategory = "Pribadi"
	TaskCategoryOrganization TaskCategory = "Organisasi"
	TaskCategoryOther        TaskCategory = "Lainnya"
)

var TaskCategories = []TaskCategory{
	TaskCategoryCollege,
	TaskCategoryWork,
	TaskCategoryPersonal,
	TaskCategoryOrganization,
	TaskCategoryOther,
}

type Priority string

// Ranked from most to least pressing.
const (
	PriorityImportantUrgent       Priority = "Penting - Mendesak"
	PriorityImportantNotUrgent    Priority = "Penting - Tidak Mendesak"
	PriorityNotImportantUrgent    Priority = "Tidak Penting - Mendesak"
	PriorityNotImportantNotUrgent Priority = "Tidak Penting - Tidak Mendesak"
)

var Priorities = []Priority{
	PriorityImportantUrgent,
	PriorityImportantNotUrgent,
	PriorityNotImportantUrgent,
	PriorityNotImportantNotUrgent,
}

type HabitCategory string

const (
	HabitCategoryHealth       HabitCategory = "Kesehatan"
	HabitCategoryProductivity HabitCategory = "Produktivitas"
	HabitCategoryLearning     HabitCategory = "Belajar"
	HabitCategorySpiritual    HabitCategory = "Spiritual"
	HabitCategorySocial       HabitCategory = "Sosial"
)

var HabitCategories = []HabitCategory{
	HabitCategoryHealth,
	HabitCategoryProductivity,
	HabitCategoryLearning,
	HabitCategorySpiritual,
	HabitCategorySocial,
}

type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID        string       `json:"id,omitempty"`
	Name      string       `json:"name"`
	Category  TaskCategory `json:"category"`
	Deadline  string       `json:"deadline"`
	Priority  Priority     `json:"priority"`
	Subtasks  []Subtask    `json:"subtasks"`
	Completed bool         `json:"completed"`
	CreatedAt time.Time    `json:"createdAt"`
}

type Habit struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"`
	Category     HabitCategory `json:"category"`
	Target       int           `json:"target"`
	Streak       int           `json:"streak"`
	LastChecked  string        `json:"lastChecked"`
	CheckedToday bool          `json:"checkedToday"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// DailyReflection is stored under the document id of its calendar date.
type DailyReflection struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (task Task) Validate() error {
	if task.Name == "" {
		return ErrEmptyName
	}
	if !validTaskCategory(task.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, task.Category)
	}
	if !validPriority(task.Priority) {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, task.Priority)
	}
	if task.Deadline != "" {
		if _, err := ParseDate(task.Deadline); err != nil {
			return err
		}
	}
	return nil
}

func (habit Habit) Validate() error {
	if habit.Name == "" {
		return ErrEmptyName
	}
	if !validHabitCategory(habit.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, habit.Category)
	}
	if habit.Target < 1 || habit.Target > 7 {
		return ErrInvalidTarget
	}
	return nil
}

// DateKey formats the local calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

func validTaskCategory(category TaskCategory) bool {
	for _, candidate := range TaskCategories {
		if candidate == category {
			return true
		}
	}
	return false
}

func validHabitCategory(category HabitCategory) bool {
	for _, candidate := range HabitCategories {
		if candidate == category {
			return true
		}
	}
	return false
}

func validPriority(priority Priority) bool {
	for _, candidate := range Priorities {
		if candidate == priority {
			return true
		}
	}
	return false
}
