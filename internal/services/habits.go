package services

import "github.com/sgtbyhqi/genz-planner-app/internal/models"

type Badge string

const (
	BadgeStarter Badge = "starter"
	BadgeSilver  Badge = "silver"
	BadgeGold    Badge = "gold"
	BadgeLegend  Badge = "legend"
)

// HabitTransition is the next streak state of a habit. It is written as one
// merge so the three fields never diverge.
type HabitTransition struct {
	CheckedToday bool
	Streak       int
	LastChecked  string
}

func (transition HabitTransition) Fields() map[string]any {
	return map[string]any{
		"checkedToday": transition.CheckedToday,
		"streak":       transition.Streak,
		"lastChecked":  transition.LastChecked,
	}
}

// ToggleHabit flips the checked flag of habit on the calendar day today.
// A toggle only checks an unchecked habit, so the re-check guard of
// SetChecked never fires here; it applies only to SetChecked(habit, true, today).
func ToggleHabit(habit models.Habit, today string) HabitTransition {
	return SetChecked(habit, !habit.CheckedToday, today)
}

// SetChecked moves a habit to checked or unchecked on day today.
//
// A check counts once per day: re-checking something already counted today
// leaves the streak alone. Unchecking only takes back a check made today, so
// stale history is never decremented. Streak is floored at zero and
// lastChecked always becomes today.
func SetChecked(habit models.Habit, checked bool, today string) HabitTransition {
	countedToday := habit.CheckedToday && habit.LastChecked == today
	next := max(habit.Streak, 0)

	switch {
	case checked && !countedToday:
		next++
	case !checked && countedToday:
		next = max(next-1, 0)
	}

	return HabitTransition{CheckedToday: checked, Streak: next, LastChecked: today}
}

func BadgeFor(streak int) Badge {
	switch {
	case streak >= 30:
		return BadgeLegend
	case streak >= 7:
		return BadgeGold
	case streak >= 3:
		return BadgeSilver
	default:
		return BadgeStarter
	}
}
