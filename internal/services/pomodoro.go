package services

import (
	"sync"
	"time"
)

type PomodoroMode string

const (
	PomodoroFocus      PomodoroMode = "focus"
	PomodoroShortBreak PomodoroMode = "short_break"
	PomodoroLongBreak  PomodoroMode = "long_break"
)

type PomodoroStatus string

const (
	PomodoroIdle    PomodoroStatus = "idle"
	PomodoroRunning PomodoroStatus = "running"
	PomodoroPaused  PomodoroStatus = "paused"
)

const (
	FocusDuration      = 25 * time.Minute
	ShortBreakDuration = 5 * time.Minute
	LongBreakDuration  = 15 * time.Minute

	focusSessionsPerLongBreak = 4
)

type PomodoroSnapshot struct {
	Mode             PomodoroMode   `json:"mode"`
	Status           PomodoroStatus `json:"status"`
	RemainingSeconds int            `json:"remainingSeconds"`
	CompletedFocus   int            `json:"completedFocus"`
}

// Pomodoro is a session-local timer. Time only moves when a caller passes
// the current instant in.
type Pomodoro struct {
	mu             sync.Mutex
	mode           PomodoroMode
	status         PomodoroStatus
	remaining      time.Duration
	startedAt      time.Time
	completedFocus int
}

func NewPomodoro() *Pomodoro {
	return &Pomodoro{mode: PomodoroFocus, status: PomodoroIdle, remaining: FocusDuration}
}

func (pomodoro *Pomodoro) Start(now time.Time) PomodoroSnapshot {
	pomodoro.mu.Lock()
	defer pomodoro.mu.Unlock()

	pomodoro.advance(now)
	if pomodoro.status != PomodoroRunning {
		pomodoro.status = PomodoroRunning
		pomodoro.startedAt = now
	}
	return pomodoro.snapshot()
}

func (pomodoro *Pomodoro) Pause(now time.Time) PomodoroSnapshot {
	pomodoro.mu.Lock()
	defer pomodoro.mu.Unlock()

	pomodoro.advance(now)
	if pomodoro.status == PomodoroRunning {
		pomodoro.status = PomodoroPaused
	}
	return pomodoro.snapshot()
}

// Reset stops the timer and restores the full duration of the current mode.
func (pomodoro *Pomodoro) Reset() PomodoroSnapshot {
	pomodoro.mu.Lock()
	defer pomodoro.mu.Unlock()

	pomodoro.status = PomodoroIdle
	pomodoro.remaining = durationOf(pomodoro.mode)
	return pomodoro.snapshot()
}

func (pomodoro *Pomodoro) Snapshot(now time.Time) PomodoroSnapshot {
	pomodoro.mu.Lock()
	defer pomodoro.mu.Unlock()

	pomodoro.advance(now)
	return pomodoro.snapshot()
}

// advance charges elapsed running time. Reaching zero ends the interval and
// leaves the next mode idle at its full duration.
func (pomodoro *Pomodoro) advance(now time.Time) {
	if pomodoro.status != PomodoroRunning {
		return
	}

	elapsed := now.Sub(pomodoro.startedAt)
	if elapsed < pomodoro.remaining {
		pomodoro.remaining -= elapsed
		pomodoro.startedAt = now
		return
	}

	next := PomodoroFocus
	if pomodoro.mode == PomodoroFocus {
		pomodoro.completedFocus++
		next = PomodoroShortBreak
		if pomodoro.completedFocus%focusSessionsPerLongBreak == 0 {
			next = PomodoroLongBreak
		}
	}
	pomodoro.mode = next
	pomodoro.status = PomodoroIdle
	pomodoro.remaining = durationOf(next)
}

func (pomodoro *Pomodoro) snapshot() PomodoroSnapshot {
	return PomodoroSnapshot{
		Mode:             pomodoro.mode,
		Status:           pomodoro.status,
		RemainingSeconds: int((pomodoro.remaining + time.Second - 1) / time.Second),
		CompletedFocus:   pomodoro.completedFocus,
	}
}

func durationOf(mode PomodoroMode) time.Duration {
	switch mode {
	case PomodoroShortBreak:
		return ShortBreakDuration
	case PomodoroLongBreak:
		return LongBreakDuration
	default:
		return FocusDuration
	}
}
