package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/models"
)

// Seeder inserts one default record into a collection the first time it is
// observed loaded and empty for a user.
type Seeder struct {
	collection string
	insert     func(ctx context.Context, session identity.Session) error

	mu     sync.Mutex
	seeded map[string]bool
}

func NewSeeder(collection string, insert func(ctx context.Context, session identity.Session) error) *Seeder {
	return &Seeder{
		collection: collection,
		insert:     insert,
		seeded:     make(map[string]bool),
	}
}

// Observe reports whether this observation fired the insert. session must be
// the session the observed state was produced for. A failed insert may fire
// again on a later observation.
func (seeder *Seeder) Observe(ctx context.Context, session identity.Session, loading bool, empty bool) (bool, error) {
	if !session.Authenticated() || loading {
		return false, nil
	}

	// A loaded non-empty collection settles the user for good.
	seeder.mu.Lock()
	if seeder.seeded[session.UserID] {
		seeder.mu.Unlock()
		return false, nil
	}
	seeder.seeded[session.UserID] = true
	seeder.mu.Unlock()

	if !empty {
		return false, nil
	}

	if err := seeder.insert(ctx, session); err != nil {
		seeder.mu.Lock()
		delete(seeder.seeded, session.UserID)
		seeder.mu.Unlock()
		return false, fmt.Errorf("seeding %s: %w", seeder.collection, err)
	}

	slog.Info("seeded empty collection", "collection", seeder.collection, "user_id", session.UserID)
	return true, nil
}

func DefaultTask(now time.Time) models.Task {
	return models.Task{
		Name:     "Selesaikan tugas pertamamu",
		Category: models.TaskCategoryCollege,
		Deadline: models.DateKey(now.AddDate(0, 0, 1)),
		Priority: models.PriorityImportantUrgent,
		Subtasks: []models.Subtask{
			{ID: uuid.New().String(), Text: "Baca instruksi", Completed: false},
			{ID: uuid.New().String(), Text: "Kerjakan draf", Completed: false},
		},
		CreatedAt: now,
	}
}

func DefaultHabit(now time.Time) models.Habit {
	return models.Habit{
		Name:      "Minum 8 gelas air",
		Category:  models.HabitCategoryHealth,
		Target:    7,
		CreatedAt: now,
	}
}
