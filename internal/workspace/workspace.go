// Package workspace composes the per-client state: collection mirrors bound
// to the client's session plus the session-local routine, reflection and
// pomodoro state.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgtbyhqi/genz-planner-app/internal/binding"
	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/models"
	"github.com/sgtbyhqi/genz-planner-app/internal/services"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
)

const (
	TasksCollection  = "tasks"
	HabitsCollection = "habits"

	topPriorityCount = 3
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrHabitNotFound   = errors.New("habit not found")
)

type Dependencies struct {
	Store                  store.Store
	AppID                  string
	ReflectionStatusWindow time.Duration
	// RoutineStartsChecked selects the variant that mounts the routine fully
	// checked.
	RoutineStartsChecked bool
	Now                  func() time.Time
}

type Workspace struct {
	clientID string
	now      func() time.Time

	watcher     *identity.Watcher
	tasks       *binding.Mirror[models.Task]
	habits      *binding.Mirror[models.Habit]
	reflections *binding.Mirror[models.DailyReflection]

	taskSeeder  *services.Seeder
	habitSeeder *services.Seeder
	checklist   *services.Checklist
	reflection  *services.ReflectionForm
	pomodoro    *services.Pomodoro

	mu          sync.Mutex
	lastSeen    time.Time
	closed      bool
	subscribers map[chan struct{}]struct{}
	cancels     []func()
}

func New(clientID string, dependencies Dependencies) *Workspace {
	now := dependencies.Now
	if now == nil {
		now = time.Now
	}

	workspace := &Workspace{
		clientID:    clientID,
		now:         now,
		watcher:     identity.NewWatcher(identity.Unauthenticated),
		tasks:       binding.New[models.Task](dependencies.Store, dependencies.AppID, TasksCollection, binding.WithSortField("createdAt")),
		habits:      binding.New[models.Habit](dependencies.Store, dependencies.AppID, HabitsCollection, binding.WithSortField("createdAt")),
		reflections: binding.New[models.DailyReflection](dependencies.Store, dependencies.AppID, services.ReflectionsCollection),
		checklist:   services.NewChecklist(services.DefaultRoutine(), dependencies.RoutineStartsChecked),
		reflection:  services.NewReflectionForm(dependencies.Store, dependencies.AppID, dependencies.ReflectionStatusWindow),
		pomodoro:    services.NewPomodoro(),
		lastSeen:    now(),
		subscribers: make(map[chan struct{}]struct{}),
	}

	workspace.taskSeeder = services.NewSeeder(TasksCollection, func(ctx context.Context, session identity.Session) error {
		return workspace.tasks.AddFor(ctx, session, services.DefaultTask(workspace.now()))
	})
	workspace.habitSeeder = services.NewSeeder(HabitsCollection, func(ctx context.Context, session identity.Session) error {
		return workspace.habits.AddFor(ctx, session, services.DefaultHabit(workspace.now()))
	})

	workspace.cancels = append(workspace.cancels,
		workspace.watcher.OnSessionChange(workspace.bind),
		workspace.tasks.OnChange(func(state binding.State[models.Task]) {
			workspace.seed(workspace.taskSeeder, state.Session, state.Loading, state.Err, len(state.Items))
			workspace.publish()
		}),
		workspace.habits.OnChange(func(state binding.State[models.Habit]) {
			workspace.seed(workspace.habitSeeder, state.Session, state.Loading, state.Err, len(state.Items))
			workspace.publish()
		}),
		workspace.reflections.OnChange(func(binding.State[models.DailyReflection]) {
			workspace.publish()
		}),
	)
	workspace.reflection.OnStatusChange(workspace.publish)

	return workspace
}

func (workspace *Workspace) ClientID() string {
	return workspace.clientID
}

func (workspace *Workspace) Session() identity.Session {
	return workspace.watcher.Current()
}

// SignIn replaces the session; every mirror rebinds to it.
func (workspace *Workspace) SignIn(session identity.Session) {
	workspace.watcher.Set(session)
}

func (workspace *Workspace) SignOut() {
	workspace.watcher.Set(identity.Unauthenticated)
}

type TaskInput struct {
	Name     string              `json:"name"`
	Category models.TaskCategory `json:"category"`
	Deadline string              `json:"deadline"`
	Priority models.Priority     `json:"priority"`
	Subtasks []string            `json:"subtasks"`
}

func (workspace *Workspace) AddTask(ctx context.Context, input TaskInput) error {
	task := models.Task{
		Name:      input.Name,
		Category:  input.Category,
		Deadline:  input.Deadline,
		Priority:  input.Priority,
		Subtasks:  make([]models.Subtask, 0, len(input.Subtasks)),
		CreatedAt: workspace.now(),
	}
	for _, text := range input.Subtasks {
		if text == "" {
			continue
		}
		task.Subtasks = append(task.Subtasks, models.Subtask{ID: uuid.New().String(), Text: text})
	}
	if err := task.Validate(); err != nil {
		return err
	}
	return workspace.tasks.Add(ctx, task)
}

// TaskPatch names the task fields to change; nil fields are left alone.
type TaskPatch struct {
	Name     *string              `json:"name"`
	Category *models.TaskCategory `json:"category"`
	Deadline *string              `json:"deadline"`
	Priority *models.Priority     `json:"priority"`
}

func (workspace *Workspace) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	task, err := workspace.findTask(id)
	if err != nil {
		return err
	}

	fields := make(map[string]any)
	if patch.Name != nil {
		task.Name = *patch.Name
		fields["name"] = *patch.Name
	}
	if patch.Category != nil {
		task.Category = *patch.Category
		fields["category"] = string(*patch.Category)
	}
	if patch.Deadline != nil {
		task.Deadline = *patch.Deadline
		fields["deadline"] = *patch.Deadline
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
		fields["priority"] = string(*patch.Priority)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := task.Validate(); err != nil {
		return err
	}
	return workspace.tasks.Update(ctx, id, fields)
}

func (workspace *Workspace) ToggleTask(ctx context.Context, id string) error {
	task, err := workspace.findTask(id)
	if err != nil {
		return err
	}
	return workspace.tasks.Update(ctx, id, map[string]any{"completed": !task.Completed})
}

// ToggleSubtask rewrites the subtask list with one entry flipped. The task's
// own completed flag is not touched.
func (workspace *Workspace) ToggleSubtask(ctx context.Context, taskID string, subtaskID string) error {
	task, err := workspace.findTask(taskID)
	if err != nil {
		return err
	}

	subtasks := make([]models.Subtask, len(task.Subtasks))
	copy(subtasks, task.Subtasks)
	found := false
	for index := range subtasks {
		if subtasks[index].ID == subtaskID {
			subtasks[index].Completed = !subtasks[index].Completed
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSubtaskNotFound, subtaskID)
	}

	fields, err := store.Encode(struct {
		Subtasks []models.Subtask `json:"subtasks"`
	}{Subtasks: subtasks})
	if err != nil {
		return err
	}
	return workspace.tasks.Update(ctx, taskID, fields)
}

func (workspace *Workspace) DeleteTask(ctx context.Context, id string) error {
	return workspace.tasks.Remove(ctx, id)
}

type HabitInput struct {
	Name     string               `json:"name"`
	Category models.HabitCategory `json:"category"`
	Target   int                  `json:"target"`
}

func (workspace *Workspace) AddHabit(ctx context.Context, input HabitInput) error {
	habit := models.Habit{
		Name:      input.Name,
		Category:  input.Category,
		Target:    input.Target,
		CreatedAt: workspace.now(),
	}
	if err := habit.Validate(); err != nil {
		return err
	}
	return workspace.habits.Add(ctx, habit)
}

// ToggleHabit writes the streak transition for today as a single merge.
func (workspace *Workspace) ToggleHabit(ctx context.Context, id string) error {
	habit, err := workspace.findHabit(id)
	if err != nil {
		return err
	}
	transition := services.ToggleHabit(habit, models.DateKey(workspace.now()))
	return workspace.habits.Update(ctx, id, transition.Fields())
}

func (workspace *Workspace) DeleteHabit(ctx context.Context, id string) error {
	return workspace.habits.Remove(ctx, id)
}

func (workspace *Workspace) SaveReflection(ctx context.Context, content string) error {
	return workspace.reflection.Save(ctx, workspace.Session(), models.DateKey(workspace.now()), content)
}

// TodayReflection reads today's document from the mirror, empty when absent.
func (workspace *Workspace) TodayReflection() models.DailyReflection {
	today := models.DateKey(workspace.now())
	for _, reflection := range workspace.reflections.State().Items {
		if reflection.ID == today {
			return reflection
		}
	}
	return models.DailyReflection{ID: today}
}

// ReflectionFor reads the reflection of date from the store, empty when none
// was saved that day.
func (workspace *Workspace) ReflectionFor(ctx context.Context, date string) (models.DailyReflection, error) {
	if _, err := models.ParseDate(date); err != nil {
		return models.DailyReflection{}, err
	}
	return workspace.reflection.Load(ctx, workspace.Session(), date)
}

func (workspace *Workspace) ToggleRoutine(block int, activityID string) (bool, error) {
	checked, err := workspace.checklist.Toggle(block, activityID)
	if err != nil {
		return false, err
	}
	workspace.publish()
	return checked, nil
}

func (workspace *Workspace) StartPomodoro() services.PomodoroSnapshot {
	snapshot := workspace.pomodoro.Start(workspace.now())
	workspace.publish()
	return snapshot
}

func (workspace *Workspace) PausePomodoro() services.PomodoroSnapshot {
	snapshot := workspace.pomodoro.Pause(workspace.now())
	workspace.publish()
	return snapshot
}

func (workspace *Workspace) ResetPomodoro() services.PomodoroSnapshot {
	snapshot := workspace.pomodoro.Reset()
	workspace.publish()
	return snapshot
}

// Touch records activity for idle eviction.
func (workspace *Workspace) Touch() {
	workspace.mu.Lock()
	defer workspace.mu.Unlock()
	workspace.lastSeen = workspace.now()
}

func (workspace *Workspace) LastSeen() time.Time {
	workspace.mu.Lock()
	defer workspace.mu.Unlock()
	return workspace.lastSeen
}

// Changes returns a channel that receives a signal after every state change
// and a function that stops delivery. Signals coalesce; the channel is
// closed when the workspace closes.
func (workspace *Workspace) Changes() (<-chan struct{}, func()) {
	changes := make(chan struct{}, 1)

	workspace.mu.Lock()
	if workspace.closed {
		workspace.mu.Unlock()
		close(changes)
		return changes, func() {}
	}
	workspace.subscribers[changes] = struct{}{}
	workspace.mu.Unlock()

	return changes, func() {
		workspace.mu.Lock()
		defer workspace.mu.Unlock()
		if _, ok := workspace.subscribers[changes]; ok {
			delete(workspace.subscribers, changes)
			close(changes)
		}
	}
}

// Close releases every subscription held by the workspace.
func (workspace *Workspace) Close() {
	workspace.mu.Lock()
	if workspace.closed {
		workspace.mu.Unlock()
		return
	}
	workspace.closed = true
	cancels := workspace.cancels
	workspace.cancels = nil
	workspace.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	workspace.tasks.Close()
	workspace.habits.Close()
	workspace.reflections.Close()
	workspace.reflection.Close()

	workspace.mu.Lock()
	for changes := range workspace.subscribers {
		close(changes)
	}
	workspace.subscribers = make(map[chan struct{}]struct{})
	workspace.mu.Unlock()
}

func (workspace *Workspace) bind(session identity.Session) {
	for _, mirror := range []interface{ Bind(identity.Session) error }{workspace.tasks, workspace.habits, workspace.reflections} {
		if err := mirror.Bind(session); err != nil {
			slog.Error("binding collection", "client_id", workspace.clientID, "error", err)
		}
	}
	workspace.publish()
}

func (workspace *Workspace) seed(seeder *services.Seeder, session identity.Session, loading bool, err error, count int) {
	if err != nil {
		return
	}
	_, err = seeder.Observe(context.Background(), session, loading, count == 0)
	switch {
	case errors.Is(err, binding.ErrNotBound):
		slog.Debug("skipping seed for replaced session", "client_id", workspace.clientID, "user_id", session.UserID)
	case err != nil:
		slog.Error("seeding default record", "client_id", workspace.clientID, "error", err)
	}
}

func (workspace *Workspace) publish() {
	workspace.mu.Lock()
	defer workspace.mu.Unlock()
	for changes := range workspace.subscribers {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
}

func (workspace *Workspace) findTask(id string) (models.Task, error) {
	for _, task := range workspace.tasks.State().Items {
		if task.ID == id {
			return task, nil
		}
	}
	return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

func (workspace *Workspace) findHabit(id string) (models.Habit, error) {
	for _, habit := range workspace.habits.State().Items {
		if habit.ID == id {
			return habit, nil
		}
	}
	return models.Habit{}, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
}
