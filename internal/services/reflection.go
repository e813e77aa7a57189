package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/models"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
)

var (
	ErrSaveInFlight = errors.New("reflection save already in progress")
	ErrNoSession    = errors.New("no signed-in session")
)

const ReflectionsCollection = "reflections"

type ReflectionStatus string

const (
	ReflectionStatusNone   ReflectionStatus = ""
	ReflectionStatusSaved  ReflectionStatus = "saved"
	ReflectionStatusFailed ReflectionStatus = "failed"
)

// ReflectionForm saves the one reflection document of a calendar day. Only
// content and updatedAt are ever written.
type ReflectionForm struct {
	documents    store.Store
	appID        string
	statusWindow time.Duration
	now          func() time.Time

	mu          sync.Mutex
	saving      bool
	status      ReflectionStatus
	statusTimer *time.Timer
	notify      func()
}

func NewReflectionForm(documents store.Store, appID string, statusWindow time.Duration) *ReflectionForm {
	return &ReflectionForm{
		documents:    documents,
		appID:        appID,
		statusWindow: statusWindow,
		now:          time.Now,
	}
}

// OnStatusChange sets the callback run whenever the status or the in-flight
// flag changes.
func (form *ReflectionForm) OnStatusChange(callback func()) {
	form.mu.Lock()
	defer form.mu.Unlock()
	form.notify = callback
}

func (form *ReflectionForm) Save(ctx context.Context, session identity.Session, date string, content string) error {
	if _, err := models.ParseDate(date); err != nil {
		return err
	}
	if !session.Authenticated() {
		return ErrNoSession
	}
	path, err := store.PrivatePath(form.appID, session.UserID, ReflectionsCollection)
	if err != nil {
		return err
	}

	form.mu.Lock()
	if form.saving {
		form.mu.Unlock()
		return ErrSaveInFlight
	}
	form.saving = true
	form.mu.Unlock()
	form.changed()

	err = form.documents.SetMerge(ctx, path, date, map[string]any{
		"content":   content,
		"updatedAt": form.now(),
	})
	if err != nil {
		slog.Error("saving reflection", "date", date, "error", err)
		form.finish(ReflectionStatusFailed)
		return fmt.Errorf("saving reflection: %w", err)
	}

	form.finish(ReflectionStatusSaved)
	return nil
}

// Load returns the reflection of date, empty when none was written yet.
func (form *ReflectionForm) Load(ctx context.Context, session identity.Session, date string) (models.DailyReflection, error) {
	if !session.Authenticated() {
		return models.DailyReflection{}, ErrNoSession
	}
	path, err := store.PrivatePath(form.appID, session.UserID, ReflectionsCollection)
	if err != nil {
		return models.DailyReflection{}, err
	}

	document, err := form.documents.Get(ctx, path, date)
	if errors.Is(err, store.ErrNotFound) {
		return models.DailyReflection{ID: date}, nil
	}
	if err != nil {
		return models.DailyReflection{}, fmt.Errorf("loading reflection: %w", err)
	}

	var reflection models.DailyReflection
	if err := store.Decode(document, &reflection); err != nil {
		return models.DailyReflection{}, err
	}
	return reflection, nil
}

func (form *ReflectionForm) Status() ReflectionStatus {
	form.mu.Lock()
	defer form.mu.Unlock()
	return form.status
}

func (form *ReflectionForm) Saving() bool {
	form.mu.Lock()
	defer form.mu.Unlock()
	return form.saving
}

func (form *ReflectionForm) Close() {
	form.mu.Lock()
	defer form.mu.Unlock()
	if form.statusTimer != nil {
		form.statusTimer.Stop()
		form.statusTimer = nil
	}
	form.notify = nil
}

// finish shows status for the status window, then clears it.
func (form *ReflectionForm) finish(status ReflectionStatus) {
	form.mu.Lock()
	form.saving = false
	form.status = status
	if form.statusTimer != nil {
		form.statusTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(form.statusWindow, func() {
		form.mu.Lock()
		if form.statusTimer != timer {
			form.mu.Unlock()
			return
		}
		form.status = ReflectionStatusNone
		form.statusTimer = nil
		form.mu.Unlock()
		form.changed()
	})
	form.statusTimer = timer
	form.mu.Unlock()

	form.changed()
}

func (form *ReflectionForm) changed() {
	form.mu.Lock()
	notify := form.notify
	form.mu.Unlock()
	if notify != nil {
		notify()
	}
}
