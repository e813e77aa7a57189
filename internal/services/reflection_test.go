package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
	"github.com/sgtbyhqi/genz-planner-app/internal/testutil"
)

type blockingStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
	err     error
}

func (documents *blockingStore) SetMerge(ctx context.Context, path string, id string, fields map[string]any) error {
	documents.entered <- struct{}{}
	<-documents.release
	if documents.err != nil {
		return documents.err
	}
	return documents.Store.SetMerge(ctx, path, id, fields)
}

func reflectionPath(t *testing.T, userID string) string {
	t.Helper()
	path, err := store.PrivatePath(testutil.TestAppID, userID, ReflectionsCollection)
	if err != nil {
		t.Fatalf("building path: %v", err)
	}
	return path
}

func TestReflectionForm_SecondSaveKeepsOtherFields(t *testing.T) {
	documents := testutil.NewTestStore(t)
	ctx := context.Background()
	session := identity.NewSession("user-1")
	path := reflectionPath(t, "user-1")

	if err := documents.SetMerge(ctx, path, today, map[string]any{"mood": "calm"}); err != nil {
		t.Fatalf("seeding document: %v", err)
	}

	form := NewReflectionForm(documents, testutil.TestAppID, time.Minute)
	defer form.Close()
	clock := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	form.now = func() time.Time { return clock }

	if err := form.Save(ctx, session, today, "X"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first, err := form.Load(ctx, session, today)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	clock = clock.Add(5 * time.Minute)
	if err := form.Save(ctx, session, today, "Y"); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, err := form.Load(ctx, session, today)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if second.Content != "Y" {
		t.Errorf("expected latest content, got %q", second.Content)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("expected updatedAt to move forward, got %s then %s", first.UpdatedAt, second.UpdatedAt)
	}

	document, err := documents.Get(ctx, path, today)
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if document.Fields["mood"] != "calm" {
		t.Errorf("unrelated field changed: %v", document.Fields)
	}
	if len(document.Fields) != 3 {
		t.Errorf("expected only mood, content and updatedAt, got %v", document.Fields)
	}
}

func TestReflectionForm_RejectsSaveInFlight(t *testing.T) {
	documents := &blockingStore{
		Store:   testutil.NewTestStore(t),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	form := NewReflectionForm(documents, testutil.TestAppID, time.Minute)
	defer form.Close()
	session := identity.NewSession("user-1")

	result := make(chan error, 1)
	go func() {
		result <- form.Save(context.Background(), session, today, "first")
	}()
	<-documents.entered

	if !form.Saving() {
		t.Error("expected saving flag while write is in flight")
	}
	if err := form.Save(context.Background(), session, today, "second"); !errors.Is(err, ErrSaveInFlight) {
		t.Errorf("expected ErrSaveInFlight, got %v", err)
	}

	close(documents.release)
	if err := <-result; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if form.Saving() {
		t.Error("saving flag not cleared")
	}
}

func TestReflectionForm_StatusClearsAfterWindow(t *testing.T) {
	documents := testutil.NewTestStore(t)
	form := NewReflectionForm(documents, testutil.TestAppID, 30*time.Millisecond)
	defer form.Close()

	notified := make(chan struct{}, 8)
	form.OnStatusChange(func() { notified <- struct{}{} })

	if err := form.Save(context.Background(), identity.NewSession("user-1"), today, "done"); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if form.Status() != ReflectionStatusSaved {
		t.Fatalf("expected saved status, got %q", form.Status())
	}

	testutil.Eventually(t, func() bool { return form.Status() == ReflectionStatusNone }, "status cleared")
	testutil.Eventually(t, func() bool { return len(notified) >= 3 }, "notified on start, finish and clear")
}

func TestReflectionForm_FailureShowsFailedStatus(t *testing.T) {
	documents := &blockingStore{
		Store:   testutil.NewTestStore(t),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		err:     errors.New("write rejected"),
	}
	close(documents.release)
	form := NewReflectionForm(documents, testutil.TestAppID, time.Minute)
	defer form.Close()

	err := form.Save(context.Background(), identity.NewSession("user-1"), today, "x")
	if err == nil {
		t.Fatal("expected save error")
	}
	if form.Status() != ReflectionStatusFailed {
		t.Errorf("expected failed status, got %q", form.Status())
	}
	if form.Saving() {
		t.Error("saving flag not cleared after failure")
	}
}

func TestReflectionForm_Validation(t *testing.T) {
	form := NewReflectionForm(testutil.NewTestStore(t), testutil.TestAppID, time.Minute)
	defer form.Close()

	if err := form.Save(context.Background(), identity.Unauthenticated, today, "x"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if err := form.Save(context.Background(), identity.NewSession("user-1"), "15/06/2025", "x"); err == nil {
		t.Error("expected invalid date error")
	}
}

func TestReflectionForm_LoadMissingIsEmpty(t *testing.T) {
	form := NewReflectionForm(testutil.NewTestStore(t), testutil.TestAppID, time.Minute)
	defer form.Close()

	reflection, err := form.Load(context.Background(), identity.NewSession("user-1"), today)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if reflection.ID != today || reflection.Content != "" {
		t.Errorf("expected empty reflection for %s, got %+v", today, reflection)
	}
}
