package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
)

func newEmulatorStore(t *testing.T) *store.FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	documents, err := store.NewFirestoreStore(context.Background(), store.FirestoreConfig{ProjectID: "planner-test"})
	if err != nil {
		t.Fatalf("creating firestore store: %v", err)
	}
	t.Cleanup(func() {
		documents.Close()
	})
	return documents
}

func TestFirestoreStore_SubscribeAndWrite(t *testing.T) {
	documents := newEmulatorStore(t)
	ctx := context.Background()
	path, _ := store.PrivatePath("planner-test", uuid.New().String(), "tasks")

	subscription, err := documents.Subscribe(ctx, path)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer subscription.Close()

	if initial := receive(t, subscription); len(initial.Documents) != 0 {
		t.Fatalf("expected empty collection, got %d", len(initial.Documents))
	}

	id, err := documents.Create(ctx, path, map[string]any{"name": "Buy milk", "completed": false})
	if err != nil {
		t.Fatalf("creating: %v", err)
	}
	if snapshot := receive(t, subscription); len(snapshot.Documents) != 1 || snapshot.Documents[0].ID != id {
		t.Fatalf("expected created document in snapshot, got %+v", snapshot.Documents)
	}

	if err := documents.Merge(ctx, path, id, map[string]any{"completed": true}); err != nil {
		t.Fatalf("merging: %v", err)
	}
	document, err := documents.Get(ctx, path, id)
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if document.Fields["name"] != "Buy milk" || document.Fields["completed"] != true {
		t.Errorf("unexpected fields after merge: %v", document.Fields)
	}
}

func TestFirestoreStore_MergeMissingDocument(t *testing.T) {
	documents := newEmulatorStore(t)
	path, _ := store.PrivatePath("planner-test", uuid.New().String(), "tasks")

	err := documents.Merge(context.Background(), path, "missing", map[string]any{"name": "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
