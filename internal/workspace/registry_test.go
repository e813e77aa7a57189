package workspace

import (
	"testing"
	"time"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
	"github.com/sgtbyhqi/genz-planner-app/internal/testutil"
)

func TestRegistry_GetOrCreateReusesWorkspace(t *testing.T) {
	registry := NewRegistry(Dependencies{Store: testutil.NewTestStore(t), AppID: testutil.TestAppID, ReflectionStatusWindow: time.Second})
	defer registry.Close()

	first := registry.GetOrCreate("client-1")
	second := registry.GetOrCreate("client-1")
	if first != second {
		t.Error("expected the same workspace for one client")
	}
	if _, ok := registry.Get("client-2"); ok {
		t.Error("unexpected workspace for unknown client")
	}
	if registry.Len() != 1 {
		t.Errorf("expected 1 workspace, got %d", registry.Len())
	}
}

func TestRegistry_SweepEvictsIdleWorkspaces(t *testing.T) {
	documents := testutil.NewTestStore(t)
	registry := NewRegistry(Dependencies{Store: documents, AppID: testutil.TestAppID, ReflectionStatusWindow: time.Second})
	defer registry.Close()

	idle := registry.GetOrCreate("idle")
	idle.SignIn(identity.NewSession("user-idle"))
	testutil.Eventually(t, func() bool { return !idle.Dashboard().Loading }, "idle workspace loaded")
	active := registry.GetOrCreate("active")

	now := time.Now().Add(time.Hour)
	active.mu.Lock()
	active.lastSeen = now
	active.mu.Unlock()

	if evicted := registry.Sweep(now, 30*time.Minute); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, ok := registry.Get("idle"); ok {
		t.Error("idle workspace still registered")
	}
	if _, ok := registry.Get("active"); !ok {
		t.Error("active workspace evicted")
	}

	path, _ := store.PrivatePath(testutil.TestAppID, "user-idle", TasksCollection)
	if count := documents.ListenerCount(path); count != 0 {
		t.Errorf("expected evicted workspace to release listeners, got %d", count)
	}
}
