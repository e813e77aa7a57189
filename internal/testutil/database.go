package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/sgtbyhqi/genz-planner-app/internal/database"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
)

const TestAppID = "test-app"

func NewTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	documents := store.NewSQLiteStore(NewTestDatabase(t))
	t.Cleanup(func() {
		documents.Close()
	})
	return documents
}

// Eventually polls condition until it holds or the deadline passes.
func Eventually(t *testing.T, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", message)
}
