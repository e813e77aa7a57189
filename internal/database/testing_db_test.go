package database

import (
	"database/sql"
	"testing"
)

type testingDB struct {
	*sql.DB
}

func (db *testingDB) count(t *testing.T, query string) int {
	t.Helper()
	var count int
	if err := db.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("counting: %v", err)
	}
	return count
}
