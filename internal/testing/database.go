package testing

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teranos/netsukuku/history"
)

// CreateTestStore creates an in-memory SQLite-backed history.Store with
// schema applied. Automatically registers cleanup via t.Cleanup().
func CreateTestStore(t *testing.T) *history.Store {
	t.Helper()

	store, err := history.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to create test history store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
