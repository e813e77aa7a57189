package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore keeps documents in the local database and pushes full
// snapshots to in-process subscribers after every committed write.
type SQLiteStore struct {
	database *sql.DB
	broker   *broker
	closed   atomic.Bool
}

func NewSQLiteStore(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{database: database, broker: newBroker()}
}

func (store *SQLiteStore) Subscribe(ctx context.Context, path string) (Subscription, error) {
	if store.closed.Load() {
		return nil, ErrClosed
	}
	query := store.snapshotQuery(context.WithoutCancel(ctx), path)
	subscriber, err := store.broker.subscribe(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", path, err)
	}
	return subscriber, nil
}

func (store *SQLiteStore) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	if store.closed.Load() {
		return "", ErrClosed
	}
	data, err := json.Marshal(nonNilFields(fields))
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()
	_, err = store.database.ExecContext(ctx,
		"INSERT INTO documents (path, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		path, id, string(data), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("creating document: %w", err)
	}

	store.publish(ctx, path)
	return id, nil
}

// Merge replaces each named top-level field as a whole. Nested objects are
// not merged and a nil value is stored as null.
func (store *SQLiteStore) Merge(ctx context.Context, path string, id string, fields map[string]any) error {
	if store.closed.Load() {
		return ErrClosed
	}
	if len(fields) == 0 {
		return nil
	}

	keys := slices.Sorted(maps.Keys(fields))
	arguments := make([]any, 0, len(keys)*2+3)
	for _, key := range keys {
		value, err := json.Marshal(fields[key])
		if err != nil {
			return fmt.Errorf("encoding field %s: %w", key, err)
		}
		arguments = append(arguments, fieldPath(key), string(value))
	}
	arguments = append(arguments, time.Now(), path, id)

	setters := strings.Repeat(", ?, json(?)", len(keys))
	result, err := store.database.ExecContext(ctx,
		"UPDATE documents SET data = json_set(data"+setters+"), updated_at = ? WHERE path = ? AND id = ?",
		arguments...,
	)
	if err != nil {
		return fmt.Errorf("merging document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("merging document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("merging document %s: %w", id, ErrNotFound)
	}

	store.publish(ctx, path)
	return nil
}

func (store *SQLiteStore) SetMerge(ctx context.Context, path string, id string, fields map[string]any) error {
	if store.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(nonNilFields(fields))
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	now := time.Now()
	_, err = store.database.ExecContext(ctx,
		`INSERT INTO documents (path, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path, id) DO UPDATE SET data = json_patch(documents.data, excluded.data), updated_at = excluded.updated_at`,
		path, id, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	store.publish(ctx, path)
	return nil
}

func (store *SQLiteStore) Delete(ctx context.Context, path string, id string) error {
	if store.closed.Load() {
		return ErrClosed
	}
	_, err := store.database.ExecContext(ctx, "DELETE FROM documents WHERE path = ? AND id = ?", path, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	store.publish(ctx, path)
	return nil
}

func (store *SQLiteStore) Get(ctx context.Context, path string, id string) (Document, error) {
	var data string
	err := store.database.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE path = ? AND id = ?", path, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("getting document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting document: %w", err)
	}

	fields, err := decodeFields([]byte(data))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: fields}, nil
}

// Close ends every live subscription with ErrClosed. The database itself is
// owned by the caller.
func (store *SQLiteStore) Close() error {
	if store.closed.Swap(true) {
		return nil
	}
	store.broker.closeAll()
	return nil
}

// ListenerCount reports live subscriptions on path.
func (store *SQLiteStore) ListenerCount(path string) int {
	return store.broker.listenerCount(path)
}

func (store *SQLiteStore) publish(ctx context.Context, path string) {
	store.broker.publish(path, store.snapshotQuery(context.WithoutCancel(ctx), path))
}

func (store *SQLiteStore) snapshotQuery(ctx context.Context, path string) snapshotQuery {
	return func() (Snapshot, error) {
		return store.snapshot(ctx, path)
	}
}

func (store *SQLiteStore) snapshot(ctx context.Context, path string) (Snapshot, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE path = ? ORDER BY rowid", path,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	documents := []Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return Snapshot{}, fmt.Errorf("scanning document: %w", err)
		}
		fields, err := decodeFields([]byte(data))
		if err != nil {
			return Snapshot{}, fmt.Errorf("document %s: %w", id, err)
		}
		documents = append(documents, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	return Snapshot{Documents: documents}, nil
}

// fieldPath addresses a top-level key, quoted so dots stay part of the name.
func fieldPath(key string) string {
	return `$."` + key + `"`
}

func nonNilFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return fields
}
