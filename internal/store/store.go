// Package store is the boundary to the document database: collection paths,
// full-collection snapshot subscriptions and single-record writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid collection path")
	ErrClosed      = errors.New("store closed")
)

// Document is one stored record. Fields never contains the id.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is a complete listing of a collection at one point in time.
// Consumers must treat it as immutable.
type Snapshot struct {
	Documents []Document
}

// Subscription is a live listener on one collection path.
type Subscription interface {
	// Snapshots is closed after Close or after a terminal failure.
	Snapshots() <-chan Snapshot
	// Err is the terminal failure, if any. Valid once Snapshots is closed.
	Err() error
	// Close unregisters the listener before returning; no snapshot is
	// delivered afterwards.
	Close()
}

type Store interface {
	Subscribe(ctx context.Context, path string) (Subscription, error)
	Create(ctx context.Context, path string, fields map[string]any) (string, error)
	Merge(ctx context.Context, path string, id string, fields map[string]any) error
	Delete(ctx context.Context, path string, id string) error
	SetMerge(ctx context.Context, path string, id string, fields map[string]any) error
	Get(ctx context.Context, path string, id string) (Document, error)
	Close() error
}

// PrivatePath is the collection path of data owned by a single user.
func PrivatePath(appID, userID, collection string) (string, error) {
	return joinPath("tenant", appID, "users", userID, collection)
}

// PublicPath is the collection path of data shared by every user of an app.
func PublicPath(appID, collection string) (string, error) {
	return joinPath("tenant", appID, "public", "data", collection)
}

func joinPath(segments ...string) (string, error) {
	for _, segment := range segments {
		if segment == "" || strings.Contains(segment, "/") {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidPath, segment)
		}
	}
	return strings.Join(segments, "/"), nil
}
