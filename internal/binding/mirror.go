// Package binding mirrors a remote collection into local state and writes
// mutations through to the store.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/store"
)

var (
	ErrNotBound = errors.New("collection is not bound to a session")
	ErrClosed   = errors.New("mirror closed")
)

type Scope int

const (
	Private Scope = iota
	Public
)

// State is one immutable view of the mirror. Items is replaced wholesale on
// every snapshot and must not be modified by readers. Session is the session
// the state was produced for.
type State[T any] struct {
	Items   []T
	Loading bool
	Err     error
	Session identity.Session
}

type Option func(*settings)

type settings struct {
	sortField string
	scope     Scope
}

// WithSortField re-sorts every snapshot ascending by the raw field.
func WithSortField(field string) Option {
	return func(settings *settings) {
		settings.sortField = field
	}
}

func WithScope(scope Scope) Option {
	return func(settings *settings) {
		settings.scope = scope
	}
}

// Mirror holds at most one live subscription. Change callbacks run on the
// subscription goroutine and must not call Bind or Close.
type Mirror[T any] struct {
	documents  store.Store
	appID      string
	collection string
	settings   settings

	bindMu sync.Mutex

	mu           sync.Mutex
	state        State[T]
	session      identity.Session
	path         string
	subscription store.Subscription
	done         chan struct{}
	generation   uint64
	closed       bool

	nextListener int
	listeners    map[int]func(State[T])
	order        []int
}

func New[T any](documents store.Store, appID string, collection string, options ...Option) *Mirror[T] {
	mirror := &Mirror[T]{
		documents:  documents,
		appID:      appID,
		collection: collection,
		listeners:  make(map[int]func(State[T])),
	}
	for _, option := range options {
		option(&mirror.settings)
	}
	return mirror
}

func (mirror *Mirror[T]) Collection() string {
	return mirror.collection
}

// Bind points the mirror at the collection of session, tearing down the
// previous subscription first. An unauthenticated session leaves the mirror
// empty and unsubscribed.
func (mirror *Mirror[T]) Bind(session identity.Session) error {
	mirror.bindMu.Lock()
	defer mirror.bindMu.Unlock()

	if mirror.isClosed() {
		return ErrClosed
	}
	if mirror.alreadyBound(session) {
		return nil
	}
	generation := mirror.teardown(session)

	if !session.Authenticated() {
		mirror.replace(generation, State[T]{})
		return nil
	}

	path, err := mirror.pathFor(session)
	if err != nil {
		mirror.replace(generation, State[T]{Err: err})
		return err
	}
	mirror.replace(generation, State[T]{Loading: true})

	subscription, err := mirror.documents.Subscribe(context.Background(), path)
	if err != nil {
		slog.Error("subscribing to collection", "collection", mirror.collection, "error", err)
		mirror.replace(generation, State[T]{Err: fmt.Errorf("subscribing to %s: %w", mirror.collection, err)})
		return err
	}

	done := make(chan struct{})
	mirror.mu.Lock()
	mirror.path = path
	mirror.subscription = subscription
	mirror.done = done
	mirror.mu.Unlock()

	go mirror.consume(generation, subscription, done)
	return nil
}

// Close releases the subscription. The mirror cannot be bound again.
func (mirror *Mirror[T]) Close() {
	mirror.bindMu.Lock()
	defer mirror.bindMu.Unlock()

	if mirror.isClosed() {
		return
	}
	mirror.teardown(identity.Unauthenticated)

	mirror.mu.Lock()
	mirror.closed = true
	mirror.mu.Unlock()
}

func (mirror *Mirror[T]) State() State[T] {
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	return mirror.state
}

// OnChange registers callback for every state replacement and returns a
// function that removes it.
func (mirror *Mirror[T]) OnChange(callback func(State[T])) func() {
	mirror.mu.Lock()
	defer mirror.mu.Unlock()

	id := mirror.nextListener
	mirror.nextListener++
	mirror.listeners[id] = callback
	mirror.order = append(mirror.order, id)

	return func() {
		mirror.mu.Lock()
		defer mirror.mu.Unlock()
		delete(mirror.listeners, id)
		mirror.order = slices.DeleteFunc(mirror.order, func(candidate int) bool { return candidate == id })
	}
}

// Add writes item as a new record with a store-generated id. Items only
// change once the resulting snapshot arrives. Without a bound session the
// call is logged and dropped.
func (mirror *Mirror[T]) Add(ctx context.Context, item T) error {
	path, ok := mirror.boundPath()
	if !ok {
		slog.Error("dropping add on unbound collection", "collection", mirror.collection)
		return nil
	}
	return mirror.create(ctx, path, item)
}

// AddFor is Add restricted to session. It returns ErrNotBound when the
// mirror is no longer bound to session.
func (mirror *Mirror[T]) AddFor(ctx context.Context, session identity.Session, item T) error {
	path := mirror.pathIfBoundTo(session)
	if path == "" || !session.Authenticated() {
		return ErrNotBound
	}
	return mirror.create(ctx, path, item)
}

func (mirror *Mirror[T]) create(ctx context.Context, path string, item T) error {
	fields, err := store.Encode(item)
	if err != nil {
		return err
	}
	if _, err := mirror.documents.Create(ctx, path, fields); err != nil {
		return fmt.Errorf("adding to %s: %w", mirror.collection, err)
	}
	return nil
}

// Update merges only the named fields into the record.
func (mirror *Mirror[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	path, ok := mirror.boundPath()
	if !ok {
		return ErrNotBound
	}
	if err := mirror.documents.Merge(ctx, path, id, fields); err != nil {
		return fmt.Errorf("updating %s: %w", mirror.collection, err)
	}
	return nil
}

func (mirror *Mirror[T]) Remove(ctx context.Context, id string) error {
	path, ok := mirror.boundPath()
	if !ok {
		return ErrNotBound
	}
	if err := mirror.documents.Delete(ctx, path, id); err != nil {
		return fmt.Errorf("removing from %s: %w", mirror.collection, err)
	}
	return nil
}

func (mirror *Mirror[T]) boundPath() (string, bool) {
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if !mirror.session.Authenticated() || mirror.path == "" {
		return "", false
	}
	return mirror.path, true
}

func (mirror *Mirror[T]) pathIfBoundTo(session identity.Session) string {
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if mirror.session != session {
		return ""
	}
	return mirror.path
}

func (mirror *Mirror[T]) pathFor(session identity.Session) (string, error) {
	if mirror.settings.scope == Public {
		return store.PublicPath(mirror.appID, mirror.collection)
	}
	return store.PrivatePath(mirror.appID, session.UserID, mirror.collection)
}

func (mirror *Mirror[T]) alreadyBound(session identity.Session) bool {
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	return mirror.subscription != nil && mirror.session == session && mirror.state.Err == nil
}

func (mirror *Mirror[T]) isClosed() bool {
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	return mirror.closed
}

// teardown invalidates the current generation, closes the live subscription
// and waits for its consumer to exit. It returns the new generation.
func (mirror *Mirror[T]) teardown(next identity.Session) uint64 {
	mirror.mu.Lock()
	mirror.generation++
	generation := mirror.generation
	subscription, done := mirror.subscription, mirror.done
	mirror.subscription, mirror.done = nil, nil
	mirror.session = next
	mirror.path = ""
	mirror.mu.Unlock()

	if subscription != nil {
		subscription.Close()
		<-done
	}
	return generation
}

func (mirror *Mirror[T]) consume(generation uint64, subscription store.Subscription, done chan struct{}) {
	defer close(done)

	for snapshot := range subscription.Snapshots() {
		mirror.replace(generation, State[T]{Items: mirror.decode(snapshot)})
	}

	if err := subscription.Err(); err != nil {
		slog.Error("collection subscription failed", "collection", mirror.collection, "error", err)
		mirror.mu.Lock()
		items := mirror.state.Items
		mirror.mu.Unlock()
		mirror.replace(generation, State[T]{Items: items, Err: err})
	}
}

func (mirror *Mirror[T]) decode(snapshot store.Snapshot) []T {
	documents := snapshot.Documents
	if field := mirror.settings.sortField; field != "" {
		documents = slices.Clone(documents)
		slices.SortStableFunc(documents, func(a, b store.Document) int {
			return compareValues(a.Fields[field], b.Fields[field])
		})
	}

	items := make([]T, 0, len(documents))
	for _, document := range documents {
		var item T
		if err := store.Decode(document, &item); err != nil {
			slog.Warn("skipping undecodable document", "collection", mirror.collection, "id", document.ID, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// replace swaps in state if generation is still current and notifies
// listeners outside the lock.
func (mirror *Mirror[T]) replace(generation uint64, state State[T]) {
	mirror.mu.Lock()
	if generation != mirror.generation {
		mirror.mu.Unlock()
		return
	}
	state.Session = mirror.session
	mirror.state = state
	callbacks := make([]func(State[T]), 0, len(mirror.order))
	for _, id := range mirror.order {
		callbacks = append(callbacks, mirror.listeners[id])
	}
	mirror.mu.Unlock()

	for _, callback := range callbacks {
		callback(state)
	}
}
