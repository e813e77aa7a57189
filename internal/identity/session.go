// Package identity signs clients in and tracks the session that scopes every
// collection path.
package identity

import "sync"

// Session is the identity a workspace is bound to. The zero value is the
// unauthenticated sentinel.
type Session struct {
	UserID string `json:"userId"`
	Ready  bool   `json:"ready"`
}

var Unauthenticated = Session{}

func NewSession(userID string) Session {
	return Session{UserID: userID, Ready: userID != ""}
}

func (session Session) Authenticated() bool {
	return session.Ready && session.UserID != ""
}

// Watcher holds the current session of one client and notifies listeners on
// every change. Listeners must tolerate repeated identical sessions.
type Watcher struct {
	mu        sync.Mutex
	current   Session
	nextID    int
	listeners map[int]func(Session)
	order     []int
}

func NewWatcher(initial Session) *Watcher {
	return &Watcher{current: initial, listeners: make(map[int]func(Session))}
}

func (watcher *Watcher) Current() Session {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	return watcher.current
}

func (watcher *Watcher) Set(session Session) {
	watcher.mu.Lock()
	watcher.current = session
	callbacks := make([]func(Session), 0, len(watcher.order))
	for _, id := range watcher.order {
		callbacks = append(callbacks, watcher.listeners[id])
	}
	watcher.mu.Unlock()

	for _, callback := range callbacks {
		callback(session)
	}
}

// OnSessionChange registers callback and returns a function that removes it.
func (watcher *Watcher) OnSessionChange(callback func(Session)) func() {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()

	id := watcher.nextID
	watcher.nextID++
	watcher.listeners[id] = callback
	watcher.order = append(watcher.order, id)

	return func() {
		watcher.mu.Lock()
		defer watcher.mu.Unlock()
		delete(watcher.listeners, id)
		for index, candidate := range watcher.order {
			if candidate == id {
				watcher.order = append(watcher.order[:index], watcher.order[index+1:]...)
				break
			}
		}
	}
}
