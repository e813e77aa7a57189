package store

import (
	"context"
	"sync"
)

// broker fans full snapshots out to in-process listeners. Publishing is
// serialized so listeners on a path see snapshots in commit order.
type broker struct {
	publishMu sync.Mutex

	mu        sync.Mutex
	listeners map[string]map[*listener]struct{}
}

type snapshotQuery func() (Snapshot, error)

func newBroker() *broker {
	return &broker{listeners: make(map[string]map[*listener]struct{})}
}

func (broker *broker) subscribe(ctx context.Context, path string, query snapshotQuery) (*listener, error) {
	broker.publishMu.Lock()
	defer broker.publishMu.Unlock()

	subscriber := newListener(func(subscriber *listener) {
		broker.remove(path, subscriber)
	})
	broker.add(path, subscriber)

	initial, err := query()
	if err != nil {
		broker.remove(path, subscriber)
		return nil, err
	}
	subscriber.deliver(initial)

	subscriber.closeWith(ctx)
	return subscriber, nil
}

func (broker *broker) publish(path string, query snapshotQuery) {
	broker.publishMu.Lock()
	defer broker.publishMu.Unlock()

	targets := broker.listenersFor(path)
	if len(targets) == 0 {
		return
	}

	snapshot, err := query()
	for _, subscriber := range targets {
		if err != nil {
			broker.remove(path, subscriber)
			subscriber.fail(err)
			continue
		}
		subscriber.deliver(snapshot)
	}
}

func (broker *broker) closeAll() {
	broker.mu.Lock()
	var all []*listener
	for path, set := range broker.listeners {
		for subscriber := range set {
			all = append(all, subscriber)
		}
		delete(broker.listeners, path)
	}
	broker.mu.Unlock()

	for _, subscriber := range all {
		subscriber.fail(ErrClosed)
	}
}

func (broker *broker) listenerCount(path string) int {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	return len(broker.listeners[path])
}

func (broker *broker) add(path string, subscriber *listener) {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	set, ok := broker.listeners[path]
	if !ok {
		set = make(map[*listener]struct{})
		broker.listeners[path] = set
	}
	set[subscriber] = struct{}{}
}

func (broker *broker) remove(path string, subscriber *listener) {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	set := broker.listeners[path]
	delete(set, subscriber)
	if len(set) == 0 {
		delete(broker.listeners, path)
	}
}

func (broker *broker) listenersFor(path string) []*listener {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	targets := make([]*listener, 0, len(broker.listeners[path]))
	for subscriber := range broker.listeners[path] {
		targets = append(targets, subscriber)
	}
	return targets
}

// listener is a Subscription with a one-slot coalescing buffer: a slow
// consumer skips intermediate snapshots but always receives the latest.
type listener struct {
	mu        sync.Mutex
	snapshots chan Snapshot
	closed    bool
	err       error

	unregister func(*listener)
	stopAfter  func() bool
}

func newListener(unregister func(*listener)) *listener {
	return &listener{
		snapshots:  make(chan Snapshot, 1),
		unregister: unregister,
	}
}

// closeWith ties the listener lifetime to ctx.
func (subscriber *listener) closeWith(ctx context.Context) {
	stop := context.AfterFunc(ctx, subscriber.Close)
	subscriber.mu.Lock()
	defer subscriber.mu.Unlock()
	if subscriber.closed {
		stop()
		return
	}
	subscriber.stopAfter = stop
}

func (subscriber *listener) Snapshots() <-chan Snapshot {
	return subscriber.snapshots
}

func (subscriber *listener) Err() error {
	subscriber.mu.Lock()
	defer subscriber.mu.Unlock()
	return subscriber.err
}

func (subscriber *listener) Close() {
	if subscriber.unregister != nil {
		subscriber.unregister(subscriber)
	}
	subscriber.shutdown(nil)
}

func (subscriber *listener) deliver(snapshot Snapshot) {
	subscriber.mu.Lock()
	defer subscriber.mu.Unlock()
	if subscriber.closed {
		return
	}
	select {
	case subscriber.snapshots <- snapshot:
	default:
		select {
		case <-subscriber.snapshots:
		default:
		}
		subscriber.snapshots <- snapshot
	}
}

func (subscriber *listener) fail(err error) {
	subscriber.shutdown(err)
}

func (subscriber *listener) shutdown(err error) {
	subscriber.mu.Lock()
	defer subscriber.mu.Unlock()
	if subscriber.closed {
		return
	}
	subscriber.closed = true
	subscriber.err = err
	close(subscriber.snapshots)
	if subscriber.stopAfter != nil {
		subscriber.stopAfter()
	}
}
