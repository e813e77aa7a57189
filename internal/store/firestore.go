package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreConfig struct {
	ProjectID       string
	APIKey          string
	CredentialsFile string
}

// FirestoreStore talks to the hosted document database. Realtime listeners
// are backed by query snapshot iterators.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	var options []option.ClientOption
	if cfg.CredentialsFile != "" {
		options = append(options, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, options...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (store *FirestoreStore) Subscribe(ctx context.Context, path string) (Subscription, error) {
	listenContext, cancel := context.WithCancel(ctx)
	iterator := store.client.Collection(path).Snapshots(listenContext)

	subscription := &firestoreSubscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	subscription.listener = newListener(nil)

	go subscription.run(listenContext, path, iterator)
	return subscription, nil
}

func (store *FirestoreStore) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	reference, _, err := store.client.Collection(path).Add(ctx, nonNilFields(fields))
	if err != nil {
		return "", fmt.Errorf("creating document: %w", err)
	}
	return reference.ID, nil
}

func (store *FirestoreStore) Merge(ctx context.Context, path string, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for key, value := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{key}, Value: value})
	}
	if len(updates) == 0 {
		return nil
	}

	_, err := store.client.Collection(path).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("merging document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("merging document: %w", err)
	}
	return nil
}

func (store *FirestoreStore) SetMerge(ctx context.Context, path string, id string, fields map[string]any) error {
	_, err := store.client.Collection(path).Doc(id).Set(ctx, nonNilFields(fields), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

func (store *FirestoreStore) Delete(ctx context.Context, path string, id string) error {
	if _, err := store.client.Collection(path).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

func (store *FirestoreStore) Get(ctx context.Context, path string, id string) (Document, error) {
	snapshot, err := store.client.Collection(path).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{}, fmt.Errorf("getting document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("getting document: %w", err)
	}
	return Document{ID: snapshot.Ref.ID, Fields: snapshot.Data()}, nil
}

func (store *FirestoreStore) Close() error {
	return store.client.Close()
}

type firestoreSubscription struct {
	*listener
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (subscription *firestoreSubscription) run(ctx context.Context, path string, iterator *firestore.QuerySnapshotIterator) {
	defer close(subscription.done)
	defer iterator.Stop()

	for {
		snapshot, err := iterator.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				subscription.shutdown(nil)
				return
			}
			slog.Error("collection listener failed", "path", path, "error", err)
			subscription.fail(fmt.Errorf("listening to %s: %w", path, err))
			return
		}

		documentSnapshots, err := snapshot.Documents.GetAll()
		if err != nil {
			subscription.fail(fmt.Errorf("reading snapshot of %s: %w", path, err))
			return
		}

		documents := make([]Document, 0, len(documentSnapshots))
		for _, documentSnapshot := range documentSnapshots {
			documents = append(documents, Document{ID: documentSnapshot.Ref.ID, Fields: documentSnapshot.Data()})
		}
		subscription.deliver(Snapshot{Documents: documents})
	}
}

// Close stops the iterator and waits for the listener goroutine to exit.
func (subscription *firestoreSubscription) Close() {
	subscription.closeOnce.Do(func() {
		subscription.shutdown(nil)
		subscription.cancel()
		<-subscription.done
	})
}

var _ Store = (*FirestoreStore)(nil)
var _ Store = (*SQLiteStore)(nil)
