package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

type changeEvent struct {
	OperationType string `bson:"operationType"`
}

// WatchRoles opens a change stream over the roles collection and forwards
// every change as an event. The stream lives until Close is called or the
// given context ends.
func (s *Store) WatchRoles(ctx context.Context) (store.Watcher, error) {
	cs, err := s.roles.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("mongostore: watch roles: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	w := &watcher{
		ch:     make(chan store.Event, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(w.ch)
		defer close(w.done)

		for cs.Next(streamCtx) {
			var ev changeEvent
			op := ""
			if err := cs.Decode(&ev); err == nil {
				op = ev.OperationType
			}
			select {
			case w.ch <- store.Event{Op: op}:
			case <-streamCtx.Done():
			}
		}
		if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) {
			w.err = fmt.Errorf("mongostore: change stream: %w", err)
		}
		_ = cs.Close(context.Background())
	}()

	return w, nil
}

type watcher struct {
	ch     chan store.Event
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

func (w *watcher) Events() <-chan store.Event { return w.ch }

// Err reports why the stream ended. It returns nil while the stream is
// still open.
func (w *watcher) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

func (w *watcher) Close(ctx context.Context) error {
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
