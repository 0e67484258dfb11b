package pgstore

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

const notifyChannel = "role_changes"

// WatchRoles subscribes to the roles notify channel on a dedicated
// connection hijacked from the pool. The subscription lives until Close is
// called or the given context ends.
func (s *Store) WatchRoles(ctx context.Context) (store.Watcher, error) {
	pc, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore: acquire listen conn: %w", err)
	}
	conn := pc.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("pgstore: listen: %w", err)
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
		defer conn.Close(context.Background())

		for {
			n, err := conn.WaitForNotification(streamCtx)
			if err != nil {
				if streamCtx.Err() == nil {
					w.err = fmt.Errorf("pgstore: wait notification: %w", err)
				}
				return
			}
			select {
			case w.ch <- store.Event{Op: n.Payload}:
			case <-streamCtx.Done():
				return
			}
		}
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
