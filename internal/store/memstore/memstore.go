// Package memstore is the in-process store driver used by tests, local
// development and the memory driver setting.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-auth/internal/role"
	"github.com/odyssey-erp/odyssey-auth/internal/store"
)

// Store keeps applications and roles in maps guarded by one RWMutex. All
// documents are deep-copied on the way in and out.
type Store struct {
	mu       sync.RWMutex
	apps     map[string]role.App
	roles    map[string]role.Role
	watchers map[*watcher]struct{}
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		apps:     make(map[string]role.App),
		roles:    make(map[string]role.Role),
		watchers: make(map[*watcher]struct{}),
	}
}

// Seed inserts the local application and role when missing and returns the
// application id.
func (s *Store) Seed(ctx context.Context) (string, error) {
	return store.Seed(ctx, s)
}

func (s *Store) FindAppByName(ctx context.Context, name string) (role.App, error) {
	if err := ctx.Err(); err != nil {
		return role.App{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.apps {
		if a.Name == name {
			return a.Clone(), nil
		}
	}
	return role.App{}, store.ErrAppNotFound
}

func (s *Store) ListRolesByApp(ctx context.Context, appID string) (store.RoleIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []role.Role
	for _, r := range s.roles {
		if r.App == appID {
			out = append(out, r.Clone())
		}
	}
	return &roleIterator{roles: out}, nil
}

func (s *Store) WatchRoles(ctx context.Context) (store.Watcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &watcher{
		ch:   make(chan store.Event, 16),
		done: make(chan struct{}),
		drop: func(w *watcher) {
			s.mu.Lock()
			delete(s.watchers, w)
			s.mu.Unlock()
		},
	}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close(context.Background())
		case <-w.done:
		}
	}()

	return w, nil
}

func (s *Store) UpdateRoleItems(ctx context.Context, roleID string, items role.RoleItems) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	r, ok := s.roles[roleID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	r.Items = items.Clone()
	r.UpdatedAt = time.Now().UTC()
	s.roles[roleID] = r
	s.mu.Unlock()

	s.publish(store.Event{Op: "update"})
	return nil
}

func (s *Store) InsertApp(ctx context.Context, a role.App) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := a.Clone()
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	s.mu.Lock()
	s.apps[c.ID] = c
	s.mu.Unlock()
	return c.ID, nil
}

func (s *Store) InsertRole(ctx context.Context, r role.Role) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := r.Clone()
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	s.mu.Lock()
	s.roles[c.ID] = c
	s.mu.Unlock()

	s.publish(store.Event{Op: "insert"})
	return c.ID, nil
}

// Watchers reports the number of open subscriptions. Tests use it to await
// subscription before mutating roles.
func (s *Store) Watchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

// publish fans the event out to every subscriber. Slow subscribers lose
// events instead of blocking writers; the consumer treats any arrival as a
// refresh signal, so coalescing is harmless.
func (s *Store) publish(ev store.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for w := range s.watchers {
		select {
		case w.ch <- ev:
		default:
		}
	}
}

type roleIterator struct {
	roles []role.Role
	pos   int
}

func (it *roleIterator) Next(ctx context.Context) (role.Role, error) {
	if err := ctx.Err(); err != nil {
		return role.Role{}, err
	}
	if it.pos >= len(it.roles) {
		return role.Role{}, store.ErrIteratorDone
	}
	r := it.roles[it.pos]
	it.pos++
	return r, nil
}

func (it *roleIterator) Close(ctx context.Context) error {
	it.pos = len(it.roles)
	return nil
}

type watcher struct {
	ch   chan store.Event
	done chan struct{}
	drop func(*watcher)
	once sync.Once
}

func (w *watcher) Events() <-chan store.Event { return w.ch }

func (w *watcher) Err() error { return nil }

func (w *watcher) Close(ctx context.Context) error {
	w.once.Do(func() {
		w.drop(w)
		close(w.done)
		close(w.ch)
	})
	return nil
}
