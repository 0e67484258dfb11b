package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is a point-in-time view of the synchronization loop.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastRefresh time.Time `json:"lastRefresh,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
}

// Syncer keeps an Auth cache aligned with the store. It performs one
// blocking refresh on Start, then follows the store's change feed and
// refreshes after every role mutation.
type Syncer struct {
	auth   *Auth
	logger *slog.Logger

	mu          sync.Mutex
	healthy     bool
	lastErr     error
	lastRefresh time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSyncer wires a syncer to the given facade.
func NewSyncer(a *Auth, logger *slog.Logger) *Syncer {
	return &Syncer{auth: a, logger: logger}
}

// Start loads the cache once, synchronously, and then launches the watch
// loop. A failed initial load is returned to the caller and nothing is
// started; the caller decides whether to boot without a cache.
func (s *Syncer) Start(ctx context.Context) error {
	if err := s.auth.Refresh(ctx); err != nil {
		s.record(err)
		return err
	}
	s.record(nil)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx)
	return nil
}

// Shutdown stops the watch loop and waits for it to drain.
func (s *Syncer) Shutdown(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) run(ctx context.Context) {
	defer close(s.done)

	w, err := s.auth.store.WatchRoles(ctx)
	if err != nil {
		// Without a change feed the cache would silently go stale, so the
		// loop reports itself unhealthy and stops instead of masking it.
		s.logger.Error("role watch unavailable", slog.Any("error", err))
		s.record(fmt.Errorf("authz: watch roles: %w", err))
		return
	}
	defer w.Close(context.Background())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				if err := w.Err(); err != nil {
					s.logger.Error("role watch closed", slog.Any("error", err))
					s.record(fmt.Errorf("authz: watch roles: %w", err))
				}
				return
			}
			s.logger.Debug("role change observed", slog.String("op", ev.Op))
			if err := s.auth.Refresh(ctx); err != nil {
				s.logger.Error("role refresh failed", slog.Any("error", err))
				s.record(err)
				continue
			}
			s.record(nil)
		}
	}
}

func (s *Syncer) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.healthy = false
		s.lastErr = err
		return
	}
	s.healthy = true
	s.lastErr = nil
	s.lastRefresh = time.Now().UTC()
}

// Healthy reports whether the last synchronization attempt succeeded.
func (s *Syncer) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

// LastError returns the error recorded by the most recent failed attempt,
// or nil when the syncer is healthy.
func (s *Syncer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastRefresh returns when the cache was last successfully reloaded.
func (s *Syncer) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// Status snapshots the loop's health for reporting endpoints.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Healthy: s.healthy, LastRefresh: s.lastRefresh}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
