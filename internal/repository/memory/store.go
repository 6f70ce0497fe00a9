// Package memory is a single-process storage driver with the same unit-of-work
// semantics as the PostgreSQL driver: one writer at a time, all-or-nothing commits,
// and a single active shift slot checked on every write.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/audit"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/google/uuid"
)

type txKey struct{}

type Store struct {
	mu         sync.Mutex
	sessions   map[string]shift.Session
	changes    map[string]shift.ChangeRecord
	entries    map[string]parking.Entry
	accessLogs []audit.AccessLog
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]shift.Session),
		changes:  make(map[string]shift.ChangeRecord),
		entries:  make(map[string]parking.Entry),
		now:      time.Now,
	}
}

type snapshot struct {
	sessions   map[string]shift.Session
	changes    map[string]shift.ChangeRecord
	entries    map[string]parking.Entry
	accessLogs []audit.AccessLog
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		sessions:   maps.Clone(s.sessions),
		changes:    maps.Clone(s.changes),
		entries:    maps.Clone(s.entries),
		accessLogs: slices.Clone(s.accessLogs),
	}
}

func (s *Store) restore(snap snapshot) {
	s.sessions = snap.sessions
	s.changes = snap.changes
	s.entries = snap.entries
	s.accessLogs = snap.accessLogs
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// WithinTransaction implements database.Transactor. The store lock is held for
// the whole of fn, and every change fn made is discarded when it fails or panics.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock serializes standalone calls; calls inside a unit of work already own the lock.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
