package memory

import (
	"context"
	"slices"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
)

type shiftSessionRepository struct {
	store *Store
}

func NewShiftSessionRepository(store *Store) shift.SessionRepository {
	return &shiftSessionRepository{store: store}
}

// activeIDExcept returns the id of an active session other than id, if any.
func (r *shiftSessionRepository) activeIDExcept(id string) (string, bool) {
	for _, s := range r.store.sessions {
		if s.Status == shift.StatusActive && s.ID != id {
			return s.ID, true
		}
	}
	return "", false
}

// Create implements shift.SessionRepository.
func (r *shiftSessionRepository) Create(ctx context.Context, session shift.Session) (shift.Session, error) {
	defer r.store.lock(ctx)()

	if session.Status == shift.StatusActive {
		if _, exists := r.activeIDExcept(""); exists {
			return shift.Session{}, shift.ErrShiftAlreadyActive
		}
	}

	if session.ID == "" {
		session.ID = newID()
	}
	now := r.store.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.store.sessions[session.ID] = session
	return session, nil
}

// GetByID implements shift.SessionRepository.
func (r *shiftSessionRepository) GetByID(ctx context.Context, id string) (shift.Session, error) {
	defer r.store.lock(ctx)()

	s, ok := r.store.sessions[id]
	if !ok {
		return shift.Session{}, shift.ErrShiftNotFound
	}
	return s, nil
}

// GetByIDForUpdate implements shift.SessionRepository. The store lock held by
// the unit of work already excludes every other writer.
func (r *shiftSessionRepository) GetByIDForUpdate(ctx context.Context, id string) (shift.Session, error) {
	return r.GetByID(ctx, id)
}

// GetActive implements shift.SessionRepository.
func (r *shiftSessionRepository) GetActive(ctx context.Context) (*shift.Session, error) {
	defer r.store.lock(ctx)()

	id, ok := r.activeIDExcept("")
	if !ok {
		return nil, nil
	}
	s := r.store.sessions[id]
	return &s, nil
}

// CountActive implements shift.SessionRepository.
func (r *shiftSessionRepository) CountActive(ctx context.Context) (int, error) {
	defer r.store.lock(ctx)()

	count := 0
	for _, s := range r.store.sessions {
		if s.Status == shift.StatusActive {
			count++
		}
	}
	return count, nil
}

// Update implements shift.SessionRepository.
func (r *shiftSessionRepository) Update(ctx context.Context, session shift.Session) error {
	defer r.store.lock(ctx)()

	current, ok := r.store.sessions[session.ID]
	if !ok {
		return shift.ErrShiftNotFound
	}
	if session.Status == shift.StatusActive {
		if _, exists := r.activeIDExcept(session.ID); exists {
			return shift.ErrShiftAlreadyActive
		}
	}

	current.EmployeePhone = session.EmployeePhone
	current.StartTime = session.StartTime
	current.EndTime = session.EndTime
	current.Status = session.Status
	current.ClosingCash = session.ClosingCash
	current.CashDiscrepancy = session.CashDiscrepancy
	current.DurationMinutes = session.DurationMinutes
	current.Notes = session.Notes
	current.UpdatedAt = r.store.now()
	r.store.sessions[session.ID] = current
	return nil
}

// UpdateStatistics implements shift.SessionRepository.
func (r *shiftSessionRepository) UpdateStatistics(ctx context.Context, id string, stats shift.Statistics, at time.Time) error {
	defer r.store.lock(ctx)()

	current, ok := r.store.sessions[id]
	if !ok {
		return shift.ErrShiftNotFound
	}
	current.Statistics = stats
	current.UpdatedAt = at
	r.store.sessions[id] = current
	return nil
}

// ListByEmployee implements shift.SessionRepository.
func (r *shiftSessionRepository) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]shift.Session, error) {
	defer r.store.lock(ctx)()

	var sessions []shift.Session
	for _, s := range r.store.sessions {
		if s.EmployeeID == employeeID {
			sessions = append(sessions, s)
		}
	}
	slices.SortFunc(sessions, func(a, b shift.Session) int {
		return b.StartTime.Compare(a.StartTime)
	})
	return paginate(sessions, limit, offset), nil
}

// ListStartedBetween implements shift.SessionRepository.
func (r *shiftSessionRepository) ListStartedBetween(ctx context.Context, from, to time.Time) ([]shift.Session, error) {
	defer r.store.lock(ctx)()

	sessions := []shift.Session{}
	for _, s := range r.store.sessions {
		if !s.StartTime.Before(from) && s.StartTime.Before(to) {
			sessions = append(sessions, s)
		}
	}
	slices.SortFunc(sessions, func(a, b shift.Session) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return sessions, nil
}
