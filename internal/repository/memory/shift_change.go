package memory

import (
	"context"
	"slices"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
)

type shiftChangeRepository struct {
	store *Store
}

func NewShiftChangeRepository(store *Store) shift.ChangeRepository {
	return &shiftChangeRepository{store: store}
}

// Create implements shift.ChangeRepository.
func (r *shiftChangeRepository) Create(ctx context.Context, record shift.ChangeRecord) (shift.ChangeRecord, error) {
	defer r.store.lock(ctx)()

	if err := record.CheckInvariants(); err != nil {
		return shift.ChangeRecord{}, err
	}
	if _, ok := r.store.sessions[record.PreviousShiftID]; !ok {
		return shift.ChangeRecord{}, shift.ErrShiftNotFound
	}
	if record.NewShiftID != nil {
		if _, ok := r.store.sessions[*record.NewShiftID]; !ok {
			return shift.ChangeRecord{}, shift.ErrShiftNotFound
		}
	}

	if record.ID == "" {
		record.ID = newID()
	}
	record.CreatedAt = r.store.now()
	r.store.changes[record.ID] = record
	return record, nil
}

// GetByID implements shift.ChangeRepository.
func (r *shiftChangeRepository) GetByID(ctx context.Context, id string) (shift.ChangeRecord, error) {
	defer r.store.lock(ctx)()

	record, ok := r.store.changes[id]
	if !ok {
		return shift.ChangeRecord{}, shift.ErrChangeRecordNotFound
	}
	return record, nil
}

// ListByShift implements shift.ChangeRepository.
func (r *shiftChangeRepository) ListByShift(ctx context.Context, shiftID string) ([]shift.ChangeRecord, error) {
	defer r.store.lock(ctx)()

	records := []shift.ChangeRecord{}
	for _, c := range r.store.changes {
		if c.PreviousShiftID == shiftID || (c.NewShiftID != nil && *c.NewShiftID == shiftID) {
			records = append(records, c)
		}
	}
	slices.SortFunc(records, func(a, b shift.ChangeRecord) int {
		return a.ChangeTimestamp.Compare(b.ChangeTimestamp)
	})
	return records, nil
}

// Update implements shift.ChangeRepository.
func (r *shiftChangeRepository) Update(ctx context.Context, record shift.ChangeRecord) error {
	defer r.store.lock(ctx)()

	current, ok := r.store.changes[record.ID]
	if !ok {
		return shift.ErrChangeRecordNotFound
	}
	current.HandoverNotes = record.HandoverNotes
	current.PendingIssues = record.PendingIssues
	r.store.changes[record.ID] = current
	return nil
}
