package memory

import (
	"context"
	"slices"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
)

type parkingEntryRepository struct {
	store *Store
}

func NewParkingEntryRepository(store *Store) parking.EntryRepository {
	return &parkingEntryRepository{store: store}
}

func (r *parkingEntryRepository) checkShiftRef(shiftID *string) error {
	if shiftID == nil {
		return nil
	}
	if _, ok := r.store.sessions[*shiftID]; !ok {
		return shift.ErrShiftNotFound
	}
	return nil
}

// Create implements parking.EntryRepository.
func (r *parkingEntryRepository) Create(ctx context.Context, entry parking.Entry) (parking.Entry, error) {
	defer r.store.lock(ctx)()

	if err := r.checkShiftRef(entry.ShiftSessionID); err != nil {
		return parking.Entry{}, err
	}
	if entry.ID == "" {
		entry.ID = newID()
	}
	now := r.store.now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.store.entries[entry.ID] = entry
	return entry, nil
}

// GetByID implements parking.EntryRepository.
func (r *parkingEntryRepository) GetByID(ctx context.Context, id string) (parking.Entry, error) {
	defer r.store.lock(ctx)()

	entry, ok := r.store.entries[id]
	if !ok {
		return parking.Entry{}, parking.ErrEntryNotFound
	}
	return entry, nil
}

// Update implements parking.EntryRepository.
func (r *parkingEntryRepository) Update(ctx context.Context, entry parking.Entry) error {
	defer r.store.lock(ctx)()

	current, ok := r.store.entries[entry.ID]
	if !ok {
		return parking.ErrEntryNotFound
	}
	if err := r.checkShiftRef(entry.ShiftSessionID); err != nil {
		return err
	}
	entry.CreatedAt = current.CreatedAt
	entry.UpdatedAt = r.store.now()
	r.store.entries[entry.ID] = entry
	return nil
}

// Delete implements parking.EntryRepository.
func (r *parkingEntryRepository) Delete(ctx context.Context, id string) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.entries[id]; !ok {
		return parking.ErrEntryNotFound
	}
	delete(r.store.entries, id)
	return nil
}

// ListByShift implements parking.EntryRepository.
func (r *parkingEntryRepository) ListByShift(ctx context.Context, shiftID string) ([]parking.Entry, error) {
	defer r.store.lock(ctx)()

	entries := []parking.Entry{}
	for _, e := range r.store.entries {
		if e.ShiftSessionID != nil && *e.ShiftSessionID == shiftID {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b parking.Entry) int {
		return a.EntryTime.Compare(b.EntryTime)
	})
	return entries, nil
}

// List implements parking.EntryRepository.
func (r *parkingEntryRepository) List(ctx context.Context, filter parking.EntryFilter) ([]parking.Entry, int64, error) {
	defer r.store.lock(ctx)()

	var entries []parking.Entry
	for _, e := range r.store.entries {
		if filter.UnassignedOnly && e.ShiftSessionID != nil {
			continue
		}
		if filter.ShiftSessionID != nil && (e.ShiftSessionID == nil || *e.ShiftSessionID != *filter.ShiftSessionID) {
			continue
		}
		if filter.Status != nil && string(e.Status) != *filter.Status {
			continue
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b parking.Entry) int {
		return b.EntryTime.Compare(a.EntryTime)
	})
	return paginate(entries, filter.Limit, filter.Offset), int64(len(entries)), nil
}

// LinkUnassignedSince implements parking.EntryRepository.
func (r *parkingEntryRepository) LinkUnassignedSince(ctx context.Context, shiftID string, since time.Time) (int, error) {
	defer r.store.lock(ctx)()

	if err := r.checkShiftRef(&shiftID); err != nil {
		return 0, err
	}
	now := r.store.now()
	linked := 0
	for id, e := range r.store.entries {
		if e.ShiftSessionID != nil || e.EntryTime.Before(since) {
			continue
		}
		sid := shiftID
		e.ShiftSessionID = &sid
		e.UpdatedAt = now
		r.store.entries[id] = e
		linked++
	}
	return linked, nil
}
