package parking

import (
	"context"
	"time"
)

// EntryRepository defines data access methods for parking entries.
type EntryRepository interface {
	// Create inserts a new entry and returns it with generated fields filled
	Create(ctx context.Context, entry Entry) (Entry, error)

	// GetByID returns ErrEntryNotFound when no entry matches
	GetByID(ctx context.Context, id string) (Entry, error)

	// Update overwrites the mutable fields of an entry
	Update(ctx context.Context, entry Entry) error

	Delete(ctx context.Context, id string) error

	// ListByShift returns every entry linked to the shift, oldest entry first
	ListByShift(ctx context.Context, shiftID string) ([]Entry, error)

	List(ctx context.Context, filter EntryFilter) ([]Entry, int64, error)

	// LinkUnassignedSince stamps shiftID onto unassigned entries that entered at or after since
	LinkUnassignedSince(ctx context.Context, shiftID string, since time.Time) (int, error)
}
