package parking

import "context"

// Service owns parking entry writes. Every write that touches a shift
// reference re-aggregates the affected shift before it returns.
type Service interface {
	CreateEntry(ctx context.Context, req CreateEntryRequest) (Entry, error)
	RecordExit(ctx context.Context, req RecordExitRequest) (Entry, error)
	UpdateEntry(ctx context.Context, req UpdateEntryRequest) (Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int64, error)

	// LinkUnassignedEntries backfills entries created today while no shift was active
	LinkUnassignedEntries(ctx context.Context) (LinkResult, error)

	RateSchedule() RateSchedule
}
