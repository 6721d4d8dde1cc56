package task

import "context"

type Repository interface {
	// Upsert writes the full record, replacing any record with the same ID.
	Upsert(ctx context.Context, t *Task) error
	// UpsertStatus sets the status of the record with the given ID, creating
	// the record with exactly that status when it does not exist yet.
	UpsertStatus(ctx context.Context, id string, status Status) error
	// WriteLog replaces the record's log text. A missing ID is reported as a
	// NotFound error and leaves the store unchanged.
	WriteLog(ctx context.Context, id, text string) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
}
