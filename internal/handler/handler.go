// Package handler contains the per-category task executors. Exactly one
// handler exists per category; the dispatcher looks them up through a fixed
// mapping built at startup.
package handler

import (
	"context"

	"github.com/kazz187/chipcliff/internal/task"
)

// Verdict is what a handler reports back after running. Feedback is the text
// recorded to the task log; a handler-level failure (e.g. a test that did not
// pass) is reported here, not as an error from Execute.
type Verdict struct {
	Output   string
	Feedback string
}

// Handler executes the domain work for one category. Execute returns an
// error only for faults (the work could not be attempted or blew up); a
// completed run with a negative outcome is a Verdict, not an error.
type Handler interface {
	Category() task.Category
	Execute(ctx context.Context, description string) (*Verdict, error)
}

// Journal is the slice of the ledger that handlers write global entries to.
type Journal interface {
	AppendError(ctx context.Context, message string) error
	AppendResult(ctx context.Context, summary string) error
}
