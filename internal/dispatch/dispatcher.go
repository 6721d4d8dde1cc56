// Package dispatch orchestrates the task lifecycle: classify the incoming
// description, run the matching handler and persist the outcome.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/chipcliff/internal/classifier"
	"github.com/kazz187/chipcliff/internal/handler"
	"github.com/kazz187/chipcliff/internal/task"
	"github.com/kazz187/chipcliff/pkg/cerr"
	"github.com/kazz187/chipcliff/pkg/panicerr"
)

// Classifier is the slice of the classification service the dispatcher uses.
type Classifier interface {
	Classify(text string) (task.Category, error)
}

// Journal is the global error/result log side of the ledger.
type Journal interface {
	AppendError(ctx context.Context, message string) error
	AppendResult(ctx context.Context, summary string) error
}

// AssignmentError reports that a handler invocation faulted. The task record
// for that attempt was never written; the fault is in the global error log,
// keyed by the generated task ID.
type AssignmentError struct {
	TaskID string
	Err    error
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("failed to assign task %s: %v", e.TaskID, e.Err)
}

func (e *AssignmentError) Unwrap() error {
	return e.Err
}

// Result is what a successful Handle returns to the HTTP layer.
type Result struct {
	TaskID      string        `json:"task_id"`
	Category    task.Category `json:"category"`
	Status      task.Status   `json:"status"`
	Description string        `json:"description"`
}

type Dispatcher struct {
	classifier Classifier
	repo       task.Repository
	journal    Journal
	handlers   map[task.Category]handler.Handler
	now        func() time.Time
}

// New builds a Dispatcher over a fixed handler set. Every category must have
// exactly one handler; this is checked once here so an unknown category can
// never surface at dispatch time.
func New(c Classifier, repo task.Repository, journal Journal, handlers ...handler.Handler) (*Dispatcher, error) {
	byCategory := make(map[task.Category]handler.Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := byCategory[h.Category()]; dup {
			return nil, fmt.Errorf("duplicate handler for category %s", h.Category())
		}
		byCategory[h.Category()] = h
	}
	for _, cat := range task.Categories() {
		if _, ok := byCategory[cat]; !ok {
			return nil, fmt.Errorf("no handler for category %s", cat)
		}
	}
	return &Dispatcher{
		classifier: c,
		repo:       repo,
		journal:    journal,
		handlers:   byCategory,
		now:        time.Now,
	}, nil
}

// Handle is the composed entry point: classify, then assign. A
// classification failure is logged and surfaced as a structured error with
// no task record created.
func (d *Dispatcher) Handle(ctx context.Context, description string) (*Result, error) {
	category, err := d.classifier.Classify(description)
	if err != nil {
		d.logError(ctx, fmt.Sprintf("error during task classification: %v", err))
		return nil, cerr.NewError(cerr.Internal, "failed to classify task", err)
	}

	id, err := d.Assign(ctx, category, description)
	if err != nil {
		return nil, err
	}
	return &Result{
		TaskID:      id,
		Category:    category,
		Status:      task.StatusCompleted,
		Description: description,
	}, nil
}

// Assign generates a task ID, runs the category's handler synchronously and
// records the outcome. The record always lands with status completed: status
// tracks orchestration completion, while the handler's own verdict (success
// or failure text) goes to the task log. A faulting handler leaves the task
// collection untouched and yields an AssignmentError instead of an ID.
func (d *Dispatcher) Assign(ctx context.Context, category task.Category, description string) (string, error) {
	id := ulid.Make().String()

	h, ok := d.handlers[category]
	if !ok {
		// Unreachable with the closed category set checked in New.
		err := cerr.NewError(cerr.Internal, fmt.Sprintf("no handler for category %s", category), nil)
		d.logError(ctx, err.Error())
		return "", err
	}

	var verdict *handler.Verdict
	run := panicerr.SafeContext(func(ctx context.Context) error {
		v, err := h.Execute(ctx, description)
		verdict = v
		return err
	})
	if err := run(ctx); err != nil {
		d.logError(ctx, fmt.Sprintf("error assigning task %s: %v", id, err))
		return "", &AssignmentError{TaskID: id, Err: err}
	}
	if verdict == nil {
		verdict = &handler.Verdict{}
	}

	now := d.now()
	t := &task.Task{
		ID:          id,
		Description: description,
		Category:    category,
		Status:      task.StatusCompleted,
		Log:         verdict.Feedback,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.repo.Upsert(ctx, t); err != nil {
		d.logError(ctx, fmt.Sprintf("error recording task %s: %v", id, err))
		return "", err
	}

	slog.InfoContext(ctx, "task completed", "task_id", id, "category", category)
	return id, nil
}

// logError writes to the global error log; a failing journal write is itself
// only loggable.
func (d *Dispatcher) logError(ctx context.Context, message string) {
	if err := d.journal.AppendError(ctx, message); err != nil {
		slog.ErrorContext(ctx, "failed to append to error log", "error", err, "message", message)
	}
}

var _ Classifier = (*classifier.Classifier)(nil)
