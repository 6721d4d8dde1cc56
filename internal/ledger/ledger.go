// Package ledger implements the durable record store: one YAML document
// holding every task record plus the global error and result logs. Each
// mutation reads the current document, applies a single change and writes the
// document back through the storage layer. A store-level mutex serializes
// these read-modify-write cycles so concurrent writers cannot lose updates;
// the storage layer makes each write itself atomic (temp file + rename).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/chipcliff/internal/task"
	"github.com/kazz187/chipcliff/pkg/cerr"
	"github.com/kazz187/chipcliff/pkg/storage"
)

const defaultPath = "ledger.yaml"

// Entry is one timestamped line in a global collection.
type Entry struct {
	Text      string    `yaml:"text"`
	Timestamp time.Time `yaml:"timestamp"`
}

// Document is the persisted shape of the whole store.
type Document struct {
	Tasks   []*task.Task `yaml:"tasks"`
	Errors  []Entry      `yaml:"errors,omitempty"`
	Results []Entry      `yaml:"results,omitempty"`
}

// Store owns the ledger document. All mutations go through mutate, which
// holds the write lock for the full load/apply/save cycle. Callers must not
// perform slow work (model calls, handler execution) while a store method is
// in flight; store methods never block on anything but storage I/O.
type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	path    string
	now     func() time.Time
}

func NewStore(s storage.Storage) *Store {
	return &Store{
		storage: s,
		path:    defaultPath,
		now:     time.Now,
	}
}

// load reads the current document, initializing an empty one on first use.
// Callers never create the schema explicitly; any operation self-heals a
// missing backing file.
func (s *Store) load(ctx context.Context) (*Document, error) {
	data, err := s.storage.Read(ctx, s.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			doc := &Document{}
			if err := s.save(ctx, doc); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return nil, cerr.WrapStorageReadError("ledger", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, cerr.NewError(cerr.DataLoss, "ledger is corrupt", fmt.Errorf("failed to unmarshal ledger: %w", err))
	}
	return &doc, nil
}

func (s *Store) save(ctx context.Context, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal ledger: %w", err))
	}
	if err := s.storage.Write(ctx, s.path, data); err != nil {
		return cerr.WrapStorageWriteError("ledger", err)
	}
	return nil
}

// mutate runs fn against the current document and persists the result. fn
// returning false means "nothing changed, skip the write".
func (s *Store) mutate(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(ctx, doc)
}

func findTask(doc *Document, id string) *task.Task {
	for _, t := range doc.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Upsert writes the full record, replacing any record with the same ID.
func (s *Store) Upsert(ctx context.Context, t *task.Task) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		for i, existing := range doc.Tasks {
			if existing.ID == t.ID {
				doc.Tasks[i] = t
				return true, nil
			}
		}
		doc.Tasks = append(doc.Tasks, t)
		return true, nil
	})
}

// UpsertStatus sets the status of an existing record, or creates a new record
// carrying exactly the given status when the ID is unknown.
func (s *Store) UpsertStatus(ctx context.Context, id string, status task.Status) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		now := s.now()
		if t := findTask(doc, id); t != nil {
			if t.Status == status {
				return false, nil
			}
			t.Status = status
			t.UpdatedAt = now
			return true, nil
		}
		doc.Tasks = append(doc.Tasks, &task.Task{
			ID:        id,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return true, nil
	})
}

// WriteLog replaces the log text of an existing record. The log is
// latest-wins: repeated writes keep only the most recent text. A missing ID
// is a NotFound error and the store is left untouched.
func (s *Store) WriteLog(ctx context.Context, id, text string) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		t := findTask(doc, id)
		if t == nil {
			return false, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", id), nil)
		}
		t.Log = text
		t.UpdatedAt = s.now()
		return true, nil
	})
}

// AppendError adds a timestamped entry to the global error log.
func (s *Store) AppendError(ctx context.Context, message string) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		doc.Errors = append(doc.Errors, Entry{Text: message, Timestamp: s.now()})
		return true, nil
	})
}

// AppendResult adds a timestamped entry to the global result log.
func (s *Store) AppendResult(ctx context.Context, summary string) error {
	return s.mutate(ctx, func(doc *Document) (bool, error) {
		doc.Results = append(doc.Results, Entry{Text: summary, Timestamp: s.now()})
		return true, nil
	})
}

func (s *Store) Get(ctx context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	t := findTask(doc, id)
	if t == nil {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", id), nil)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

// Snapshot returns the full document, used by tests and the CLI show command.
func (s *Store) Snapshot(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}
