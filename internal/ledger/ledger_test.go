package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/chipcliff/internal/task"
	"github.com/kazz187/chipcliff/pkg/cerr"
	"github.com/kazz187/chipcliff/pkg/storage"
)

func newTestStore(t *testing.T) (*Store, storage.Storage) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewStore(s), s
}

func TestStoreInitializesOnFirstUse(t *testing.T) {
	store, backing := newTestStore(t)
	ctx := context.Background()

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// The backing document was created by the read itself.
	exists, err := backing.Exists(ctx, "ledger.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpsertRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := &task.Task{
		ID:          "01TEST",
		Description: "write a parser",
		Category:    task.CategoryCoding,
		Status:      task.StatusCompleted,
		Log:         "Code tested successfully",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.Upsert(ctx, want))

	got, err := store.Get(ctx, "01TEST")
	require.NoError(t, err)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Log, got.Log)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestUpsertReplacesExistingRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &task.Task{ID: "01TEST", Description: "first"}))
	require.NoError(t, store.Upsert(ctx, &task.Task{ID: "01TEST", Description: "second"}))

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "second", tasks[0].Description)
}

func TestUpsertStatusCreatesMissingRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertStatus(ctx, "01MISSING", task.StatusFailed))

	got, err := store.Get(ctx, "01MISSING")
	require.NoError(t, err)
	// The created record carries exactly the given status, not a default.
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertStatusSkipsNoopWrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	store.now = func() time.Time { return t1 }
	require.NoError(t, store.UpsertStatus(ctx, "01TEST", task.StatusCompleted))

	store.now = func() time.Time { return t2 }
	require.NoError(t, store.UpsertStatus(ctx, "01TEST", task.StatusCompleted))

	got, err := store.Get(ctx, "01TEST")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(t1), "setting the same status must not touch the record")

	require.NoError(t, store.UpsertStatus(ctx, "01TEST", task.StatusFailed))
	got, err = store.Get(ctx, "01TEST")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(t2))
}

func TestWriteLogLatestWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &task.Task{ID: "01TEST"}))
	require.NoError(t, store.WriteLog(ctx, "01TEST", "first attempt"))
	require.NoError(t, store.WriteLog(ctx, "01TEST", "second attempt"))

	got, err := store.Get(ctx, "01TEST")
	require.NoError(t, err)
	assert.Equal(t, "second attempt", got.Log)
}

func TestWriteLogMissingTask(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.WriteLog(ctx, "01MISSING", "orphan text")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	// The failed write must not create a record.
	tasks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGetMissingTask(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "01MISSING")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestGlobalEntries(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendError(ctx, "something broke"))
	require.NoError(t, store.AppendError(ctx, "something else broke"))
	require.NoError(t, store.AppendResult(ctx, "Title: Go\nDescription: a language"))

	doc, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Errors, 2)
	assert.Equal(t, "something broke", doc.Errors[0].Text)
	assert.False(t, doc.Errors[0].Timestamp.IsZero())
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "Title: Go\nDescription: a language", doc.Results[0].Text)
}

func TestConcurrentUpserts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Upsert(ctx, &task.Task{
				ID:     fmt.Sprintf("01TASK%02d", i),
				Status: task.StatusCompleted,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, n, "concurrent writers must not lose records")
}

func TestSurvivesReopen(t *testing.T) {
	backing, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := NewStore(backing)
	require.NoError(t, first.Upsert(ctx, &task.Task{ID: "01TEST", Description: "durable"}))

	second := NewStore(backing)
	got, err := second.Get(ctx, "01TEST")
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Description)
}
