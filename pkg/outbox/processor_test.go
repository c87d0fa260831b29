package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/** Fakes */

type sliceStore struct {
	mutex    sync.Mutex
	items    []Item
	fetchErr error
	entered  chan struct{}
	block    chan struct{}
}

func (s *sliceStore) Append(_ context.Context, item *Item) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item.ID = uint(len(s.items) + 1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	s.items = append(s.items, *item)
	return nil
}

func (s *sliceStore) Pending(context.Context) ([]Item, error) {
	if s.block != nil {
		close(s.entered)
		<-s.block
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var pending []Item
	for _, item := range s.items {
		if item.Status == StatusPending {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

func (s *sliceStore) MarkProcessed(_ context.Context, id uint, at time.Time) error {
	return s.mark(id, StatusProcessed, nil, at)
}

func (s *sliceStore) MarkFailed(_ context.Context, id uint, message string, at time.Time) error {
	return s.mark(id, StatusFailed, &message, at)
}

func (s *sliceStore) mark(id uint, status Status, message *string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.items[id-1].Status = status
	s.items[id-1].ErrorMessage = message
	s.items[id-1].ProcessedAt = &at
	return nil
}

func (s *sliceStore) Counts(_ context.Context, companyID uint) (Counts, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var counts Counts
	for _, item := range s.items {
		if item.CompanyID != companyID {
			continue
		}
		switch item.Status {
		case StatusPending:
			counts.Pending++
		case StatusProcessed:
			counts.Processed++
		case StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (s *sliceStore) item(id uint) Item {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.items[id-1]
}

type call struct {
	Action    Action
	Table     string
	CompanyID uint
	ID        any
	Fields    map[string]any
}

type recordingApplier struct {
	calls    []call
	affected int64
	err      error
}

func (a *recordingApplier) Insert(_ context.Context, table string, row map[string]any) error {
	a.calls = append(a.calls, call{Action: ActionCreate, Table: table, Fields: row})
	return a.err
}

func (a *recordingApplier) Update(_ context.Context, table string, companyID uint, id any, fields map[string]any) (int64, error) {
	a.calls = append(a.calls, call{Action: ActionUpdate, Table: table, CompanyID: companyID, ID: id, Fields: fields})
	return a.affected, a.err
}

func (a *recordingApplier) Delete(_ context.Context, table string, companyID uint, id any) (int64, error) {
	a.calls = append(a.calls, call{Action: ActionDelete, Table: table, CompanyID: companyID, ID: id})
	return a.affected, a.err
}

func newProcessor() (*Processor, *sliceStore, *recordingApplier) {
	store := &sliceStore{}
	applier := &recordingApplier{affected: 1}
	return NewProcessor(store, applier, []string{"vehicles", "drivers"}), store, applier
}

// seed bypasses Enqueue validation, the way a writer sharing the table would
func seed(t *testing.T, store *sliceStore, companyID uint, table string, action Action, payload map[string]any) uint {
	t.Helper()

	item := &Item{CompanyID: companyID, Target: table, Action: action, Payload: payload, Status: StatusPending}
	require.NoError(t, store.Append(context.Background(), item))
	return item.ID
}

/** Tests */

func TestProcessIsolatesFailures(t *testing.T) {
	for position := range 3 {
		t.Run(fmt.Sprintf("bad item at %d", position+1), func(t *testing.T) {
			processor, store, _ := newProcessor()

			var ids []uint
			for i := range 3 {
				payload := map[string]any{"id": float64(i + 1), "plate": "ABC"}
				if i == position {
					delete(payload, "id")
				}
				ids = append(ids, seed(t, store, 1, "vehicles", ActionUpdate, payload))
			}

			result, err := processor.Process(context.Background())
			require.NoError(t, err)
			assert.Equal(t, &Result{Processed: 2, Failed: 1}, result)

			for i, id := range ids {
				item := store.item(id)
				if i == position {
					assert.Equal(t, StatusFailed, item.Status)
					require.NotNil(t, item.ErrorMessage)
					assert.Contains(t, *item.ErrorMessage, "missing id")
				} else {
					assert.Equal(t, StatusProcessed, item.Status)
					assert.Nil(t, item.ErrorMessage)
				}
				assert.NotNil(t, item.ProcessedAt)
			}
		})
	}
}

func TestProcessOrder(t *testing.T) {
	processor, store, applier := newProcessor()

	for i := range 5 {
		seed(t, store, 1, "vehicles", ActionDelete, map[string]any{"id": i})
	}

	_, err := processor.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, applier.calls, 5)
	for i, c := range applier.calls {
		assert.Equal(t, i, c.ID)
	}
}

func TestProcessCompanyScope(t *testing.T) {
	processor, store, applier := newProcessor()

	seed(t, store, 7, "vehicles", ActionCreate, map[string]any{"plate": "XYZ", "company_id": float64(99)})
	seed(t, store, 7, "vehicles", ActionUpdate, map[string]any{"id": 3, "plate": "NEW", "company_id": float64(99)})

	_, err := processor.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, applier.calls, 2)

	assert.Equal(t, uint(7), applier.calls[0].Fields["company_id"])
	assert.Equal(t, uint(7), applier.calls[1].CompanyID)
	assert.Equal(t, map[string]any{"plate": "NEW"}, applier.calls[1].Fields)
}

func TestProcessFailureModes(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		action  Action
		payload map[string]any
		applier *recordingApplier
		message string
	}{
		{"unlisted table", "users", ActionCreate, map[string]any{"name": "x"}, &recordingApplier{affected: 1}, "not a sync target"},
		{"invalid action", "vehicles", Action("upsert"), map[string]any{"id": 1}, &recordingApplier{affected: 1}, "invalid action"},
		{"delete without id", "vehicles", ActionDelete, map[string]any{}, &recordingApplier{affected: 1}, "missing id"},
		{"update without fields", "vehicles", ActionUpdate, map[string]any{"id": 1}, &recordingApplier{affected: 1}, "no fields"},
		{"row in another company", "vehicles", ActionUpdate, map[string]any{"id": 1, "plate": "x"}, &recordingApplier{affected: 0}, ErrNoRows.Error()},
		{"store rejection", "vehicles", ActionCreate, map[string]any{"plate": "x"}, &recordingApplier{err: errors.New("constraint violated")}, "constraint violated"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := &sliceStore{}
			processor := NewProcessor(store, test.applier, []string{"vehicles"})
			id := seed(t, store, 1, test.table, test.action, test.payload)

			result, err := processor.Process(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, result.Failed)

			item := store.item(id)
			assert.Equal(t, StatusFailed, item.Status)
			require.NotNil(t, item.ErrorMessage)
			assert.Contains(t, *item.ErrorMessage, test.message)
		})
	}
}

func TestProcessFetchError(t *testing.T) {
	store := &sliceStore{fetchErr: errors.New("connection lost")}
	processor := NewProcessor(store, &recordingApplier{}, nil)

	_, err := processor.Process(context.Background())
	assert.ErrorContains(t, err, "connection lost")
}

func TestProcessSingleRun(t *testing.T) {
	store := &sliceStore{entered: make(chan struct{}), block: make(chan struct{})}
	processor := NewProcessor(store, &recordingApplier{affected: 1}, []string{"vehicles"})

	done := make(chan error, 1)
	go func() {
		_, err := processor.Process(context.Background())
		done <- err
	}()

	// The first run holds the lock while it fetches
	<-store.entered

	_, err := processor.Process(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(store.block)
	assert.NoError(t, <-done)
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	processor, store, _ := newProcessor()

	item, err := processor.Enqueue(ctx, 3, " vehicles ", ActionCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, "vehicles", item.Target)
	assert.Equal(t, StatusPending, item.Status)

	tests := []struct {
		name      string
		companyID uint
		table     string
		action    Action
		payload   map[string]any
	}{
		{"no company", 0, "vehicles", ActionCreate, nil},
		{"no table", 3, "", ActionCreate, nil},
		{"unlisted table", 3, "users", ActionCreate, nil},
		{"bad action", 3, "vehicles", Action("merge"), nil},
		{"update without id", 3, "vehicles", ActionUpdate, map[string]any{"plate": "x"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := processor.Enqueue(ctx, test.companyID, test.table, test.action, test.payload)
			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}

	counts, err := processor.Status(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, Counts{Pending: 1}, counts)
	assert.Len(t, store.items, 1)
}
