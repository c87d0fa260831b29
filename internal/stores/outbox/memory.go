package outbox

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ethanbaker/tollsync/pkg/outbox"
)

// InMemoryStore provides an in-memory sync queue
type InMemoryStore struct {
	mutex  sync.Mutex
	items  []outbox.Item
	nextID uint
}

// NewInMemoryStore creates a new in-memory queue store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, item *outbox.Item) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	item.ID = s.nextID
	item.Status = outbox.StatusPending
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	stored := *item
	stored.Payload = maps.Clone(item.Payload)
	s.items = append(s.items, stored)
	return nil
}

func (s *InMemoryStore) Pending(_ context.Context) ([]outbox.Item, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var pending []outbox.Item
	for _, item := range s.items {
		if item.Status == outbox.StatusPending {
			item.Payload = maps.Clone(item.Payload)
			pending = append(pending, item)
		}
	}

	slices.SortStableFunc(pending, func(a, b outbox.Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID) - int(b.ID)
	})
	return pending, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, id uint, at time.Time) error {
	return s.mark(id, outbox.StatusProcessed, nil, at)
}

func (s *InMemoryStore) MarkFailed(_ context.Context, id uint, message string, at time.Time) error {
	return s.mark(id, outbox.StatusFailed, &message, at)
}

func (s *InMemoryStore) mark(id uint, status outbox.Status, message *string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if s.items[i].Status != outbox.StatusPending {
			return fmt.Errorf("item %d is no longer pending", id)
		}
		s.items[i].Status = status
		s.items[i].ErrorMessage = message
		s.items[i].ProcessedAt = &at
		return nil
	}
	return fmt.Errorf("item %d is no longer pending", id)
}

func (s *InMemoryStore) Counts(_ context.Context, companyID uint) (outbox.Counts, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var counts outbox.Counts
	for _, item := range s.items {
		if item.CompanyID != companyID {
			continue
		}
		switch item.Status {
		case outbox.StatusPending:
			counts.Pending++
		case outbox.StatusProcessed:
			counts.Processed++
		case outbox.StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

/** Applier */

// InMemoryApplier keeps target rows in memory, keyed by table and id
type InMemoryApplier struct {
	mutex  sync.Mutex
	tables map[string]map[string]map[string]any
	nextID int
}

// NewInMemoryApplier creates a new in-memory applier
func NewInMemoryApplier() *InMemoryApplier {
	return &InMemoryApplier{tables: make(map[string]map[string]map[string]any)}
}

func (a *InMemoryApplier) Insert(_ context.Context, table string, row map[string]any) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	row = maps.Clone(row)
	if row[outbox.IDColumn] == nil {
		a.nextID++
		row[outbox.IDColumn] = a.nextID
	}

	key := rowKey(row[outbox.IDColumn])
	rows := a.table(table)
	if _, ok := rows[key]; ok {
		return fmt.Errorf("insert into %s failed: duplicate id %s", table, key)
	}
	rows[key] = row
	return nil
}

func (a *InMemoryApplier) Update(_ context.Context, table string, companyID uint, id any, fields map[string]any) (int64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	row, ok := a.scoped(table, companyID, id)
	if !ok {
		return 0, nil
	}
	maps.Copy(row, fields)
	return 1, nil
}

func (a *InMemoryApplier) Delete(_ context.Context, table string, companyID uint, id any) (int64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if _, ok := a.scoped(table, companyID, id); !ok {
		return 0, nil
	}
	delete(a.tables[table], rowKey(id))
	return 1, nil
}

// Row returns a copy of a stored row
func (a *InMemoryApplier) Row(table string, id any) (map[string]any, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	row, ok := a.tables[table][rowKey(id)]
	return maps.Clone(row), ok
}

func (a *InMemoryApplier) table(name string) map[string]map[string]any {
	rows, ok := a.tables[name]
	if !ok {
		rows = make(map[string]map[string]any)
		a.tables[name] = rows
	}
	return rows
}

// scoped finds a row only if it belongs to the company
func (a *InMemoryApplier) scoped(table string, companyID uint, id any) (map[string]any, bool) {
	row, ok := a.tables[table][rowKey(id)]
	if !ok || rowKey(row[outbox.CompanyColumn]) != rowKey(companyID) {
		return nil, false
	}
	return row, true
}

// rowKey normalizes ids that arrive as JSON numbers, integers or strings
func rowKey(id any) string {
	return fmt.Sprint(id)
}
