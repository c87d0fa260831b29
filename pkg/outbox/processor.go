// Package outbox drains a persisted queue of company scoped mutations and replays
// each one against its target table. Delivery is at least once with no automatic
// retry: a failed item stays failed until it is re-enqueued.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"
)

// Column names the processor reads from and writes into payloads
const (
	IDColumn      = "id"
	CompanyColumn = "company_id"
)

var (
	ErrAlreadyRunning = errors.New("outbox processing is already running")
	ErrNoRows         = errors.New("no matching row in company scope")
)

// Store persists queue items
type Store interface {
	// Append adds a pending item
	Append(ctx context.Context, item *Item) error

	// Pending returns every pending item in created_at, id order
	Pending(ctx context.Context) ([]Item, error)

	// MarkProcessed and MarkFailed move an item out of pending
	MarkProcessed(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, message string, at time.Time) error

	// Counts returns the per-status totals of a company
	Counts(ctx context.Context, companyID uint) (Counts, error)
}

// Applier writes mutations into target tables. Update and Delete filter on both the
// row id and the company and return the number of rows affected.
type Applier interface {
	Insert(ctx context.Context, table string, row map[string]any) error
	Update(ctx context.Context, table string, companyID uint, id any, fields map[string]any) (int64, error)
	Delete(ctx context.Context, table string, companyID uint, id any) (int64, error)
}

// ValidationError is returned by Enqueue for a malformed item
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Processor applies pending items one at a time
type Processor struct {
	store   Store
	applier Applier
	tables  []string

	running sync.Mutex
}

// NewProcessor creates a processor that only writes to the given tables
func NewProcessor(store Store, applier Applier, tables []string) *Processor {
	return &Processor{
		store:   store,
		applier: applier,
		tables:  slices.Clone(tables),
	}
}

// Allowed reports whether items may target the table
func (p *Processor) Allowed(table string) bool {
	return slices.Contains(p.tables, table)
}

// Enqueue validates and appends a pending item for the company
func (p *Processor) Enqueue(ctx context.Context, companyID uint, table string, action Action, payload map[string]any) (*Item, error) {
	table = strings.TrimSpace(table)

	switch {
	case companyID == 0:
		return nil, &ValidationError{Message: "company scope is required"}
	case table == "":
		return nil, &ValidationError{Message: "table_name is required"}
	case !p.Allowed(table):
		return nil, &ValidationError{Message: fmt.Sprintf("table '%s' is not a sync target", table)}
	case !action.Valid():
		return nil, &ValidationError{Message: fmt.Sprintf("invalid action '%s'", action)}
	case action != ActionCreate && payload[IDColumn] == nil:
		return nil, &ValidationError{Message: fmt.Sprintf("payload of a %s must contain an id", action)}
	}

	if payload == nil {
		payload = map[string]any{}
	}

	item := &Item{
		CompanyID: companyID,
		Target:    table,
		Action:    action,
		Payload:   payload,
		Status:    StatusPending,
	}
	if err := p.store.Append(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Process drains every pending item. A failing item is marked failed and the run
// continues; only a failed fetch returns an error.
func (p *Processor) Process(ctx context.Context) (*Result, error) {
	if !p.running.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer p.running.Unlock()

	items, err := p.store.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending items: %w", err)
	}

	result := &Result{}
	for i := range items {
		item := &items[i]

		if err := p.apply(ctx, item); err != nil {
			result.Failed++
			log.Printf("[OUTBOX]: Item %d (%s %s) failed: %v", item.ID, item.Action, item.Target, err)

			if markErr := p.store.MarkFailed(ctx, item.ID, err.Error(), time.Now()); markErr != nil {
				log.Printf("[OUTBOX]: Failed to mark item %d failed: %v", item.ID, markErr)
			}
			continue
		}

		if err := p.store.MarkProcessed(ctx, item.ID, time.Now()); err != nil {
			log.Printf("[OUTBOX]: Failed to mark item %d processed: %v", item.ID, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	if len(items) > 0 {
		log.Printf("[OUTBOX]: Processed %d items, %d failed", result.Processed, result.Failed)
	}
	return result, nil
}

// Status returns the item counts of a company
func (p *Processor) Status(ctx context.Context, companyID uint) (Counts, error) {
	return p.store.Counts(ctx, companyID)
}

// apply replays one item inside its company scope
func (p *Processor) apply(ctx context.Context, item *Item) error {
	if !p.Allowed(item.Target) {
		return fmt.Errorf("table '%s' is not a sync target", item.Target)
	}

	// The recorded company always wins over whatever the payload claims
	fields := make(map[string]any, len(item.Payload)+1)
	for k, v := range item.Payload {
		if k != CompanyColumn {
			fields[k] = v
		}
	}

	switch item.Action {
	case ActionCreate:
		fields[CompanyColumn] = item.CompanyID
		return p.applier.Insert(ctx, item.Target, fields)

	case ActionUpdate:
		id, ok := fields[IDColumn]
		if !ok || id == nil {
			return errors.New("update payload is missing id")
		}
		delete(fields, IDColumn)
		if len(fields) == 0 {
			return errors.New("update payload has no fields to change")
		}

		affected, err := p.applier.Update(ctx, item.Target, item.CompanyID, id, fields)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNoRows
		}
		return nil

	case ActionDelete:
		id, ok := fields[IDColumn]
		if !ok || id == nil {
			return errors.New("delete payload is missing id")
		}

		affected, err := p.applier.Delete(ctx, item.Target, item.CompanyID, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNoRows
		}
		return nil

	default:
		return fmt.Errorf("invalid action '%s'", item.Action)
	}
}
