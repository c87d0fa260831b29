package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanbaker/tollsync/pkg/outbox"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists the sync queue with gorm
type Store struct {
	db *gorm.DB
}

// NewStore creates a new queue store and migrates the sync_queue table
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&outbox.Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sync queue: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(ctx context.Context, item *outbox.Item) error {
	item.Status = outbox.StatusPending
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to append item: %w", err)
	}
	return nil
}

func (s *Store) Pending(ctx context.Context) ([]outbox.Item, error) {
	var items []outbox.Item
	err := s.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id uint, at time.Time) error {
	return s.mark(ctx, id, map[string]any{
		"status":        outbox.StatusProcessed,
		"error_message": nil,
		"processed_at":  at,
	})
}

func (s *Store) MarkFailed(ctx context.Context, id uint, message string, at time.Time) error {
	return s.mark(ctx, id, map[string]any{
		"status":        outbox.StatusFailed,
		"error_message": message,
		"processed_at":  at,
	})
}

// mark moves a pending item to its terminal status
func (s *Store) mark(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&outbox.Item{}).
		Where("id = ? AND status = ?", id, outbox.StatusPending).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update item %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("item %d is no longer pending", id)
	}
	return nil
}

func (s *Store) Counts(ctx context.Context, companyID uint) (outbox.Counts, error) {
	var rows []struct {
		Status outbox.Status
		Total  int64
	}

	err := s.db.WithContext(ctx).
		Model(&outbox.Item{}).
		Select("status, COUNT(*) AS total").
		Where("company_id = ?", companyID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return outbox.Counts{}, fmt.Errorf("failed to count items: %w", err)
	}

	var counts outbox.Counts
	for _, row := range rows {
		switch row.Status {
		case outbox.StatusPending:
			counts.Pending = row.Total
		case outbox.StatusProcessed:
			counts.Processed = row.Total
		case outbox.StatusFailed:
			counts.Failed = row.Total
		}
	}
	return counts, nil
}

/** Applier */

// Applier replays queue items against arbitrary tables of the same database. Table
// names must be checked against an allow-list before they reach it.
type Applier struct {
	db *gorm.DB
}

// NewApplier creates a new gorm applier
func NewApplier(db *gorm.DB) *Applier {
	return &Applier{db: db}
}

func (a *Applier) Insert(ctx context.Context, table string, row map[string]any) error {
	if err := a.db.WithContext(ctx).Table(table).Create(row).Error; err != nil {
		return fmt.Errorf("insert into %s failed: %w", table, err)
	}
	return nil
}

func (a *Applier) Update(ctx context.Context, table string, companyID uint, id any, fields map[string]any) (int64, error) {
	result := a.db.WithContext(ctx).
		Table(table).
		Where("id = ? AND company_id = ?", id, companyID).
		Updates(fields)
	if result.Error != nil {
		return 0, fmt.Errorf("update of %s failed: %w", table, result.Error)
	}
	return result.RowsAffected, nil
}

func (a *Applier) Delete(ctx context.Context, table string, companyID uint, id any) (int64, error) {
	result := a.db.WithContext(ctx).
		Exec("DELETE FROM ? WHERE id = ? AND company_id = ?", clause.Table{Name: table}, id, companyID)
	if result.Error != nil {
		return 0, fmt.Errorf("delete from %s failed: %w", table, result.Error)
	}
	return result.RowsAffected, nil
}
