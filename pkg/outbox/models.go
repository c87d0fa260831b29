package outbox

import (
	"time"

	"gorm.io/datatypes"
)

// Action is the mutation an item replays against its target table
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is one of the known mutations
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// Status is the delivery state of an item. Items never return to pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Item is one queued mutation, owned by exactly one company
type Item struct {
	ID           uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	CompanyID    uint              `json:"company_id" gorm:"column:company_id;not null;index"`
	Target       string            `json:"table_name" gorm:"column:table_name;not null;size:64"` // Target table the payload is replayed against
	Action       Action            `json:"action" gorm:"column:action;not null;size:16"`
	Payload      datatypes.JSONMap `json:"payload" gorm:"column:payload"`
	Status       Status            `json:"status" gorm:"column:status;size:16;default:pending;index"`
	ErrorMessage *string           `json:"error_message" gorm:"column:error_message;type:text"`
	CreatedAt    time.Time         `json:"created_at" gorm:"column:created_at;index"`
	ProcessedAt  *time.Time        `json:"processed_at" gorm:"column:processed_at"`
}

// TableName sets the table name for GORM
func (Item) TableName() string {
	return "sync_queue"
}

// Result reports the outcome of one processor run
type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Counts are the per-status item totals of a company
type Counts struct {
	Pending   int64 `json:"pending"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}
