package models

import (
	"time"

	"gorm.io/datatypes"
)

type OutboxTaskKind string

const (
	OutboxKindLedgerRent    OutboxTaskKind = "LEDGER_RENT"
	OutboxKindLedgerDeposit OutboxTaskKind = "LEDGER_DEPOSIT"
	OutboxKindOccupancy     OutboxTaskKind = "OCCUPANCY"
)

func (k OutboxTaskKind) IsLedger() bool {
	return k == OutboxKindLedgerRent || k == OutboxKindLedgerDeposit
}

// Outbox task statuses. Stored as strings.
const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusSucceeded  = "SUCCEEDED"
	OutboxStatusFailed     = "FAILED"
	OutboxStatusDead       = "DEAD"
	OutboxStatusAbandoned  = "ABANDONED"
	// OutboxStatusSuperseded marks an occupancy task replaced by a later room change.
	OutboxStatusSuperseded = "SUPERSEDED"
)

// OutboxTask is a side effect of a tenant write that must eventually happen:
// a ledger entry or an occupancy reconciliation. Rows are created in the same
// DB transaction as the tenant write.
type OutboxTask struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Kind       OutboxTaskKind `gorm:"size:32;index;not null" json:"kind"`
	Sequence   int            `gorm:"not null;default:0" json:"sequence"`
	TenantID   uint           `gorm:"index;column:tenant_id" json:"tenantId"`
	PropertyID uint           `gorm:"index;column:property_id" json:"propertyId"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload"`

	Status        string     `gorm:"size:20;index;not null;default:'PENDING'" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time `gorm:"index;column:next_attempt_at" json:"nextAttemptAt"`
	LastError     *string    `gorm:"type:text;column:last_error" json:"lastError"`
	LockedAt      *time.Time `gorm:"index;column:locked_at" json:"lockedAt"`
	LockedBy      *string    `gorm:"size:100;column:locked_by" json:"lockedBy"`
	ProcessedAt   *time.Time `gorm:"column:processed_at" json:"processedAt"`
	CorrelationID string     `gorm:"size:64;index;column:correlation_id" json:"correlationId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *OutboxTask) IsTerminal() bool {
	switch t.Status {
	case OutboxStatusSucceeded, OutboxStatusDead, OutboxStatusAbandoned, OutboxStatusSuperseded:
		return true
	}
	return false
}
