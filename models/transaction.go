package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeRent    TransactionType = "RENT"
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusPaid      TransactionStatus = "PAID"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

const (
	SubtypeMonthlyRent     = "MONTHLY_RENT"
	SubtypeSecurityDeposit = "SECURITY_DEPOSIT"
)

// Transaction is one ledger entry. SourceTaskID is set when the entry was
// written by an outbox task, which makes replays of that task harmless.
type Transaction struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Type        TransactionType   `gorm:"size:20;index" json:"type"`
	Subtype     string            `gorm:"size:50" json:"subtype"`
	Amount      decimal.Decimal   `gorm:"type:decimal(12,2)" json:"amount"`
	Currency    string            `gorm:"size:3" json:"currency"`
	Status      TransactionStatus `gorm:"size:20;index" json:"status"`
	TenantID    uint              `gorm:"index;column:tenant_id" json:"tenantId"`
	PropertyID  uint              `gorm:"index;column:property_id" json:"propertyId"`
	Description string            `gorm:"type:text" json:"description"`
	DueDate     *time.Time        `gorm:"column:due_date" json:"dueDate,omitempty"`
	PaidAt      *time.Time        `gorm:"column:paid_at" json:"paidAt,omitempty"`

	SourceTaskID *uint `gorm:"uniqueIndex;column:source_task_id" json:"sourceTaskId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
