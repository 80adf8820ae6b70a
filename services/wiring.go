package services

import (
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pg-backend/config"
)

// Stack is every service wired over one database.
type Stack struct {
	Properties   *PropertyService
	Tenants      *TenantService
	Transactions *TransactionService
	Reconciler   *OccupancyReconciler
	Outbox       *OutboxService
	Onboarding   *TenantOnboardingService
}

// NewStack wires the services. A nil lock client disables property locks.
func NewStack(db *gorm.DB, cfg config.Config, lockClient *redislock.Client, logger *logrus.Logger) *Stack {
	props := NewPropertyService(db)
	tenants := NewTenantService(db)
	txs := NewTransactionService(db)

	var locker PropertyLocker
	if lockClient != nil {
		locker = NewRedisPropertyLocker(lockClient)
	}
	reconciler := NewOccupancyReconciler(props, locker, logger)
	outbox := NewOutboxService(db, txs, tenants, reconciler, PolicyFromConfig(cfg), logger)
	onboarding := NewTenantOnboardingService(tenants, props, outbox, cfg.DefaultCurrency, logger)

	return &Stack{
		Properties:   props,
		Tenants:      tenants,
		Transactions: txs,
		Reconciler:   reconciler,
		Outbox:       outbox,
		Onboarding:   onboarding,
	}
}
