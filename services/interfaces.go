package services

import (
	"context"

	"pg-backend/models"
)

type PropertyFilter struct {
	PropertyType models.PropertyType
	Query        string
}

// PropertyCatalog is the read side of properties. ownerID 0 matches any owner.
type PropertyCatalog interface {
	List(ctx context.Context, ownerID uint, filter PropertyFilter) ([]models.Property, error)
	GetOne(ctx context.Context, ownerID, propertyID uint) (*models.Property, error)
}

// PropertyStore reads and conditionally rewrites whole property documents.
type PropertyStore interface {
	GetByID(ctx context.Context, id uint) (*models.Property, error)
	UpdateIfVersion(ctx context.Context, p *models.Property, expected int64) (bool, error)
}

type TenantFilter struct {
	TenantID   uint
	PropertyID uint
	OwnerID    uint
	Status     models.TenantStatus
}

// TenantRepository writes tenants together with their outbox tasks.
type TenantRepository interface {
	Create(ctx context.Context, t *models.Tenant, tasks ...*models.OutboxTask) error
	Update(ctx context.Context, t *models.Tenant, tasks ...*models.OutboxTask) error
	GetByID(ctx context.Context, id uint) (*models.Tenant, error)
	FindBySubmissionKey(ctx context.Context, key string) (*models.Tenant, error)
	List(ctx context.Context, filter TenantFilter) ([]models.Tenant, error)
	MarkSynced(ctx context.Context, tenantID uint, ledgerSynced, occupancySynced bool) error
}

type TransactionFilter struct {
	TenantID   uint
	PropertyID uint
	Type       models.TransactionType
}

type TransactionLedger interface {
	Create(ctx context.Context, tx *models.Transaction) error
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

// PropertyLocker serializes writers of one property document.
type PropertyLocker interface {
	Lock(ctx context.Context, propertyID uint) (unlock func(), err error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, req ReconcileRequest) error
}
