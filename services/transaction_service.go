package services

import (
	"context"

	"gorm.io/gorm"

	"pg-backend/models"
)

type TransactionService struct {
	DB *gorm.DB
}

func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{DB: db}
}

// Create writes one ledger entry. Entries carrying a SourceTaskID are written
// at most once per task; a replay leaves the stored row in tx.
func (s *TransactionService) Create(ctx context.Context, tx *models.Transaction) error {
	db := s.DB.WithContext(ctx)
	if tx.SourceTaskID == nil {
		return db.Create(tx).Error
	}
	return db.Where("source_task_id = ?", *tx.SourceTaskID).FirstOrCreate(tx).Error
}

func (s *TransactionService) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	q := s.DB.WithContext(ctx).Model(&models.Transaction{})
	if filter.TenantID != 0 {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.PropertyID != 0 {
		q = q.Where("property_id = ?", filter.PropertyID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var txs []models.Transaction
	if err := q.Order("id ASC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
