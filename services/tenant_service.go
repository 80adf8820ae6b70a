package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pg-backend/models"
	"pg-backend/utils"
)

type TenantService struct {
	DB *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{DB: db}
}

// Create inserts the tenant and its outbox tasks in one transaction.
func (s *TenantService) Create(ctx context.Context, t *models.Tenant, tasks ...*models.OutboxTask) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			if t.SubmissionKey != nil && utils.IsDuplicateKeyError(err) {
				return ErrDuplicateSubmission
			}
			return err
		}
		return createTasks(tx, t, tasks)
	})
}

// Update saves every tenant column and queues tasks in one transaction.
// A queued occupancy task replaces the tenant's unfinished ones; see
// supersedeOccupancy.
func (s *TenantService) Update(ctx context.Context, t *models.Tenant, tasks ...*models.OutboxTask) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(t).Select("*").Omit("id", "created_at", "submission_key").Updates(t)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTenantNotFound
		}

		var move *models.OutboxTask
		for _, task := range tasks {
			if task.Kind == models.OutboxKindOccupancy {
				move = task
			}
		}
		var stale []models.OutboxTask
		if move != nil {
			var err error
			if stale, err = supersedeOccupancy(tx, t.ID, move); err != nil {
				return err
			}
		}

		if err := createTasks(tx, t, tasks); err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(stale))
		for _, old := range stale {
			ids = append(ids, old.ID)
		}
		return tx.Model(&models.OutboxTask{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":          models.OutboxStatusSuperseded,
				"last_error":      fmt.Sprintf("superseded by task %d", move.ID),
				"next_attempt_at": nil,
				"locked_at":       nil,
				"locked_by":       nil,
			}).Error
	})
}

// supersedeOccupancy finds the tenant's occupancy tasks that never succeeded.
// None of them reached the property document, so the move's Old becomes the
// Old of the earliest one: the last room the tenant was actually placed in,
// or none when the tenant was never placed.
func supersedeOccupancy(tx *gorm.DB, tenantID uint, move *models.OutboxTask) ([]models.OutboxTask, error) {
	var stale []models.OutboxTask
	err := tx.Where("tenant_id = ? AND kind = ? AND status NOT IN ?", tenantID, models.OutboxKindOccupancy,
		[]string{models.OutboxStatusSucceeded, models.OutboxStatusSuperseded}).
		Order("id ASC").
		Find(&stale).Error
	if err != nil || len(stale) == 0 {
		return nil, err
	}

	var first, req ReconcileRequest
	if err := json.Unmarshal(stale[0].Payload, &first); err != nil {
		return nil, fmt.Errorf("decode occupancy task %d: %w", stale[0].ID, err)
	}
	if err := json.Unmarshal(move.Payload, &req); err != nil {
		return nil, fmt.Errorf("decode occupancy task: %w", err)
	}
	req.Old = first.Old
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	move.Payload = datatypes.JSON(b)
	return stale, nil
}

func createTasks(tx *gorm.DB, t *models.Tenant, tasks []*models.OutboxTask) error {
	for _, task := range tasks {
		task.TenantID = t.ID
		if task.PropertyID == 0 {
			task.PropertyID = t.PropertyID
		}
		if err := tx.Create(task).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *TenantService) GetByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.DB.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *TenantService) FindBySubmissionKey(ctx context.Context, key string) (*models.Tenant, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrTenantNotFound
	}
	var t models.Tenant
	if err := s.DB.WithContext(ctx).Where("submission_key = ?", key).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *TenantService) List(ctx context.Context, filter TenantFilter) ([]models.Tenant, error) {
	q := s.DB.WithContext(ctx).Model(&models.Tenant{})
	if filter.TenantID != 0 {
		q = q.Where("id = ?", filter.TenantID)
	}
	if filter.PropertyID != 0 {
		q = q.Where("property_id = ?", filter.PropertyID)
	}
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var tenants []models.Tenant
	if err := q.Order("id DESC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *TenantService) MarkSynced(ctx context.Context, tenantID uint, ledgerSynced, occupancySynced bool) error {
	return s.DB.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]interface{}{
			"ledger_synced":    ledgerSynced,
			"occupancy_synced": occupancySynced,
		}).Error
}
