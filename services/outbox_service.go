package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pg-backend/config"
	"pg-backend/models"
)

// LedgerPayload is the transaction an outbox task will write.
type LedgerPayload struct {
	Type        models.TransactionType   `json:"type"`
	Subtype     string                   `json:"subtype"`
	Amount      decimal.Decimal          `json:"amount"`
	Currency    string                   `json:"currency"`
	Status      models.TransactionStatus `json:"status"`
	Description string                   `json:"description"`
	DueDate     *time.Time               `json:"dueDate,omitempty"`
	PaidAt      *time.Time               `json:"paidAt,omitempty"`
}

type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	LockTTL     time.Duration
	BatchSize   int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		BaseBackoff: 5 * time.Second,
		MaxBackoff:  10 * time.Minute,
		LockTTL:     2 * time.Minute,
		BatchSize:   50,
	}
}

func PolicyFromConfig(cfg config.Config) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.OutboxMaxAttempts > 0 {
		p.MaxAttempts = cfg.OutboxMaxAttempts
	}
	if cfg.OutboxBaseBackoff > 0 {
		p.BaseBackoff = cfg.OutboxBaseBackoff
	}
	if cfg.OutboxMaxBackoff > 0 {
		p.MaxBackoff = cfg.OutboxMaxBackoff
	}
	if cfg.OutboxLockTTL > 0 {
		p.LockTTL = cfg.OutboxLockTTL
	}
	if cfg.OutboxBatchSize > 0 {
		p.BatchSize = cfg.OutboxBatchSize
	}
	return p
}

// Backoff is base * 2^(attempt-1), capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.BaseBackoff
	}
	delay := time.Duration(float64(p.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > p.MaxBackoff || delay <= 0 {
		return p.MaxBackoff
	}
	return delay
}

type OutboxFilter struct {
	Status   string
	TenantID uint
	Kind     models.OutboxTaskKind
}

// OutboxService runs ledger and occupancy tasks and keeps retrying the ones
// that fail until they succeed, die or are abandoned.
type OutboxService struct {
	DB         *gorm.DB
	Ledger     TransactionLedger
	Tenants    TenantRepository
	Reconciler Reconciler
	Policy     RetryPolicy
	WorkerID   string
	Logger     *logrus.Logger
	Now        func() time.Time
}

func NewOutboxService(db *gorm.DB, ledger TransactionLedger, tenants TenantRepository, reconciler Reconciler, policy RetryPolicy, logger *logrus.Logger) *OutboxService {
	return &OutboxService{
		DB:         db,
		Ledger:     ledger,
		Tenants:    tenants,
		Reconciler: reconciler,
		Policy:     policy,
		WorkerID:   "outbox-" + uuid.NewString()[:8],
		Logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewLedgerTask builds an unsaved ledger task.
func NewLedgerTask(kind models.OutboxTaskKind, seq int, payload LedgerPayload, correlationID string) (*models.OutboxTask, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &models.OutboxTask{
		Kind:          kind,
		Sequence:      seq,
		Payload:       datatypes.JSON(b),
		Status:        models.OutboxStatusPending,
		CorrelationID: correlationID,
	}, nil
}

// NewOccupancyTask builds an unsaved reconciliation task.
func NewOccupancyTask(seq int, req ReconcileRequest, correlationID string) (*models.OutboxTask, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return &models.OutboxTask{
		Kind:          models.OutboxKindOccupancy,
		Sequence:      seq,
		PropertyID:    req.New.PropertyID,
		Payload:       datatypes.JSON(b),
		Status:        models.OutboxStatusPending,
		CorrelationID: correlationID,
	}, nil
}

func (s *OutboxService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *OutboxService) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return config.GetLogger()
}

// Execute claims the task, runs it and records the outcome. The returned
// error is the task's own failure, if any.
func (s *OutboxService) Execute(ctx context.Context, task *models.OutboxTask) error {
	claimed, err := s.claim(ctx, task.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrTaskBusy
	}
	if err := s.DB.WithContext(ctx).First(task, task.ID).Error; err != nil {
		return err
	}

	runErr := s.run(ctx, task)
	if err := s.record(ctx, task, runErr); err != nil {
		config.LogError(s.logger(), "OutboxService", "Execute", "failed to record task outcome", task.ID, err)
	}
	if err := s.syncTenant(ctx, task.TenantID); err != nil {
		config.LogError(s.logger(), "OutboxService", "Execute", "failed to update tenant sync flags", task.TenantID, err)
	}
	return runErr
}

// claim moves a runnable task to PROCESSING. A PROCESSING task whose lock is
// older than LockTTL belonged to a worker that died and may be taken over.
func (s *OutboxService) claim(ctx context.Context, id uint) (bool, error) {
	now := s.now()
	staleBefore := now.Add(-s.Policy.LockTTL)
	res := s.DB.WithContext(ctx).
		Model(&models.OutboxTask{}).
		Where("id = ?", id).
		Where("((status IN ?) OR (status = ? AND locked_at <= ?))",
			[]string{models.OutboxStatusPending, models.OutboxStatusFailed},
			models.OutboxStatusProcessing, staleBefore).
		Updates(map[string]interface{}{
			"status":    models.OutboxStatusProcessing,
			"locked_at": now,
			"locked_by": s.WorkerID,
			"attempts":  gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if current.IsTerminal() {
		return false, ErrTaskAlreadyDone
	}
	return false, nil
}

func (s *OutboxService) run(ctx context.Context, task *models.OutboxTask) error {
	switch {
	case task.Kind.IsLedger():
		var p LedgerPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return permanent(fmt.Errorf("decode ledger payload: %w", err))
		}
		taskID := task.ID
		return s.Ledger.Create(ctx, &models.Transaction{
			Type:         p.Type,
			Subtype:      p.Subtype,
			Amount:       p.Amount,
			Currency:     p.Currency,
			Status:       p.Status,
			TenantID:     task.TenantID,
			PropertyID:   task.PropertyID,
			Description:  p.Description,
			DueDate:      p.DueDate,
			PaidAt:       p.PaidAt,
			SourceTaskID: &taskID,
		})
	case task.Kind == models.OutboxKindOccupancy:
		var req ReconcileRequest
		if err := json.Unmarshal(task.Payload, &req); err != nil {
			return permanent(fmt.Errorf("decode occupancy payload: %w", err))
		}
		if req.TenantID == 0 {
			req.TenantID = task.TenantID
		}
		return s.Reconciler.Reconcile(ctx, req)
	}
	return permanent(fmt.Errorf("unknown outbox task kind %q", task.Kind))
}

func (s *OutboxService) record(ctx context.Context, task *models.OutboxTask, runErr error) error {
	now := s.now()
	updates := map[string]interface{}{
		"locked_at": nil,
		"locked_by": nil,
	}

	if runErr == nil {
		updates["status"] = models.OutboxStatusSucceeded
		updates["processed_at"] = now
		updates["last_error"] = nil
		updates["next_attempt_at"] = nil
	} else {
		msg := runErr.Error()
		updates["last_error"] = msg
		if isPermanent(runErr) || task.Attempts >= s.Policy.MaxAttempts {
			updates["status"] = models.OutboxStatusDead
			updates["next_attempt_at"] = nil
		} else {
			updates["status"] = models.OutboxStatusFailed
			updates["next_attempt_at"] = now.Add(s.Policy.Backoff(task.Attempts))
		}
		s.logger().WithFields(logrus.Fields{
			"module":        "OutboxService",
			"taskId":        task.ID,
			"kind":          task.Kind,
			"tenantId":      task.TenantID,
			"attempts":      task.Attempts,
			"status":        updates["status"],
			"correlationId": task.CorrelationID,
		}).Warn("outbox task failed: " + msg)
	}

	// A task superseded while it ran keeps its SUPERSEDED status.
	if err := s.DB.WithContext(ctx).Model(&models.OutboxTask{}).
		Where("id = ? AND status = ?", task.ID, models.OutboxStatusProcessing).
		Updates(updates).Error; err != nil {
		return err
	}
	return s.DB.WithContext(ctx).First(task, task.ID).Error
}

// syncTenant recomputes ledgerSynced and occupancySynced from the tenant's
// tasks: a flag is true when every task of that family has succeeded or was
// superseded.
func (s *OutboxService) syncTenant(ctx context.Context, tenantID uint) error {
	if tenantID == 0 || s.Tenants == nil {
		return nil
	}
	var open []models.OutboxTask
	if err := s.DB.WithContext(ctx).
		Select("id, kind, status").
		Where("tenant_id = ? AND status NOT IN ?", tenantID,
			[]string{models.OutboxStatusSucceeded, models.OutboxStatusSuperseded}).
		Find(&open).Error; err != nil {
		return err
	}
	ledgerSynced, occupancySynced := true, true
	for _, t := range open {
		if t.Kind.IsLedger() {
			ledgerSynced = false
		} else {
			occupancySynced = false
		}
	}
	return s.Tenants.MarkSynced(ctx, tenantID, ledgerSynced, occupancySynced)
}

// ProcessDue runs every task whose retry time has come, oldest tenant first
// and in sequence order within a tenant. It returns how many tasks ran.
func (s *OutboxService) ProcessDue(ctx context.Context) (int, error) {
	now := s.now()
	staleBefore := now.Add(-s.Policy.LockTTL)

	var due []models.OutboxTask
	err := s.DB.WithContext(ctx).
		Where("(status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)) OR (status = ? AND locked_at <= ?)",
			[]string{models.OutboxStatusPending, models.OutboxStatusFailed}, now,
			models.OutboxStatusProcessing, staleBefore).
		Order("tenant_id ASC, sequence ASC, id ASC").
		Limit(s.Policy.BatchSize).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	ran := 0
	for i := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		task := due[i]
		err := s.Execute(ctx, &task)
		if errors.Is(err, ErrTaskBusy) || errors.Is(err, ErrTaskAlreadyDone) {
			continue
		}
		ran++
	}
	if ran > 0 {
		s.logger().WithFields(logrus.Fields{"module": "OutboxService", "worker": s.WorkerID, "ran": ran}).Info("processed due outbox tasks")
	}
	return ran, nil
}

func (s *OutboxService) Get(ctx context.Context, id uint) (*models.OutboxTask, error) {
	var task models.OutboxTask
	if err := s.DB.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *OutboxService) List(ctx context.Context, filter OutboxFilter) ([]models.OutboxTask, error) {
	q := s.DB.WithContext(ctx).Model(&models.OutboxTask{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TenantID != 0 {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	var tasks []models.OutboxTask
	if err := q.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Retry makes a failed, dead or abandoned task due now with a fresh
// attempt budget.
func (s *OutboxService) Retry(ctx context.Context, id uint) (*models.OutboxTask, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch task.Status {
	case models.OutboxStatusFailed, models.OutboxStatusDead, models.OutboxStatusAbandoned:
	default:
		return task, ErrTaskNotRetryable
	}

	now := s.now()
	if err := s.DB.WithContext(ctx).Model(&models.OutboxTask{}).
		Where("id = ? AND status = ?", id, task.Status).
		Updates(map[string]interface{}{
			"status":          models.OutboxStatusPending,
			"attempts":        0,
			"next_attempt_at": now,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Abandon gives up on a task. The tenant's sync flag for that family stays
// false so the gap remains visible.
func (s *OutboxService) Abandon(ctx context.Context, id uint, reason string) (*models.OutboxTask, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch task.Status {
	case models.OutboxStatusSucceeded, models.OutboxStatusAbandoned, models.OutboxStatusSuperseded:
		return task, ErrTaskAlreadyDone
	}
	if task.Status == models.OutboxStatusProcessing && task.LockedAt != nil && task.LockedAt.After(s.now().Add(-s.Policy.LockTTL)) {
		return task, ErrTaskBusy
	}

	msg := "abandoned"
	if reason != "" {
		msg = "abandoned: " + reason
	}
	if err := s.DB.WithContext(ctx).Model(&models.OutboxTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.OutboxStatusAbandoned,
			"last_error":      msg,
			"next_attempt_at": nil,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error; err != nil {
		return nil, err
	}
	if err := s.syncTenant(ctx, task.TenantID); err != nil {
		config.LogError(s.logger(), "OutboxService", "Abandon", "failed to update tenant sync flags", task.TenantID, err)
	}
	return s.Get(ctx, id)
}
