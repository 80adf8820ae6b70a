package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pg-backend/availability"
	"pg-backend/config"
	"pg-backend/models"
	"pg-backend/utils"
	"pg-backend/wizard"
)

// TaskExecutor runs a persisted outbox task once.
type TaskExecutor interface {
	Execute(ctx context.Context, task *models.OutboxTask) error
}

// SideEffect is the outcome of one follow-up step of a tenant write.
type SideEffect struct {
	TaskID uint                  `json:"taskId"`
	Kind   models.OutboxTaskKind `json:"kind"`
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
}

type OnboardingResult struct {
	Tenant      *models.Tenant `json:"tenant"`
	SideEffects []SideEffect   `json:"sideEffects"`
	// Replayed is set when an earlier submission with the same key is returned.
	Replayed bool `json:"replayed"`
}

// Failed lists the side effects that did not succeed.
func (r *OnboardingResult) Failed() []SideEffect {
	var out []SideEffect
	for _, se := range r.SideEffects {
		if se.Status != models.OutboxStatusSucceeded {
			out = append(out, se)
		}
	}
	return out
}

// TenantOnboardingService turns a submitted wizard into a tenant record,
// its ledger entries and its bed assignment, in that order. Only the tenant
// write can fail the submission.
type TenantOnboardingService struct {
	Tenants    TenantRepository
	Properties PropertyCatalog
	Outbox     TaskExecutor
	Tasks      *OutboxService
	Currency   string
	Logger     *logrus.Logger
	Now        func() time.Time
}

func NewTenantOnboardingService(tenants TenantRepository, properties PropertyCatalog, outbox *OutboxService, currency string, logger *logrus.Logger) *TenantOnboardingService {
	if currency == "" {
		currency = "INR"
	}
	return &TenantOnboardingService{
		Tenants:    tenants,
		Properties: properties,
		Outbox:     outbox,
		Tasks:      outbox,
		Currency:   currency,
		Logger:     logger,
		Now:        time.Now,
	}
}

func (s *TenantOnboardingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TenantOnboardingService) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return config.GetLogger()
}

// Env loads what the wizard validators need for st. A missing property is
// not an error here; it is flagged on the env and step 4 reports it.
func (s *TenantOnboardingService) Env(ctx context.Context, st wizard.State) (wizard.Env, error) {
	env := wizard.Env{Now: s.now}
	if st.Values.PropertyID == 0 {
		return env, nil
	}
	p, err := s.Properties.GetOne(ctx, 0, st.Values.PropertyID)
	if errors.Is(err, ErrPropertyNotFound) {
		env.PropertyMissing = true
		return env, nil
	}
	if err != nil {
		return env, err
	}
	var current *models.RoomRef
	if st.Mode == wizard.ModeEdit {
		current = st.Original
	}
	ix, err := availability.Build(p, current)
	if err != nil {
		return env, err
	}
	env.Index = ix
	return env, nil
}

// PrepareEdit pins an edit-mode state to the stored tenant's current room.
func (s *TenantOnboardingService) PrepareEdit(ctx context.Context, tenantID uint, st wizard.State) (wizard.State, *models.Tenant, error) {
	t, err := s.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return st, nil, err
	}
	room := t.Room()
	st.Mode = wizard.ModeEdit
	st.Original = &room
	return st, t, nil
}

// SubmitCreate validates the final wizard state and creates the tenant.
// A submission key that was already used returns the earlier result.
func (s *TenantOnboardingService) SubmitCreate(ctx context.Context, st wizard.State, submissionKey string) (*OnboardingResult, wizard.State, error) {
	st.Mode = wizard.ModeCreate
	st.Original = nil
	if key := strings.TrimSpace(submissionKey); key != "" {
		if res, ok := s.replay(ctx, key); ok {
			return res, st, nil
		}
	}
	validated, err := s.validate(ctx, st)
	if err != nil {
		return nil, validated, err
	}
	res, err := s.Create(ctx, validated.Values, submissionKey)
	return res, validated, err
}

// SubmitEdit validates the final wizard state and updates the tenant.
func (s *TenantOnboardingService) SubmitEdit(ctx context.Context, tenantID uint, st wizard.State) (*OnboardingResult, wizard.State, error) {
	st, _, err := s.PrepareEdit(ctx, tenantID, st)
	if err != nil {
		return nil, st, err
	}
	validated, err := s.validate(ctx, st)
	if err != nil {
		return nil, validated, err
	}
	res, err := s.Update(ctx, tenantID, validated.Values)
	return res, validated, err
}

func (s *TenantOnboardingService) validate(ctx context.Context, st wizard.State) (wizard.State, error) {
	env, err := s.Env(ctx, st)
	if err != nil {
		return st, err
	}
	return st.Submit(env)
}

// Create persists a new tenant with its follow-up tasks, then runs the tasks
// in order: rent entry, deposit entry when deposit > 0, bed assignment.
func (s *TenantOnboardingService) Create(ctx context.Context, form wizard.Form, submissionKey string) (*OnboardingResult, error) {
	submissionKey = strings.TrimSpace(submissionKey)
	if submissionKey != "" {
		if res, ok := s.replay(ctx, submissionKey); ok {
			return res, nil
		}
	}

	tenant := &models.Tenant{Status: models.TenantStatusPending}
	form.ApplyTo(tenant, s.now())
	normalizeContacts(tenant)
	if submissionKey != "" {
		tenant.SubmissionKey = &submissionKey
	}
	if p, err := s.Properties.GetOne(ctx, 0, tenant.PropertyID); err == nil {
		tenant.OwnerID = p.OwnerID
	}

	tasks, err := s.createTasks(tenant)
	if err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	if err := s.Tenants.Create(ctx, tenant, tasks...); err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			if res, ok := s.replay(ctx, submissionKey); ok {
				return res, nil
			}
		}
		config.LogError(s.logger(), "TenantOnboardingService", "Create", "tenant create failed", tenant.FullName(), err)
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	s.logger().WithFields(logrus.Fields{
		"module":     "TenantOnboardingService",
		"tenantId":   tenant.ID,
		"propertyId": tenant.PropertyID,
		"room":       tenant.RoomNumber,
	}).Info("tenant created")

	return s.finish(ctx, tenant, tasks), nil
}

// Update saves an edited tenant. A changed room queues a move; ledger
// entries are never regenerated.
func (s *TenantOnboardingService) Update(ctx context.Context, tenantID uint, form wizard.Form) (*OnboardingResult, error) {
	tenant, err := s.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	oldRoom := tenant.Room()
	form.ApplyTo(tenant, s.now())
	normalizeContacts(tenant)
	newRoom := tenant.Room()

	var tasks []*models.OutboxTask
	if !oldRoom.Same(newRoom) {
		task, err := NewOccupancyTask(1, ReconcileRequest{
			TenantID:   tenant.ID,
			TenantName: tenant.FullName(),
			New:        newRoom,
			Old:        &oldRoom,
		}, uuid.NewString())
		if err != nil {
			return nil, &PersistenceError{Op: "update", Err: err}
		}
		s.delayWorker(task)
		tasks = append(tasks, task)
		tenant.OccupancySynced = false
	}

	if err := s.Tenants.Update(ctx, tenant, tasks...); err != nil {
		config.LogError(s.logger(), "TenantOnboardingService", "Update", "tenant update failed", tenantID, err)
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	return s.finish(ctx, tenant, tasks), nil
}

func (s *TenantOnboardingService) createTasks(t *models.Tenant) ([]*models.OutboxTask, error) {
	correlationID := uuid.NewString()
	name := t.FullName()

	rent, err := NewLedgerTask(models.OutboxKindLedgerRent, 1, LedgerPayload{
		Type:        models.TransactionTypeRent,
		Subtype:     models.SubtypeMonthlyRent,
		Amount:      t.MonthlyRent,
		Currency:    s.Currency,
		Status:      models.TransactionStatusPending,
		Description: "Monthly rent for " + name,
		DueDate:     t.RentDueDate,
	}, correlationID)
	if err != nil {
		return nil, err
	}
	tasks := []*models.OutboxTask{rent}

	if t.Deposit.IsPositive() {
		paidAt := s.now()
		deposit, err := NewLedgerTask(models.OutboxKindLedgerDeposit, 2, LedgerPayload{
			Type:        models.TransactionTypeIncome,
			Subtype:     models.SubtypeSecurityDeposit,
			Amount:      t.Deposit,
			Currency:    s.Currency,
			Status:      models.TransactionStatusPaid,
			Description: "Security deposit from " + name,
			PaidAt:      &paidAt,
		}, correlationID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, deposit)
	}

	occupancy, err := NewOccupancyTask(3, ReconcileRequest{
		TenantName: name,
		New:        t.Room(),
	}, correlationID)
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, occupancy)

	for _, task := range tasks {
		s.delayWorker(task)
	}
	return tasks, nil
}

// delayWorker keeps the background worker away from a task until it has had
// its inline run; a crash before that leaves it for the worker.
func (s *TenantOnboardingService) delayWorker(task *models.OutboxTask) {
	lockTTL := DefaultRetryPolicy().LockTTL
	if s.Tasks != nil && s.Tasks.Policy.LockTTL > 0 {
		lockTTL = s.Tasks.Policy.LockTTL
	}
	at := time.Now().UTC().Add(lockTTL)
	task.NextAttemptAt = &at
}

func (s *TenantOnboardingService) finish(ctx context.Context, tenant *models.Tenant, tasks []*models.OutboxTask) *OnboardingResult {
	res := &OnboardingResult{Tenant: tenant, SideEffects: make([]SideEffect, 0, len(tasks))}
	for _, task := range tasks {
		se := SideEffect{TaskID: task.ID, Kind: task.Kind}
		if err := s.Outbox.Execute(ctx, task); err != nil {
			se.Error = err.Error()
			config.LogError(s.logger(), "TenantOnboardingService", "finish", "side effect failed", logrus.Fields{
				"tenantId": tenant.ID,
				"taskId":   task.ID,
				"kind":     task.Kind,
			}, err)
		}
		se.Status = task.Status
		res.SideEffects = append(res.SideEffects, se)
	}

	if fresh, err := s.Tenants.GetByID(ctx, tenant.ID); err == nil {
		res.Tenant = fresh
	}
	return res
}

func (s *TenantOnboardingService) replay(ctx context.Context, key string) (*OnboardingResult, bool) {
	t, err := s.Tenants.FindBySubmissionKey(ctx, key)
	if err != nil {
		return nil, false
	}
	res := &OnboardingResult{Tenant: t, Replayed: true, SideEffects: []SideEffect{}}
	if s.Tasks != nil {
		if tasks, err := s.Tasks.List(ctx, OutboxFilter{TenantID: t.ID}); err == nil {
			for _, task := range tasks {
				se := SideEffect{TaskID: task.ID, Kind: task.Kind, Status: task.Status}
				if task.LastError != nil {
					se.Error = *task.LastError
				}
				res.SideEffects = append(res.SideEffects, se)
			}
		}
	}
	return res, true
}

func normalizeContacts(t *models.Tenant) {
	t.Mobile = utils.NormalizePhone(t.Mobile)
	contacts := t.ContactList()
	for i := range contacts {
		contacts[i].ContactNumber = utils.NormalizePhone(contacts[i].ContactNumber)
	}
	t.SetContactList(contacts)
}
