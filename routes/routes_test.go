package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pg-backend/config"
	"pg-backend/controllers"
	"pg-backend/models"
	"pg-backend/services"
	"pg-backend/utils"
	"pg-backend/wizard"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details []string        `json:"details"`
}

func setupRouter(t *testing.T) (*gin.Engine, *models.Property) {
	t.Helper()
	r, p, _ := setupRouterStack(t)
	return r, p
}

func setupRouterStack(t *testing.T) (*gin.Engine, *models.Property, *services.Stack) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	p := &models.Property{OwnerID: 1, Name: "Sunrise PG", PropertyType: models.PropertyTypePG, RowVersion: 1}
	require.NoError(t, p.SetFloorList([]models.Floor{
		{FloorNumber: 2, Rooms: []models.Room{
			{RoomNo: "202", SharingOption: models.SharingTriple, NoOfBeds: 3, NoOfBedsOccupied: 1},
			{RoomNo: "203", SharingOption: models.SharingDouble, NoOfBeds: 2, NoOfBedsOccupied: 2},
		}},
	}))
	require.NoError(t, db.Create(p).Error)

	log := logrus.New()
	log.SetOutput(io.Discard)
	stack := services.NewStack(db, config.Config{DefaultCurrency: "INR"}, nil, log)
	stack.Onboarding.Now = func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) }

	r := SetupRouter(Controllers{
		Onboarding:   controllers.NewOnboardingController(stack.Onboarding),
		Properties:   controllers.NewPropertyController(stack.Properties, stack.Tenants),
		Tenants:      controllers.NewTenantController(stack.Tenants, stack.Onboarding),
		Transactions: controllers.NewTransactionController(stack.Transactions),
		Outbox:       controllers.NewOutboxController(stack.Outbox),
	}, []string{"*"}, log)
	return r, p, stack
}

func submitBody(t *testing.T, propertyID uint, roomNo string, step int) []byte {
	t.Helper()
	day := func(y int, m time.Month, d int) *utils.Date {
		return utils.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	floor := 2
	form := wizard.Form{
		FirstName:    "Asha",
		LastName:     "Rao",
		DateOfBirth:  day(1998, 5, 10),
		Gender:       "FEMALE",
		Mobile:       "9876543210",
		Email:        "asha.rao@example.com",
		AddressLine1: "4 Lake Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		Pincode:      "560001",
		PropertyID:   propertyID,
		Floor:        &floor,
		RoomNumber:   roomNo,
		RoomType:     "TRIPLE",
		MonthlyRent:  decimal.NewFromInt(8000),
		Deposit:      decimal.NewFromInt(15000),
		RentDueDate:  day(2026, 11, 5),
		LeaseStart:   day(2026, 11, 1),
		LeaseEnd:     day(2027, 10, 31),
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Meena Rao", Relation: "Mother", ContactNumber: "9876501234"},
		},
		Declaration: true,
	}
	b, err := json.Marshal(gin.H{"state": wizard.State{Step: step, Mode: wizard.ModeCreate, Values: form}})
	require.NoError(t, err)
	return b
}

func do(r *gin.Engine, method, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestSubmitCreatesTenant(t *testing.T) {
	r, p := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/onboarding/submit", submitBody(t, p.ID, "202", wizard.TotalSteps), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var data struct {
		Tenant      models.Tenant         `json:"tenant"`
		SideEffects []services.SideEffect `json:"sideEffects"`
		Failed      []services.SideEffect `json:"failed"`
		Replayed    bool                  `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotZero(t, data.Tenant.ID)
	assert.Len(t, data.SideEffects, 3)
	assert.Empty(t, data.Failed)
	assert.False(t, data.Replayed)
	assert.True(t, data.Tenant.OccupancySynced)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSubmitWithIdempotencyKeyReplays(t *testing.T) {
	r, p := setupRouter(t)
	headers := map[string]string{"Idempotency-Key": "wizard-1"}
	body := submitBody(t, p.ID, "202", wizard.TotalSteps)

	w, _ := do(r, http.MethodPost, "/api/onboarding/submit", body, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := do(r, http.MethodPost, "/api/onboarding/submit", body, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Replayed bool `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Replayed)

	w, env = do(r, http.MethodGet, "/api/tenants", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tenants []models.Tenant
	require.NoError(t, json.Unmarshal(env.Data, &tenants))
	assert.Len(t, tenants, 1)
}

func TestSubmitFullRoomIsUnprocessable(t *testing.T) {
	r, p := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/onboarding/submit", submitBody(t, p.ID, "203", wizard.TotalSteps), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.False(t, env.Success)
	assert.Equal(t, "validation failed", env.Error)
	assert.Contains(t, env.Details, "Step 4: Room 203 on floor 2 is fully occupied")
}

func TestSubmitBeforeFinalStep(t *testing.T) {
	r, p := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/onboarding/submit", submitBody(t, p.ID, "202", 3), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, wizard.ErrNotFinalStep.Error(), env.Error)
}

func TestNextReportsStepErrors(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/onboarding/next", []byte(`{"state":{"step":1}}`), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		State    wizard.State `json:"state"`
		Advanced bool         `json:"advanced"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Advanced)
	assert.Equal(t, 1, data.State.Step)
	assert.Contains(t, data.State.Errors, "First name is required")
}

func TestAvailabilityListsRooms(t *testing.T) {
	r, p := setupRouter(t)

	w, env := do(r, http.MethodGet, "/api/properties/"+jsonNumber(p.ID)+"/availability", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ix struct {
		Floors []struct {
			FloorNumber int `json:"floorNumber"`
			Rooms       []struct {
				RoomNo     string `json:"roomNo"`
				Selectable bool   `json:"selectable"`
			} `json:"rooms"`
		} `json:"floors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ix))
	require.Len(t, ix.Floors, 1)
	require.Len(t, ix.Floors[0].Rooms, 2)
	assert.True(t, ix.Floors[0].Rooms[0].Selectable)
	assert.False(t, ix.Floors[0].Rooms[1].Selectable)
}

func TestUnknownPropertyIsNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	w, _ := do(r, http.MethodGet, "/api/properties/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNextStopsOnMissingProperty(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := do(r, http.MethodPost, "/api/onboarding/next", submitBody(t, 999, "202", 4), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		State    wizard.State `json:"state"`
		Advanced bool         `json:"advanced"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Advanced)
	assert.Equal(t, 4, data.State.Step)
	assert.Equal(t, []string{"Property 999 was not found"}, data.State.Errors)
}

func TestCreatePropertyChecksFloorPlan(t *testing.T) {
	r, _ := setupRouter(t)

	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{
			name:   "over occupied room",
			body:   `{"ownerId":1,"name":"Lakeview","propertyType":"PG","floors":[{"floorNumber":1,"rooms":[{"roomNo":"101","sharingOption":"DOUBLE","noOfBedsOccupied":3}]}]}`,
			detail: "room 101 has 3 of 2 beds occupied",
		},
		{
			name:   "duplicate room",
			body:   `{"ownerId":1,"name":"Lakeview","propertyType":"PG","floors":[{"floorNumber":1,"rooms":[{"roomNo":"101","sharingOption":"SINGLE"},{"roomNo":" 101 ","sharingOption":"SINGLE"}]}]}`,
			detail: "room 101 is listed twice on floor 1",
		},
		{
			name:   "room without beds",
			body:   `{"ownerId":1,"name":"Lakeview","propertyType":"PG","floors":[{"floorNumber":1,"rooms":[{"roomNo":"101"}]}]}`,
			detail: "room 101 needs at least one bed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(r, http.MethodPost, "/api/properties", []byte(tc.body), nil)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.Contains(t, env.Error, tc.detail)
		})
	}

	w, env := do(r, http.MethodPost, "/api/properties", []byte(`{"ownerId":1,"propertyType":"PG"}`), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "validation failed", env.Error)
	assert.Contains(t, env.Details, "Name: failed 'required' validation")
}

func TestCreatePropertyFillsBedCounts(t *testing.T) {
	r, _ := setupRouter(t)

	body := `{"ownerId":1,"name":"Lakeview","propertyType":"PG","floors":[{"floorNumber":1,"rooms":[{"roomNo":"101","sharingOption":"TRIPLE","noOfBedsOccupied":1}]}]}`
	w, env := do(r, http.MethodPost, "/api/properties", []byte(body), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p models.Property
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(1), p.RowVersion)
	floors, err := p.FloorList()
	require.NoError(t, err)
	room := models.FindRoom(floors, 1, "101")
	require.NotNil(t, room)
	assert.Equal(t, 3, room.NoOfBeds)
	assert.Equal(t, 1, room.NoOfBedsOccupied)
}

var errLedgerDown = errors.New("ledger unavailable")

type downLedger struct {
	services.TransactionLedger
}

func (downLedger) Create(context.Context, *models.Transaction) error {
	return errLedgerDown
}

func TestOutboxRetryAndAbandon(t *testing.T) {
	r, p, stack := setupRouterStack(t)
	healthy := stack.Outbox.Ledger
	stack.Outbox.Ledger = downLedger{TransactionLedger: healthy}

	w, env := do(r, http.MethodPost, "/api/onboarding/submit", submitBody(t, p.ID, "202", wizard.TotalSteps), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Tenant models.Tenant         `json:"tenant"`
		Failed []services.SideEffect `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Failed, 2)

	w, env = do(r, http.MethodGet, "/api/outbox?status=failed&tenantId="+jsonNumber(created.Tenant.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var failed []models.OutboxTask
	require.NoError(t, json.Unmarshal(env.Data, &failed))
	require.Len(t, failed, 2)
	rent, deposit := failed[0], failed[1]
	assert.Equal(t, models.OutboxKindLedgerRent, rent.Kind)
	assert.Equal(t, models.OutboxKindLedgerDeposit, deposit.Kind)

	stack.Outbox.Ledger = healthy
	w, env = do(r, http.MethodPost, "/api/outbox/"+jsonNumber(rent.ID)+"/retry", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var retried struct {
		Task  models.OutboxTask `json:"task"`
		Error string            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &retried))
	assert.Equal(t, models.OutboxStatusSucceeded, retried.Task.Status)
	assert.Empty(t, retried.Error)

	w, env = do(r, http.MethodPost, "/api/outbox/"+jsonNumber(deposit.ID)+"/abandon", []byte(`{"reason":"paid in cash"}`), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var abandoned models.OutboxTask
	require.NoError(t, json.Unmarshal(env.Data, &abandoned))
	assert.Equal(t, models.OutboxStatusAbandoned, abandoned.Status)

	w, _ = do(r, http.MethodPost, "/api/outbox/"+jsonNumber(rent.ID)+"/abandon", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = do(r, http.MethodPost, "/api/outbox/"+jsonNumber(rent.ID)+"/retry", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = do(r, http.MethodPost, "/api/outbox/999/retry", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(r, http.MethodPost, "/api/outbox/abc/abandon", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
