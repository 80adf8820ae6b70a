package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pg-backend/config"
	"pg-backend/models"
	"pg-backend/utils"
	"pg-backend/wizard"
)

var fixedNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

var errLedgerDown = errors.New("ledger unavailable")

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestStack(t *testing.T) (*Stack, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	stack := NewStack(db, config.Config{DefaultCurrency: "INR"}, nil, quietLogger())
	stack.Onboarding.Now = func() time.Time { return fixedNow }
	return stack, db
}

func seedProperty(t *testing.T, db *gorm.DB, typ models.PropertyType, floors []models.Floor) *models.Property {
	t.Helper()
	p := &models.Property{OwnerID: 11, Name: "Test " + string(typ), PropertyType: typ, RowVersion: 1}
	if floors != nil {
		require.NoError(t, p.SetFloorList(floors))
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// seedSunrise mirrors a small PG: floor 1 has 101 (single, free),
// floor 2 has 202 (3 beds, 1 taken) and 203 (2 beds, full).
func seedSunrise(t *testing.T, db *gorm.DB) *models.Property {
	return seedProperty(t, db, models.PropertyTypePG, []models.Floor{
		{FloorNumber: 1, Rooms: []models.Room{
			{RoomNo: "101", SharingOption: models.SharingSingle, NoOfBeds: 1},
		}},
		{FloorNumber: 2, Rooms: []models.Room{
			{RoomNo: "202", SharingOption: models.SharingTriple, NoOfBeds: 3, NoOfBedsOccupied: 1},
			{RoomNo: "203", SharingOption: models.SharingDouble, NoOfBeds: 2, NoOfBedsOccupied: 2},
		}},
	})
}

func loadProperty(t *testing.T, db *gorm.DB, id uint) *models.Property {
	t.Helper()
	var p models.Property
	require.NoError(t, db.First(&p, id).Error)
	return &p
}

func loadRoom(t *testing.T, db *gorm.DB, propertyID uint, floor int, roomNo string) models.Room {
	t.Helper()
	floors, err := loadProperty(t, db, propertyID).FloorList()
	require.NoError(t, err)
	room := models.FindRoom(floors, floor, roomNo)
	require.NotNil(t, room, "room %s on floor %d", roomNo, floor)
	return *room
}

func onboardingForm(propertyID uint, floor int, roomNo, roomType string) wizard.Form {
	day := func(y int, m time.Month, d int) *utils.Date {
		return utils.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	return wizard.Form{
		FirstName:     "Asha",
		LastName:      "Rao",
		DateOfBirth:   day(1998, 5, 10),
		Gender:        "FEMALE",
		Mobile:        "+91 98765 43210",
		Email:         "asha.rao@example.com",
		AddressLine1:  "4 Lake Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		Pincode:       "560001",
		PropertyID:    propertyID,
		Floor:         &floor,
		RoomNumber:    roomNo,
		RoomType:      roomType,
		MonthlyRent:   decimal.NewFromInt(8000),
		Deposit:       decimal.NewFromInt(15000),
		PaymentMethod: "UPI",
		RentDueDate:   day(2026, 11, 5),
		LeaseStart:    day(2026, 11, 1),
		LeaseEnd:      day(2027, 10, 31),
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Meena Rao", Relation: "Mother", ContactNumber: "098765 01234"},
		},
		Declaration: true,
	}
}

func finalState(form wizard.Form) wizard.State {
	return wizard.State{Step: wizard.TotalSteps, Mode: wizard.ModeCreate, Values: form}
}

// flakyLedger fails the first Failures writes.
type flakyLedger struct {
	TransactionLedger
	Failures int
	calls    int
}

func (l *flakyLedger) Create(ctx context.Context, tx *models.Transaction) error {
	l.calls++
	if l.calls <= l.Failures {
		return errLedgerDown
	}
	return l.TransactionLedger.Create(ctx, tx)
}

var errReconcileDown = errors.New("property store unavailable")

// flakyReconciler fails the first Failures reconciliations.
type flakyReconciler struct {
	Reconciler
	Failures int
	calls    int
}

func (r *flakyReconciler) Reconcile(ctx context.Context, req ReconcileRequest) error {
	r.calls++
	if r.calls <= r.Failures {
		return errReconcileDown
	}
	return r.Reconciler.Reconcile(ctx, req)
}
