package services

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-backend/models"
)

func TestCreatePropertyNormalizesFloorPlan(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPropertyService(db)

	p, err := svc.Create(context.Background(), CreatePropertyInput{
		OwnerID:      1,
		Name:         "  Lakeview  ",
		PropertyType: models.PropertyTypePG,
		Floors: []models.Floor{{FloorNumber: 1, Rooms: []models.Room{
			{RoomNo: " 101 ", SharingOption: models.SharingDouble, NoOfBedsOccupied: 1},
			{RoomNo: "102", NoOfBeds: 4},
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lakeview", p.Name)
	assert.Equal(t, int64(1), p.RowVersion)

	first := loadRoom(t, db, p.ID, 1, "101")
	assert.Equal(t, 2, first.NoOfBeds)
	assert.Equal(t, 1, first.NoOfBedsOccupied)

	second := loadRoom(t, db, p.ID, 1, "102")
	assert.Equal(t, models.SharingOther, second.SharingOption)
	assert.Equal(t, 4, second.NoOfBeds)
}

func TestCreatePropertyRejectsBadFloorPlan(t *testing.T) {
	cases := []struct {
		name   string
		floors []models.Floor
		msg    string
	}{
		{
			name:   "negative floor",
			floors: []models.Floor{{FloorNumber: -1}},
			msg:    "floor number -1 must not be negative",
		},
		{
			name:   "floor twice",
			floors: []models.Floor{{FloorNumber: 1}, {FloorNumber: 1}},
			msg:    "floor 1 is listed twice",
		},
		{
			name:   "room without number",
			floors: []models.Floor{{FloorNumber: 2, Rooms: []models.Room{{RoomNo: " ", SharingOption: models.SharingSingle}}}},
			msg:    "floor 2 has a room without a number",
		},
		{
			name: "room twice",
			floors: []models.Floor{{FloorNumber: 1, Rooms: []models.Room{
				{RoomNo: "1A", SharingOption: models.SharingSingle},
				{RoomNo: "1a", SharingOption: models.SharingSingle},
			}}},
			msg: "room 1a is listed twice on floor 1",
		},
		{
			name:   "unknown sharing option",
			floors: []models.Floor{{FloorNumber: 1, Rooms: []models.Room{{RoomNo: "101", SharingOption: "SIX"}}}},
			msg:    `room 101 has unknown sharing option "SIX"`,
		},
		{
			name:   "more occupied than beds",
			floors: []models.Floor{{FloorNumber: 1, Rooms: []models.Room{{RoomNo: "101", SharingOption: models.SharingSingle, NoOfBedsOccupied: 2}}}},
			msg:    "room 101 has 2 of 1 beds occupied",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			_, err := NewPropertyService(db).Create(context.Background(), CreatePropertyInput{
				OwnerID:      1,
				Name:         "Lakeview",
				PropertyType: models.PropertyTypePG,
				Floors:       tc.floors,
			})
			require.ErrorIs(t, err, ErrInvalidFloorPlan)
			assert.Contains(t, err.Error(), tc.msg)

			var count int64
			require.NoError(t, db.Model(&models.Property{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestCreatePropertyValidatesInput(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewPropertyService(db).Create(context.Background(), CreatePropertyInput{OwnerID: 1, PropertyType: "CASTLE"})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	assert.ElementsMatch(t, []string{"Name", "PropertyType"}, fields)
}

func TestUpdateIfVersionRejectsStaleWriter(t *testing.T) {
	db := setupTestDB(t)
	seeded := twoRoomProperty(t, db)
	svc := NewPropertyService(db)
	ctx := context.Background()

	mine, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	theirs, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	require.NoError(t, theirs.SetFloorList([]models.Floor{{FloorNumber: 1, Rooms: []models.Room{{RoomNo: "Z", SharingOption: models.SharingSingle, NoOfBeds: 1}}}}))
	ok, err := svc.UpdateIfVersion(ctx, theirs, theirs.RowVersion)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), theirs.RowVersion)

	ok, err = svc.UpdateIfVersion(ctx, mine, mine.RowVersion)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), mine.RowVersion)

	loadRoom(t, db, seeded.ID, 1, "Z")
}
