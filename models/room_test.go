package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomAssignTracksOccupants(t *testing.T) {
	r := Room{RoomNo: "202", NoOfBeds: 2}

	require.NoError(t, r.Assign(RoomOccupant{TenantID: 1, TenantName: "Asha"}))
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 2, TenantName: "Ravi"}))

	assert.Equal(t, 2, r.NoOfBedsOccupied)
	assert.Len(t, r.Occupants, 2)
	require.NotNil(t, r.OccupiedBy)
	assert.Equal(t, uint(2), r.OccupiedBy.TenantID)
	assert.True(t, r.IsFull())
}

func TestRoomAssignRejectsFullRoom(t *testing.T) {
	r := Room{RoomNo: "101", NoOfBeds: 1, NoOfBedsOccupied: 1}

	err := r.Assign(RoomOccupant{TenantID: 9})

	assert.ErrorIs(t, err, ErrRoomAtCapacity)
	assert.Equal(t, 1, r.NoOfBedsOccupied)
	assert.Nil(t, r.OccupiedBy)
}

func TestRoomAssignSameTenantTwiceIsNoop(t *testing.T) {
	r := Room{RoomNo: "101", NoOfBeds: 1}

	require.NoError(t, r.Assign(RoomOccupant{TenantID: 5}))
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 5}))

	assert.Equal(t, 1, r.NoOfBedsOccupied)
	assert.Len(t, r.Occupants, 1)
}

func TestRoomVacateRepointsOccupiedBy(t *testing.T) {
	r := Room{RoomNo: "301", NoOfBeds: 3}
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 1}))
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 2}))

	r.Vacate(2)

	assert.Equal(t, 1, r.NoOfBedsOccupied)
	require.NotNil(t, r.OccupiedBy)
	assert.Equal(t, uint(1), r.OccupiedBy.TenantID)

	r.Vacate(1)

	assert.Equal(t, 0, r.NoOfBedsOccupied)
	assert.Nil(t, r.OccupiedBy)
	assert.Empty(t, r.Occupants)
}

func TestRoomVacateKeepsOtherOccupiedBy(t *testing.T) {
	r := Room{RoomNo: "301", NoOfBeds: 3}
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 1}))
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 2}))

	r.Vacate(1)

	assert.Equal(t, 1, r.NoOfBedsOccupied)
	assert.Equal(t, uint(2), r.OccupiedBy.TenantID)
}

func TestRoomVacateLeavesUnlistedBeds(t *testing.T) {
	// two beds counted before occupants were tracked
	r := Room{RoomNo: "401", NoOfBeds: 3, NoOfBedsOccupied: 2, OccupiedBy: &RoomOccupant{TenantID: 7}}

	r.Vacate(42)
	r.Vacate(42)
	assert.Equal(t, 2, r.NoOfBedsOccupied)
	assert.Equal(t, uint(7), r.OccupiedBy.TenantID)

	require.NoError(t, r.Assign(RoomOccupant{TenantID: 42}))
	r.Vacate(42)
	r.Vacate(42)
	assert.Equal(t, 2, r.NoOfBedsOccupied)
	assert.Empty(t, r.Occupants)
}

func TestRoomVacateUnknownTenantIsNoop(t *testing.T) {
	r := Room{RoomNo: "501", NoOfBeds: 2}
	require.NoError(t, r.Assign(RoomOccupant{TenantID: 1}))

	r.Vacate(99)

	assert.Equal(t, 1, r.NoOfBedsOccupied)
	assert.Len(t, r.Occupants, 1)
}

func TestFindRoomIgnoresCaseAndSpace(t *testing.T) {
	floors := []Floor{
		{FloorNumber: 0, Rooms: []Room{{RoomNo: "G1"}}},
		{FloorNumber: 2, Rooms: []Room{{RoomNo: "202"}, {RoomNo: "2B"}}},
	}

	r := FindRoom(floors, 2, " 2b ")
	require.NotNil(t, r)
	r.NoOfBedsOccupied = 1
	assert.Equal(t, 1, floors[1].Rooms[1].NoOfBedsOccupied)

	assert.Nil(t, FindRoom(floors, 1, "202"))
	assert.NotNil(t, FindRoom(floors, 0, "g1"))
}

func TestSharingOptionNominalBeds(t *testing.T) {
	assert.Equal(t, 1, SharingSingle.NominalBeds())
	assert.Equal(t, 5, SharingFive.NominalBeds())
	assert.Equal(t, 0, SharingOther.NominalBeds())
	assert.False(t, SharingOption("SIX").Valid())
}

func TestPropertyFloorListEmpty(t *testing.T) {
	p := Property{ID: 1}
	floors, err := p.FloorList()
	require.NoError(t, err)
	assert.Empty(t, floors)

	require.NoError(t, p.SetFloorList([]Floor{{FloorNumber: 1, Rooms: []Room{{RoomNo: "101", NoOfBeds: 1}}}}))
	floors, err = p.FloorList()
	require.NoError(t, err)
	assert.Len(t, floors, 1)
}
