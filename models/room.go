package models

import (
	"errors"
	"strings"
)

type SharingOption string

const (
	SharingSingle SharingOption = "SINGLE"
	SharingDouble SharingOption = "DOUBLE"
	SharingTriple SharingOption = "TRIPLE"
	SharingFour   SharingOption = "FOUR"
	SharingFive   SharingOption = "FIVE"
	SharingOther  SharingOption = "OTHER"
)

var (
	ErrRoomAtCapacity = errors.New("room_at_capacity")
)

// NominalBeds is the bed count implied by the sharing type; OTHER has none.
func (s SharingOption) NominalBeds() int {
	switch s {
	case SharingSingle:
		return 1
	case SharingDouble:
		return 2
	case SharingTriple:
		return 3
	case SharingFour:
		return 4
	case SharingFive:
		return 5
	}
	return 0
}

func (s SharingOption) Valid() bool {
	switch s {
	case SharingSingle, SharingDouble, SharingTriple, SharingFour, SharingFive, SharingOther:
		return true
	}
	return false
}

type Floor struct {
	FloorNumber int    `json:"floorNumber"`
	Rooms       []Room `json:"rooms"`
}

type RoomOccupant struct {
	TenantID   uint   `json:"tenantId"`
	TenantName string `json:"tenantName"`
}

// Room is one entry of a floor in the property document.
// Occupants may be shorter than NoOfBedsOccupied for rooms whose beds were
// counted before occupants were tracked.
type Room struct {
	RoomNo           string         `json:"roomNo"`
	RoomName         string         `json:"roomName"`
	SharingOption    SharingOption  `json:"sharingOption"`
	NoOfBeds         int            `json:"noOfBeds"`
	NoOfBedsOccupied int            `json:"noOfBedsOccupied"`
	OccupiedBy       *RoomOccupant  `json:"occupiedBy,omitempty"`
	Occupants        []RoomOccupant `json:"occupants,omitempty"`
}

func (r *Room) IsFull() bool {
	return r.NoOfBedsOccupied >= r.NoOfBeds
}

func (r *Room) HasOccupant(tenantID uint) bool {
	for _, o := range r.Occupants {
		if o.TenantID == tenantID {
			return true
		}
	}
	return false
}

// Assign takes one bed for the tenant. Assigning a tenant that already
// occupies the room changes nothing.
func (r *Room) Assign(o RoomOccupant) error {
	if r.HasOccupant(o.TenantID) {
		return nil
	}
	if r.IsFull() {
		return ErrRoomAtCapacity
	}
	r.NoOfBedsOccupied++
	r.Occupants = append(r.Occupants, o)
	occ := o
	r.OccupiedBy = &occ
	return nil
}

// Vacate frees the tenant's bed, never going below zero. A tenant who is not
// listed frees nothing: beds counted without an occupant belong to someone else.
func (r *Room) Vacate(tenantID uint) {
	if !r.HasOccupant(tenantID) {
		return
	}
	kept := r.Occupants[:0]
	for _, o := range r.Occupants {
		if o.TenantID != tenantID {
			kept = append(kept, o)
		}
	}
	r.Occupants = kept
	if len(r.Occupants) == 0 {
		r.Occupants = nil
	}

	if r.NoOfBedsOccupied > 0 {
		r.NoOfBedsOccupied--
	}
	if r.NoOfBedsOccupied == 0 {
		r.OccupiedBy = nil
		r.Occupants = nil
		return
	}
	if r.OccupiedBy != nil && r.OccupiedBy.TenantID == tenantID {
		r.OccupiedBy = nil
		if len(r.Occupants) > 0 {
			last := r.Occupants[len(r.Occupants)-1]
			r.OccupiedBy = &last
		}
	}
}

// FindRoom returns a pointer into floors so callers can mutate the room in place.
func FindRoom(floors []Floor, floorNumber int, roomNo string) *Room {
	roomNo = strings.TrimSpace(roomNo)
	for fi := range floors {
		if floors[fi].FloorNumber != floorNumber {
			continue
		}
		for ri := range floors[fi].Rooms {
			if strings.EqualFold(strings.TrimSpace(floors[fi].Rooms[ri].RoomNo), roomNo) {
				return &floors[fi].Rooms[ri]
			}
		}
	}
	return nil
}
