package availability

import (
	"errors"

	"pg-backend/models"
)

var (
	ErrUnknownFloor = errors.New("unknown_floor")
	ErrUnknownRoom  = errors.New("unknown_room")
)

// Selection is the floor/room/room-type part of the onboarding form.
type Selection struct {
	Floor      *int   `json:"floor"`
	RoomNumber string `json:"roomNumber"`
	RoomType   string `json:"roomType"`
}

// SelectFloor picks a floor and clears any previous room choice.
func (ix *Index) SelectFloor(floor int) (Selection, error) {
	if _, ok := ix.byFloor[floor]; !ok {
		return Selection{}, ErrUnknownFloor
	}
	f := floor
	return Selection{Floor: &f}, nil
}

// SelectRoom picks a room on the selected floor; the room type follows the
// room's sharing option. Unconfigured rooms have none, so the current type
// is kept, or OTHER when there is no type yet.
func (ix *Index) SelectRoom(sel Selection, roomNo string) (Selection, error) {
	if sel.Floor == nil {
		return sel, ErrUnknownFloor
	}
	room, ok := ix.Lookup(*sel.Floor, roomNo)
	if !ok {
		return sel, ErrUnknownRoom
	}
	roomType := string(room.SharingOption)
	if roomType == "" {
		roomType = sel.RoomType
	}
	if roomType == "" {
		roomType = string(models.SharingOther)
	}
	f := *sel.Floor
	return Selection{
		Floor:      &f,
		RoomNumber: room.RoomNo,
		RoomType:   roomType,
	}, nil
}
