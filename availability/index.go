// Package availability turns a property's floor/room document into a
// selectable, occupancy-aware index keyed by floor number.
package availability

import (
	"fmt"
	"sort"
	"strings"

	"pg-backend/models"
)

type RoomOption struct {
	FloorNumber   int                  `json:"floorNumber"`
	RoomNo        string               `json:"roomNo"`
	RoomName      string               `json:"roomName"`
	Label         string               `json:"label"`
	SharingOption models.SharingOption `json:"sharingOption"`
	Capacity      int                  `json:"capacity"`
	Occupied      int                  `json:"occupied"`
	Available     int                  `json:"available"`
	Selectable    bool                 `json:"selectable"`
	IsCurrent     bool                 `json:"isCurrent"`
	// Unconfigured rooms come from the totalFloors x roomsPerFloor fallback;
	// their capacity and occupancy are unknown.
	Unconfigured bool `json:"unconfigured"`
}

type FloorOption struct {
	FloorNumber int          `json:"floorNumber"`
	Rooms       []RoomOption `json:"rooms"`
}

type Index struct {
	PropertyID   uint                `json:"propertyId"`
	PropertyType models.PropertyType `json:"propertyType"`
	Synthesized  bool                `json:"synthesized"`
	Floors       []FloorOption       `json:"floors"`

	byFloor map[int]int
}

// Build indexes p. current is the tenant's existing room in edit mode; that
// room stays selectable even when full.
func Build(p *models.Property, current *models.RoomRef) (*Index, error) {
	floors, err := p.FloorList()
	if err != nil {
		return nil, err
	}

	ix := &Index{
		PropertyID:   p.ID,
		PropertyType: p.PropertyType,
		byFloor:      map[int]int{},
	}

	if !hasRooms(floors) {
		ix.Synthesized = true
		floors = synthesizeFloors(p.TotalFloors, p.RoomsPerFloor)
	}

	sort.SliceStable(floors, func(i, j int) bool { return floors[i].FloorNumber < floors[j].FloorNumber })

	for _, f := range floors {
		opt := FloorOption{FloorNumber: f.FloorNumber, Rooms: make([]RoomOption, 0, len(f.Rooms))}
		for _, r := range f.Rooms {
			opt.Rooms = append(opt.Rooms, ix.roomOption(p.ID, f.FloorNumber, r, current))
		}
		ix.byFloor[f.FloorNumber] = len(ix.Floors)
		ix.Floors = append(ix.Floors, opt)
	}
	return ix, nil
}

func (ix *Index) roomOption(propertyID uint, floor int, r models.Room, current *models.RoomRef) RoomOption {
	isCurrent := current != nil && current.Same(models.RoomRef{PropertyID: propertyID, Floor: floor, RoomNumber: r.RoomNo})

	opt := RoomOption{
		FloorNumber:   floor,
		RoomNo:        r.RoomNo,
		RoomName:      r.RoomName,
		SharingOption: r.SharingOption,
		Capacity:      r.NoOfBeds,
		Occupied:      r.NoOfBedsOccupied,
		IsCurrent:     isCurrent,
		Unconfigured:  ix.Synthesized,
	}
	opt.Label = roomLabel(r)

	if ix.Synthesized {
		opt.Selectable = true
		return opt
	}

	opt.Available = r.NoOfBeds - r.NoOfBedsOccupied
	if opt.Available < 0 {
		opt.Available = 0
	}
	opt.Selectable = r.NoOfBedsOccupied < r.NoOfBeds || isCurrent
	return opt
}

func roomLabel(r models.Room) string {
	name := strings.TrimSpace(r.RoomName)
	if name == "" || strings.EqualFold(name, r.RoomNo) {
		return "Room " + r.RoomNo
	}
	return fmt.Sprintf("Room %s (%s)", r.RoomNo, name)
}

func hasRooms(floors []models.Floor) bool {
	for _, f := range floors {
		if len(f.Rooms) > 0 {
			return true
		}
	}
	return false
}

// synthesizeFloors builds floors 1..totalFloors with rooms numbered
// floor*100+n, e.g. 201..20N on floor 2.
func synthesizeFloors(totalFloors, roomsPerFloor int) []models.Floor {
	if totalFloors <= 0 || roomsPerFloor <= 0 {
		return nil
	}
	floors := make([]models.Floor, 0, totalFloors)
	for f := 1; f <= totalFloors; f++ {
		rooms := make([]models.Room, 0, roomsPerFloor)
		for n := 1; n <= roomsPerFloor; n++ {
			no := fmt.Sprintf("%d", f*100+n)
			rooms = append(rooms, models.Room{RoomNo: no, RoomName: no})
		}
		floors = append(floors, models.Floor{FloorNumber: f, Rooms: rooms})
	}
	return floors
}

func (ix *Index) FloorNumbers() []int {
	out := make([]int, 0, len(ix.Floors))
	for _, f := range ix.Floors {
		out = append(out, f.FloorNumber)
	}
	return out
}

func (ix *Index) Rooms(floor int) []RoomOption {
	i, ok := ix.byFloor[floor]
	if !ok {
		return nil
	}
	return ix.Floors[i].Rooms
}

// SelectableRooms lists the rooms of floor a tenant may pick.
func (ix *Index) SelectableRooms(floor int) []RoomOption {
	var out []RoomOption
	for _, r := range ix.Rooms(floor) {
		if r.Selectable {
			out = append(out, r)
		}
	}
	return out
}

func (ix *Index) Lookup(floor int, roomNo string) (RoomOption, bool) {
	roomNo = strings.TrimSpace(roomNo)
	for _, r := range ix.Rooms(floor) {
		if strings.EqualFold(strings.TrimSpace(r.RoomNo), roomNo) {
			return r, true
		}
	}
	return RoomOption{}, false
}
