package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PropertyType string

const (
	PropertyTypePG        PropertyType = "PG"
	PropertyTypeHostel    PropertyType = "HOSTEL"
	PropertyTypeApartment PropertyType = "APARTMENT"
	PropertyTypeOther     PropertyType = "OTHER"
)

// Property is the floor/room document owned by the property catalog.
// Floors is stored as one JSON document and written back wholesale;
// RowVersion guards those writes against lost updates.
type Property struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OwnerID       uint         `gorm:"index;column:owner_id" json:"ownerId"`
	Name          string       `gorm:"size:255" json:"name"`
	PropertyType  PropertyType `gorm:"size:32;index;column:property_type" json:"propertyType"`
	Address       string       `gorm:"type:text" json:"address"`
	City          string       `gorm:"size:100" json:"city"`
	TotalFloors   int          `gorm:"column:total_floors" json:"totalFloors"`
	RoomsPerFloor int          `gorm:"column:rooms_per_floor" json:"roomsPerFloor"`

	Floors     datatypes.JSON `gorm:"column:floors" json:"floors"`
	RowVersion int64          `gorm:"column:row_version;not null;default:1" json:"rowVersion"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FloorList decodes the floors document. An empty column yields no floors.
func (p *Property) FloorList() ([]Floor, error) {
	if len(p.Floors) == 0 || string(p.Floors) == "null" {
		return []Floor{}, nil
	}
	var floors []Floor
	if err := json.Unmarshal(p.Floors, &floors); err != nil {
		return nil, fmt.Errorf("decode floors of property %d: %w", p.ID, err)
	}
	return floors, nil
}

func (p *Property) SetFloorList(floors []Floor) error {
	b, err := json.Marshal(floors)
	if err != nil {
		return fmt.Errorf("encode floors of property %d: %w", p.ID, err)
	}
	p.Floors = datatypes.JSON(b)
	return nil
}

func (p *Property) IsPG() bool {
	return p.PropertyType == PropertyTypePG
}

func (p *Property) GetRowVersion() int64  { return p.RowVersion }
func (p *Property) SetRowVersion(n int64) { p.RowVersion = n }
