package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"pg-backend/availability"
	"pg-backend/models"
)

var propertyValidate = validator.New()

type PropertyService struct {
	DB *gorm.DB
}

func NewPropertyService(db *gorm.DB) *PropertyService {
	return &PropertyService{DB: db}
}

type CreatePropertyInput struct {
	OwnerID       uint                `json:"ownerId" validate:"required"`
	Name          string              `json:"name" validate:"required,max=255"`
	PropertyType  models.PropertyType `json:"propertyType" validate:"required,oneof=PG HOSTEL APARTMENT OTHER"`
	Address       string              `json:"address"`
	City          string              `json:"city" validate:"max=100"`
	TotalFloors   int                 `json:"totalFloors" validate:"min=0,max=200"`
	RoomsPerFloor int                 `json:"roomsPerFloor" validate:"min=0,max=500"`
	Floors        []models.Floor      `json:"floors"`
}

func (s *PropertyService) List(ctx context.Context, ownerID uint, filter PropertyFilter) ([]models.Property, error) {
	q := s.DB.WithContext(ctx).Model(&models.Property{})
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	if filter.PropertyType != "" {
		q = q.Where("property_type = ?", filter.PropertyType)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ?", like, like)
	}

	var props []models.Property
	if err := q.Order("id ASC").Find(&props).Error; err != nil {
		return nil, err
	}
	return props, nil
}

func (s *PropertyService) GetOne(ctx context.Context, ownerID, propertyID uint) (*models.Property, error) {
	q := s.DB.WithContext(ctx).Where("id = ?", propertyID)
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	var p models.Property
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PropertyService) GetByID(ctx context.Context, id uint) (*models.Property, error) {
	return s.GetOne(ctx, 0, id)
}

// UpdateIfVersion writes the floors document only if nobody else has
// written since expected was read. On success p carries the new version.
func (s *PropertyService) UpdateIfVersion(ctx context.Context, p *models.Property, expected int64) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ? AND row_version = ?", p.ID, expected).
		Updates(map[string]interface{}{
			"floors":      p.Floors,
			"row_version": expected + 1,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	p.RowVersion = expected + 1
	return true, nil
}

func (s *PropertyService) Create(ctx context.Context, in CreatePropertyInput) (*models.Property, error) {
	if err := propertyValidate.Struct(in); err != nil {
		return nil, err
	}
	floors, err := normalizeFloorPlan(in.Floors)
	if err != nil {
		return nil, err
	}

	p := &models.Property{
		OwnerID:       in.OwnerID,
		Name:          strings.TrimSpace(in.Name),
		PropertyType:  in.PropertyType,
		Address:       in.Address,
		City:          in.City,
		TotalFloors:   in.TotalFloors,
		RoomsPerFloor: in.RoomsPerFloor,
		RowVersion:    1,
	}
	if err := p.SetFloorList(floors); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// Availability indexes the property's rooms for the onboarding picker.
// current marks the tenant's own room, which stays selectable.
func (s *PropertyService) Availability(ctx context.Context, propertyID uint, current *models.RoomRef) (*availability.Index, error) {
	p, err := s.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return availability.Build(p, current)
}

// normalizeFloorPlan checks the floor/room document and fills bed counts
// from the sharing option when they are missing.
func normalizeFloorPlan(floors []models.Floor) ([]models.Floor, error) {
	if floors == nil {
		return []models.Floor{}, nil
	}
	seenFloors := map[int]bool{}
	for fi := range floors {
		f := &floors[fi]
		if f.FloorNumber < 0 {
			return nil, invalidFloorPlan("floor number %d must not be negative", f.FloorNumber)
		}
		if seenFloors[f.FloorNumber] {
			return nil, invalidFloorPlan("floor %d is listed twice", f.FloorNumber)
		}
		seenFloors[f.FloorNumber] = true

		seenRooms := map[string]bool{}
		for ri := range f.Rooms {
			r := &f.Rooms[ri]
			r.RoomNo = strings.TrimSpace(r.RoomNo)
			key := strings.ToLower(r.RoomNo)
			if key == "" {
				return nil, invalidFloorPlan("floor %d has a room without a number", f.FloorNumber)
			}
			if seenRooms[key] {
				return nil, invalidFloorPlan("room %s is listed twice on floor %d", r.RoomNo, f.FloorNumber)
			}
			seenRooms[key] = true

			if r.SharingOption == "" {
				r.SharingOption = models.SharingOther
			}
			if !r.SharingOption.Valid() {
				return nil, invalidFloorPlan("room %s has unknown sharing option %q", r.RoomNo, r.SharingOption)
			}
			if r.NoOfBeds == 0 {
				r.NoOfBeds = r.SharingOption.NominalBeds()
			}
			if r.NoOfBeds < 1 {
				return nil, invalidFloorPlan("room %s needs at least one bed", r.RoomNo)
			}
			if r.NoOfBedsOccupied < 0 || r.NoOfBedsOccupied > r.NoOfBeds {
				return nil, invalidFloorPlan("room %s has %d of %d beds occupied", r.RoomNo, r.NoOfBedsOccupied, r.NoOfBeds)
			}
		}
	}
	return floors, nil
}

func invalidFloorPlan(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidFloorPlan}, args...)...)
}
