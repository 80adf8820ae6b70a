package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"pg-backend/config"
	"pg-backend/models"
)

// ReconcileRequest moves one tenant into New. Old is the previous room on
// edit and nil on create.
type ReconcileRequest struct {
	TenantID   uint            `json:"tenantId"`
	TenantName string          `json:"tenantName"`
	New        models.RoomRef  `json:"new"`
	Old        *models.RoomRef `json:"old,omitempty"`
}

// OccupancyReconciler applies bed-count changes to property documents.
// Every write is conditional on the document's row version.
type OccupancyReconciler struct {
	Properties PropertyStore
	Locker     PropertyLocker
	MaxRetries int
	Logger     *logrus.Logger
}

func NewOccupancyReconciler(store PropertyStore, locker PropertyLocker, logger *logrus.Logger) *OccupancyReconciler {
	return &OccupancyReconciler{
		Properties: store,
		Locker:     locker,
		MaxRetries: defaultMaxRetries,
		Logger:     logger,
	}
}

func (r *OccupancyReconciler) Reconcile(ctx context.Context, req ReconcileRequest) error {
	if req.Old != nil && req.Old.Same(req.New) {
		return nil
	}

	occupant := models.RoomOccupant{TenantID: req.TenantID, TenantName: req.TenantName}

	if req.Old == nil || req.Old.PropertyID == req.New.PropertyID {
		return r.apply(ctx, req.New.PropertyID, func(floors []models.Floor) error {
			stillInOld := req.Old != nil && alreadyIn(floors, *req.Old, req.TenantID)
			if alreadyIn(floors, req.New, req.TenantID) && !stillInOld {
				return errNoChange
			}
			if req.Old != nil {
				r.vacate(floors, *req.Old, req.TenantID)
			}
			return assign(floors, req.New, occupant)
		})
	}

	// Cross-property move: take the new bed first so a full target leaves the
	// old assignment untouched. A replay finds the tenant already in the new
	// room and only repeats the vacate, which is a no-op once done.
	if err := r.apply(ctx, req.New.PropertyID, func(floors []models.Floor) error {
		if alreadyIn(floors, req.New, req.TenantID) {
			return errNoChange
		}
		return assign(floors, req.New, occupant)
	}); err != nil {
		return err
	}
	old := *req.Old
	return r.apply(ctx, old.PropertyID, func(floors []models.Floor) error {
		if models.FindRoom(floors, old.Floor, old.RoomNumber) != nil && !alreadyIn(floors, old, req.TenantID) {
			return errNoChange
		}
		r.vacate(floors, old, req.TenantID)
		return nil
	})
}

var (
	// errUntracked stops a write for properties without a floor plan.
	errUntracked = errors.New("property has no floor plan")
	// errNoChange stops a write whose effect is already in the document.
	errNoChange = errors.New("occupancy already applied")
)

func (r *OccupancyReconciler) apply(ctx context.Context, propertyID uint, mutate func([]models.Floor) error) error {
	if r.Locker != nil {
		unlock, err := r.Locker.Lock(ctx, propertyID)
		if err != nil {
			r.logger().WithFields(logrus.Fields{
				"module":     "OccupancyReconciler",
				"propertyId": propertyID,
			}).Warn("could not obtain property lock; relying on row version: " + err.Error())
		} else {
			defer unlock()
		}
	}

	err := WithRetry(ctx, r.MaxRetries,
		func(ctx context.Context) (*models.Property, error) {
			return r.Properties.GetByID(ctx, propertyID)
		},
		r.Properties.UpdateIfVersion,
		func(p *models.Property) error {
			floors, err := p.FloorList()
			if err != nil {
				return permanent(err)
			}
			if !hasAnyRoom(floors) {
				return errUntracked
			}
			if err := mutate(floors); err != nil {
				return err
			}
			return p.SetFloorList(floors)
		},
	)
	if errors.Is(err, errNoChange) {
		r.logger().WithField("propertyId", propertyID).Debug("occupancy already applied; nothing to write")
		return nil
	}
	if errors.Is(err, errUntracked) {
		r.logger().WithField("propertyId", propertyID).Info("property has no floor plan; occupancy not tracked")
		return nil
	}
	if errors.Is(err, ErrPropertyNotFound) {
		return permanent(err)
	}
	return err
}

func (r *OccupancyReconciler) vacate(floors []models.Floor, ref models.RoomRef, tenantID uint) {
	room := models.FindRoom(floors, ref.Floor, ref.RoomNumber)
	if room == nil {
		r.logger().WithFields(logrus.Fields{
			"module":     "OccupancyReconciler",
			"propertyId": ref.PropertyID,
			"floor":      ref.Floor,
			"roomNumber": ref.RoomNumber,
		}).Warn("previous room no longer exists; nothing to vacate")
		return
	}
	room.Vacate(tenantID)
}

func assign(floors []models.Floor, ref models.RoomRef, o models.RoomOccupant) error {
	room := models.FindRoom(floors, ref.Floor, ref.RoomNumber)
	if room == nil {
		return fmt.Errorf("%w: floor %d room %s of property %d", ErrRoomNotFound, ref.Floor, ref.RoomNumber, ref.PropertyID)
	}
	if err := room.Assign(o); err != nil {
		if errors.Is(err, models.ErrRoomAtCapacity) {
			return fmt.Errorf("%w: room %s has %d of %d beds taken", ErrRoomFull, room.RoomNo, room.NoOfBedsOccupied, room.NoOfBeds)
		}
		return err
	}
	return nil
}

func alreadyIn(floors []models.Floor, ref models.RoomRef, tenantID uint) bool {
	room := models.FindRoom(floors, ref.Floor, ref.RoomNumber)
	return room != nil && room.HasOccupant(tenantID)
}

func hasAnyRoom(floors []models.Floor) bool {
	for _, f := range floors {
		if len(f.Rooms) > 0 {
			return true
		}
	}
	return false
}

func (r *OccupancyReconciler) logger() *logrus.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return config.GetLogger()
}
