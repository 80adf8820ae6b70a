package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"pg-backend/models"
	"pg-backend/services"
	"pg-backend/utils"
)

type PropertyController struct {
	PropertySvc *services.PropertyService
	TenantSvc   *services.TenantService
}

func NewPropertyController(props *services.PropertyService, tenants *services.TenantService) *PropertyController {
	return &PropertyController{PropertySvc: props, TenantSvc: tenants}
}

// GET /api/properties?ownerId=&type=&q=
func (c *PropertyController) List(ctx *gin.Context) {
	props, err := c.PropertySvc.List(ctx.Request.Context(), queryUint(ctx, "ownerId"), services.PropertyFilter{
		PropertyType: models.PropertyType(ctx.Query("type")),
		Query:        ctx.Query("q"),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, props)
}

// GET /api/properties/:id
func (c *PropertyController) Get(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	p, err := c.PropertySvc.GetOne(ctx.Request.Context(), queryUint(ctx, "ownerId"), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, p)
}

// POST /api/properties
func (c *PropertyController) Create(ctx *gin.Context) {
	var in services.CreatePropertyInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	p, err := c.PropertySvc.Create(ctx.Request.Context(), in)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Field()+": failed '"+fe.Tag()+"' validation")
			}
			utils.JSONErrors(ctx, http.StatusUnprocessableEntity, "validation failed", msgs)
			return
		}
		if errors.Is(err, services.ErrInvalidFloorPlan) {
			utils.JSONError(ctx, http.StatusUnprocessableEntity, err.Error())
			return
		}
		utils.JSONError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSONSuccess(ctx, http.StatusCreated, p)
}

// GET /api/properties/:id/availability?tenantId=
// With tenantId the tenant's own room is marked current and stays selectable.
func (c *PropertyController) Availability(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var current *models.RoomRef
	if tenantID := queryUint(ctx, "tenantId"); tenantID != 0 {
		t, err := c.TenantSvc.GetByID(ctx.Request.Context(), tenantID)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		room := t.Room()
		current = &room
	}

	ix, err := c.PropertySvc.Availability(ctx.Request.Context(), id, current)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, ix)
}
