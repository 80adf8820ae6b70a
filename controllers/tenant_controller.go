package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pg-backend/models"
	"pg-backend/services"
	"pg-backend/utils"
	"pg-backend/wizard"
)

type TenantController struct {
	TenantSvc  *services.TenantService
	Onboarding *services.TenantOnboardingService
}

func NewTenantController(tenants *services.TenantService, onboarding *services.TenantOnboardingService) *TenantController {
	return &TenantController{TenantSvc: tenants, Onboarding: onboarding}
}

// GET /api/tenants?propertyId=&tenantId=&ownerId=&status=
func (c *TenantController) List(ctx *gin.Context) {
	tenants, err := c.TenantSvc.List(ctx.Request.Context(), services.TenantFilter{
		TenantID:   queryUint(ctx, "tenantId"),
		PropertyID: queryUint(ctx, "propertyId"),
		OwnerID:    queryUint(ctx, "ownerId"),
		Status:     models.TenantStatus(ctx.Query("status")),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, tenants)
}

// GET /api/tenants/:id
func (c *TenantController) Get(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	t, err := c.TenantSvc.GetByID(ctx.Request.Context(), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, t)
}

// PUT /api/tenants/:id
// The body is a full wizard form; it goes through the same checks as a
// final-step edit submission.
func (c *TenantController) Update(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var form wizard.Form
	if err := ctx.ShouldBindJSON(&form); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	st := wizard.State{Step: wizard.TotalSteps, Mode: wizard.ModeEdit, Values: form}
	res, _, err := c.Onboarding.SubmitEdit(ctx.Request.Context(), id, st)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{
		"tenant":      res.Tenant,
		"sideEffects": res.SideEffects,
		"failed":      res.Failed(),
	})
}
