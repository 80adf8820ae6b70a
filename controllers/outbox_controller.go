package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pg-backend/models"
	"pg-backend/services"
	"pg-backend/utils"
)

type OutboxController struct {
	OutboxSvc *services.OutboxService
}

func NewOutboxController(svc *services.OutboxService) *OutboxController {
	return &OutboxController{OutboxSvc: svc}
}

// GET /api/outbox?status=&tenantId=&kind=
func (c *OutboxController) List(ctx *gin.Context) {
	tasks, err := c.OutboxSvc.List(ctx.Request.Context(), services.OutboxFilter{
		Status:   strings.ToUpper(ctx.Query("status")),
		TenantID: queryUint(ctx, "tenantId"),
		Kind:     models.OutboxTaskKind(strings.ToUpper(ctx.Query("kind"))),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, tasks)
}

// POST /api/outbox/:id/retry
// Resets the task and runs it once right away.
func (c *OutboxController) Retry(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	task, err := c.OutboxSvc.Retry(ctx.Request.Context(), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	runErr := c.OutboxSvc.Execute(ctx.Request.Context(), task)
	resp := gin.H{"task": task}
	if runErr != nil {
		resp["error"] = runErr.Error()
	}
	utils.JSONSuccess(ctx, http.StatusOK, resp)
}

type abandonRequest struct {
	Reason string `json:"reason"`
}

// POST /api/outbox/:id/abandon
func (c *OutboxController) Abandon(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req abandonRequest
	_ = ctx.ShouldBindJSON(&req)

	task, err := c.OutboxSvc.Abandon(ctx.Request.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, task)
}
