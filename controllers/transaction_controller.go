package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pg-backend/models"
	"pg-backend/services"
	"pg-backend/utils"
)

type TransactionController struct {
	TransactionSvc *services.TransactionService
}

func NewTransactionController(svc *services.TransactionService) *TransactionController {
	return &TransactionController{TransactionSvc: svc}
}

// GET /api/transactions?tenantId=&propertyId=&type=
func (c *TransactionController) List(ctx *gin.Context) {
	txs, err := c.TransactionSvc.List(ctx.Request.Context(), services.TransactionFilter{
		TenantID:   queryUint(ctx, "tenantId"),
		PropertyID: queryUint(ctx, "propertyId"),
		Type:       models.TransactionType(ctx.Query("type")),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, txs)
}
