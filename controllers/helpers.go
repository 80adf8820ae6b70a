package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pg-backend/services"
	"pg-backend/utils"
	"pg-backend/wizard"
)

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param(name))
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

// queryUint returns 0 for a missing or malformed value.
func queryUint(ctx *gin.Context, name string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Query(name)), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// writeServiceError maps service and wizard errors to HTTP responses.
func writeServiceError(ctx *gin.Context, err error) {
	var verr *wizard.ValidationError
	var perr *services.PersistenceError
	switch {
	case errors.As(err, &verr):
		utils.JSONErrors(ctx, http.StatusUnprocessableEntity, "validation failed", verr.Messages)
	case errors.As(err, &perr):
		utils.JSONError(ctx, http.StatusInternalServerError, "could not save tenant, please retry")
	case errors.Is(err, wizard.ErrNotFinalStep):
		utils.JSONError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPropertyNotFound),
		errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		utils.JSONError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrTaskNotRetryable),
		errors.Is(err, services.ErrTaskAlreadyDone),
		errors.Is(err, services.ErrTaskBusy):
		utils.JSONError(ctx, http.StatusConflict, err.Error())
	default:
		utils.JSONError(ctx, http.StatusInternalServerError, err.Error())
	}
}
