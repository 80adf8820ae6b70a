package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pg-backend/availability"
	"pg-backend/services"
	"pg-backend/utils"
	"pg-backend/wizard"
)

const idempotencyHeader = "Idempotency-Key"

type OnboardingController struct {
	Onboarding *services.TenantOnboardingService
}

func NewOnboardingController(svc *services.TenantOnboardingService) *OnboardingController {
	return &OnboardingController{Onboarding: svc}
}

// wizardRequest is a round-tripped wizard state. TenantID switches to edit mode.
type wizardRequest struct {
	TenantID uint         `json:"tenantId"`
	State    wizard.State `json:"state"`
}

type selectRequest struct {
	wizardRequest
	Floor      *int   `json:"floor"`
	RoomNumber string `json:"roomNumber"`
}

func (c *OnboardingController) bindState(ctx *gin.Context, req *wizardRequest) (wizard.State, bool) {
	st := req.State.Normalize()
	if req.TenantID == 0 {
		st.Mode = wizard.ModeCreate
		st.Original = nil
		return st, true
	}
	st, _, err := c.Onboarding.PrepareEdit(ctx.Request.Context(), req.TenantID, st)
	if err != nil {
		writeServiceError(ctx, err)
		return st, false
	}
	return st, true
}

// GET /api/onboarding/start
func (c *OnboardingController) Start(ctx *gin.Context) {
	utils.JSONSuccess(ctx, http.StatusOK, wizard.NewState())
}

// GET /api/onboarding/edit/:id
func (c *OnboardingController) StartEdit(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	t, err := c.Onboarding.Tenants.GetByID(ctx.Request.Context(), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, wizard.NewEditState(t))
}

// POST /api/onboarding/next
func (c *OnboardingController) Next(ctx *gin.Context) {
	var req wizardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	st, ok := c.bindState(ctx, &req)
	if !ok {
		return
	}
	env, err := c.Onboarding.Env(ctx.Request.Context(), st)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	next := st.Next(env)
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{
		"state":    next,
		"advanced": next.Step != st.Step,
	})
}

// POST /api/onboarding/prev
func (c *OnboardingController) Prev(ctx *gin.Context) {
	var req wizardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{"state": req.State.Normalize().Prev()})
}

// POST /api/onboarding/select
// Applies a floor pick, and a room pick when roomNumber is given.
func (c *OnboardingController) Select(ctx *gin.Context) {
	var req selectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	st, ok := c.bindState(ctx, &req.wizardRequest)
	if !ok {
		return
	}
	env, err := c.Onboarding.Env(ctx.Request.Context(), st)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if env.Index == nil {
		utils.JSONError(ctx, http.StatusNotFound, services.ErrPropertyNotFound.Error())
		return
	}

	if req.Floor != nil {
		if st, err = st.WithSelectedFloor(env.Index, *req.Floor); err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, err.Error())
			return
		}
	}
	if strings.TrimSpace(req.RoomNumber) != "" {
		if st, err = st.WithSelectedRoom(env.Index, req.RoomNumber); err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, err.Error())
			return
		}
	}

	var rooms []availability.RoomOption
	if st.Values.Floor != nil {
		rooms = env.Index.Rooms(*st.Values.Floor)
	}
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{
		"state":  st,
		"floors": env.Index.FloorNumbers(),
		"rooms":  rooms,
	})
}

// POST /api/onboarding/submit
func (c *OnboardingController) Submit(ctx *gin.Context) {
	var req wizardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	st := req.State.Normalize()

	var (
		res *services.OnboardingResult
		err error
	)
	if req.TenantID != 0 {
		res, _, err = c.Onboarding.SubmitEdit(ctx.Request.Context(), req.TenantID, st)
	} else {
		res, _, err = c.Onboarding.SubmitCreate(ctx.Request.Context(), st, ctx.GetHeader(idempotencyHeader))
	}
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	code := http.StatusOK
	if req.TenantID == 0 && !res.Replayed {
		code = http.StatusCreated
	}
	utils.JSONSuccess(ctx, code, gin.H{
		"tenant":      res.Tenant,
		"sideEffects": res.SideEffects,
		"failed":      res.Failed(),
		"replayed":    res.Replayed,
	})
}
