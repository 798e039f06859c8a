package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/engine"
	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type visibilityRequest struct {
	BaseVersion int  `json:"baseVersion"`
	Hidden      bool `json:"hidden"`
}

type settingsRequest struct {
	BaseVersion int  `json:"baseVersion"`
	DailyGoal   *int `json:"dailyGoal"`
	engine.ConfigPatch
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		writeError(c, apperrors.Unauthorized(""))
		return
	}

	state, apiErr := h.timerService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	h.transition(c, h.timerService.Start)
}

func (h *TimerHandler) Pause(c *gin.Context) {
	h.transition(c, h.timerService.Pause)
}

func (h *TimerHandler) Resume(c *gin.Context) {
	h.transition(c, h.timerService.Resume)
}

func (h *TimerHandler) Complete(c *gin.Context) {
	h.transition(c, h.timerService.Complete)
}

func (h *TimerHandler) Skip(c *gin.Context) {
	h.transition(c, h.timerService.Skip)
}

func (h *TimerHandler) Reset(c *gin.Context) {
	h.transition(c, h.timerService.Reset)
}

func (h *TimerHandler) Visibility(c *gin.Context) {
	var req visibilityRequest
	if !bindVersioned(c, &req, &req.BaseVersion) {
		return
	}

	userID := middleware.UserID(c)
	state, hiddenSeconds, apiErr := h.timerService.Visibility(c.Request.Context(), userID, req.BaseVersion, req.Hidden)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":         state,
		"hiddenSeconds": hiddenSeconds,
	})
}

func (h *TimerHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if !bindVersioned(c, &req, &req.BaseVersion) {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.UpdateSettings(c.Request.Context(), userID, service.UpdateSettingsInput{
		BaseVersion: req.BaseVersion,
		Patch:       req.ConfigPatch,
		DailyGoal:   req.DailyGoal,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, apiErr := h.timerService.GetHistory(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *TimerHandler) GetTodayStats(c *gin.Context) {
	userID := middleware.UserID(c)

	stats, apiErr := h.timerService.GetTodayStats(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *TimerHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, userID string, baseVersion int) (*service.StateView, *apperrors.APIError),
) {
	var req versionRequest
	if !bindVersioned(c, &req, &req.BaseVersion) {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := op(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func bindVersioned(c *gin.Context, req interface{}, baseVersion *int) bool {
	if !bindJSON(c, req) {
		return false
	}
	if *baseVersion <= 0 {
		writeError(c, apperrors.BadRequest("invalid_base_version", "baseVersion is required"))
		return false
	}
	return true
}
