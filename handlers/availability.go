package handlers

import (
	"net/http"
	"strconv"

	"serviflex/middleware"
	"serviflex/models"
	"serviflex/services/availability"
	"serviflex/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler exposes the scheduler over HTTP. Reads take the
// professional id from the path; writes always act on the caller's own
// calendar.
type AvailabilityHandler struct {
	Service availability.AvailabilityService
}

// NewAvailabilityHandler wires the handler.
func NewAvailabilityHandler(svc availability.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc}
}

// GetSettings handles GET /api/availability/settings/:professionalId.
func (h *AvailabilityHandler) GetSettings(c *gin.Context) {
	settings, err := h.Service.GetSettings(c.Request.Context(), c.Param("professionalId"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SetWeekSchedule handles PUT /api/availability/schedule.
func (h *AvailabilityHandler) SetWeekSchedule(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var week models.WeekSchedule
	if err := c.ShouldBindJSON(&week); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	settings, err := h.Service.SetWeekSchedule(c.Request.Context(), actor.ID, week)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SetPreferences handles PUT /api/availability/preferences.
func (h *AvailabilityHandler) SetPreferences(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var body struct {
		BufferTime         int    `json:"bufferTime"`
		AdvanceBookingDays int    `json:"advanceBookingDays"`
		Timezone           string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	settings, err := h.Service.SetPreferences(c.Request.Context(), actor.ID, body.BufferTime, body.AdvanceBookingDays, body.Timezone)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// BlockDate handles POST /api/availability/blocked-dates.
func (h *AvailabilityHandler) BlockDate(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var req availability.BlockDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Service.BlockDate(c.Request.Context(), actor.ID, req); err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": req.Date})
}

// UnblockDate handles DELETE /api/availability/blocked-dates/:date.
func (h *AvailabilityHandler) UnblockDate(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	if err := h.Service.UnblockDate(c.Request.Context(), actor.ID, c.Param("date")); err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unblocked": c.Param("date")})
}

// ListBlockedDates handles GET /api/availability/blocked-dates.
func (h *AvailabilityHandler) ListBlockedDates(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	dates, err := h.Service.ListBlockedDates(c.Request.Context(), actor.ID)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blockedDates": dates})
}

// Check handles GET /api/availability/check/:professionalId?date=&start=&duration=.
func (h *AvailabilityHandler) Check(c *gin.Context) {
	duration, err := strconv.Atoi(c.DefaultQuery("duration", "60"))
	if err != nil || duration <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
		return
	}

	free, err := h.Service.IsAvailable(c.Request.Context(),
		c.Param("professionalId"), c.Query("date"), c.Query("start"), duration, "")
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": free})
}

// ListSlots handles GET /api/availability/slots/:professionalId?date=&duration=.
func (h *AvailabilityHandler) ListSlots(c *gin.Context) {
	duration, err := strconv.Atoi(c.DefaultQuery("duration", "60"))
	if err != nil || duration <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
		return
	}

	slots, err := h.Service.ListAvailableSlots(c.Request.Context(),
		c.Param("professionalId"), c.Query("date"), duration)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
