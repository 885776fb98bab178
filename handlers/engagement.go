package handlers

import (
	"net/http"

	"serviflex/middleware"
	"serviflex/models"
	"serviflex/services/engagement"
	"serviflex/utils"

	"github.com/gin-gonic/gin"
)

// EngagementHandler exposes the engagement lifecycle over HTTP.
type EngagementHandler struct {
	Service engagement.EngagementService
}

// NewEngagementHandler wires the handler.
func NewEngagementHandler(svc engagement.EngagementService) *EngagementHandler {
	return &EngagementHandler{Service: svc}
}

// Create handles POST /api/engagements.
func (h *EngagementHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var req engagement.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	eng, err := h.Service.Create(c.Request.Context(), actor, req)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, eng)
}

// Get handles GET /api/engagements/:id.
func (h *EngagementHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	eng, err := h.Service.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, eng)
}

// List handles GET /api/engagements?role=client|professional.
func (h *EngagementHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	list, err := h.Service.ListByUser(c.Request.Context(), actor.ID, c.DefaultQuery("role", "client"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"engagements": list})
}

// Accept handles POST /api/engagements/:id/accept.
func (h *EngagementHandler) Accept(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	eng, err := h.Service.Accept(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, eng)
}

// Start handles POST /api/engagements/:id/start.
func (h *EngagementHandler) Start(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var body struct {
		Arrival *models.GeoPoint `json:"arrival"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}

	eng, err := h.Service.Start(c.Request.Context(), actor, c.Param("id"), body.Arrival)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, eng)
}

// Complete handles POST /api/engagements/:id/complete.
func (h *EngagementHandler) Complete(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var req engagement.CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}

	eng, err := h.Service.Complete(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, eng)
}

// ConfirmPayment handles POST /api/engagements/:id/confirm-payment.
func (h *EngagementHandler) ConfirmPayment(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var body struct {
		PaymentProof string `json:"paymentProof"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}

	eng, err := h.Service.ConfirmPayment(c.Request.Context(), actor, c.Param("id"), body.PaymentProof)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, eng)
}

// Cancel handles POST /api/engagements/:id/cancel.
func (h *EngagementHandler) Cancel(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var body struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}

	eng, err := h.Service.Cancel(c.Request.Context(), actor, c.Param("id"), body.Note)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, eng)
}
