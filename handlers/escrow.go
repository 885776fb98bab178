package handlers

import (
	"net/http"

	"serviflex/middleware"
	"serviflex/services/escrow"
	"serviflex/utils"

	"github.com/gin-gonic/gin"
)

// EscrowHandler exposes the escrow settlement flow over HTTP.
type EscrowHandler struct {
	Service escrow.EscrowService
}

// NewEscrowHandler wires the handler.
func NewEscrowHandler(svc escrow.EscrowService) *EscrowHandler {
	return &EscrowHandler{Service: svc}
}

// Open handles POST /api/escrow.
func (h *EscrowHandler) Open(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var req escrow.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	// The paying client is always the caller.
	req.ClientID = actor.ID

	p, err := h.Service.Open(c.Request.Context(), req)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /api/escrow/id/:id.
func (h *EscrowHandler) Get(c *gin.Context) {
	p, err := h.Service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetByEngagement handles GET /api/escrow/engagement/:engagementId.
func (h *EscrowHandler) GetByEngagement(c *gin.Context) {
	p, err := h.Service.GetByEngagement(c.Request.Context(), c.Param("engagementId"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List handles GET /api/escrow?role=client|professional.
func (h *EscrowHandler) List(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// ConfirmFunding handles POST /api/escrow/:id/confirm-funding.
func (h *EscrowHandler) ConfirmFunding(c *gin.Context) {
	var body struct {
		TransactionRef string `json:"transactionRef" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	p, err := h.Service.ConfirmFunding(c.Request.Context(), c.Param("id"), body.TransactionRef)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ConfirmCompletion handles POST /api/escrow/:id/confirm-completion.
func (h *EscrowHandler) ConfirmCompletion(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	p, err := h.Service.ConfirmCompletion(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Release handles POST /api/escrow/:id/release.
func (h *EscrowHandler) Release(c *gin.Context) {
	p, err := h.Service.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Refund handles POST /api/escrow/:id/refund.
func (h *EscrowHandler) Refund(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	p, err := h.Service.Refund(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Cancel handles POST /api/escrow/:id/cancel.
func (h *EscrowHandler) Cancel(c *gin.Context) {
	p, err := h.Service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
