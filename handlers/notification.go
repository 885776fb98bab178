package handlers

import (
	"net/http"

	"serviflex/middleware"
	"serviflex/services/notification"
	"serviflex/utils"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes the bell feed and device registration.
type NotificationHandler struct {
	Service notification.NotificationService
}

// NewNotificationHandler wires the handler.
func NewNotificationHandler(svc notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: svc}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	list, err := h.Service.ListForUser(c.Request.Context(), actor.ID)
	if err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkRead handles POST /api/notifications/read/:id.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Service.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

// RegisterDevice handles POST /api/notifications/device.
func (h *NotificationHandler) RegisterDevice(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "insufficient authorization"})
		return
	}

	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Service.RegisterDeviceToken(c.Request.Context(), actor.ID, body.Token); err != nil {
		utils.JSONFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}
