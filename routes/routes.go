package routes

import (
	"net/http"
	"time"

	"serviflex/handlers"
	"serviflex/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the HTTP handlers wired in main.
type HandlerBundle struct {
	Engagement   *handlers.EngagementHandler
	Escrow       *handlers.EscrowHandler
	Availability *handlers.AvailabilityHandler
	Notification *handlers.NotificationHandler
}

// RegisterEngagementRoutes registers the lifecycle endpoints.
func RegisterEngagementRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/engagements")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Engagement.Create)
		api.GET("", hb.Engagement.List)
		api.GET("/:id", hb.Engagement.Get)
		api.POST("/:id/accept", hb.Engagement.Accept)
		api.POST("/:id/start", hb.Engagement.Start)
		api.POST("/:id/complete", hb.Engagement.Complete)
		api.POST("/:id/confirm-payment", hb.Engagement.ConfirmPayment)
		api.POST("/:id/cancel", hb.Engagement.Cancel)
	}
}

// RegisterEscrowRoutes registers the settlement endpoints.
func RegisterEscrowRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/escrow")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Escrow.Open)
		api.GET("", hb.Escrow.List)
		api.GET("/id/:id", hb.Escrow.Get)
		api.GET("/engagement/:engagementId", hb.Escrow.GetByEngagement)
		api.POST("/:id/confirm-funding", hb.Escrow.ConfirmFunding)
		api.POST("/:id/confirm-completion", hb.Escrow.ConfirmCompletion)
		api.POST("/:id/release", hb.Escrow.Release)
		api.POST("/:id/refund", hb.Escrow.Refund)
		api.POST("/:id/cancel", hb.Escrow.Cancel)
	}
}

// RegisterAvailabilityRoutes registers the scheduler endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/schedule", hb.Availability.SetWeekSchedule)
		api.PUT("/preferences", hb.Availability.SetPreferences)
		api.POST("/blocked-dates", hb.Availability.BlockDate)
		api.GET("/blocked-dates", hb.Availability.ListBlockedDates)
		api.DELETE("/blocked-dates/:date", hb.Availability.UnblockDate)
		api.GET("/settings/:professionalId", hb.Availability.GetSettings)
		api.GET("/check/:professionalId", hb.Availability.Check)
		api.GET("/slots/:professionalId", hb.Availability.ListSlots)
	}
}

// RegisterNotificationRoutes registers the bell feed endpoints.
func RegisterNotificationRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.Notification.List)
		api.POST("/read/:id", hb.Notification.MarkRead)
		api.POST("/device", hb.Notification.RegisterDevice)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm ServiFlex"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterEngagementRoutes(r, hb)
	RegisterEscrowRoutes(r, hb)
	RegisterAvailabilityRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
}
