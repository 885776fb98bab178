package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serviflex/config"
	"serviflex/cron"
	"serviflex/database"
	availabilityRepoPkg "serviflex/database/repository/availability"
	engagementRepoPkg "serviflex/database/repository/engagement"
	escrowRepoPkg "serviflex/database/repository/escrow"
	notificationRepoPkg "serviflex/database/repository/notification"
	"serviflex/handlers"
	"serviflex/middleware"
	"serviflex/routes"
	"serviflex/services/availability"
	"serviflex/services/engagement"
	"serviflex/services/escrow"
	"serviflex/services/notification"
	"serviflex/services/payment"
	"serviflex/services/tasks"
	"serviflex/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	engagementRepo := engagementRepoPkg.NewMongoEngagementRepo()
	escrowRepo := escrowRepoPkg.NewMongoEscrowRepo()
	availabilityRepo := availabilityRepoPkg.NewMongoAvailabilityRepo()
	notificationRepo := notificationRepoPkg.NewMongoNotificationRepo()

	// services.
	notificationService := &notification.DefaultNotificationService{
		Repo: notificationRepo,
		FCM:  utils.FCMClient,
	}

	availabilityService := availability.NewDefaultAvailabilityService(
		availabilityRepo,
		engagementRepo,
		utils.GetCacheClient(),
		availability.Defaults{
			BufferMinutes:      config.AppConfig.DefaultBufferMinutes,
			AdvanceBookingDays: config.AppConfig.DefaultAdvanceBookingDays,
			Timezone:           config.AppConfig.DefaultTimezone,
		},
	)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()

	engagementService := engagement.NewDefaultEngagementService(
		engagementRepo,
		availabilityService,
		tasks.NewAsynqReminderScheduler(asynqClient),
		notificationService,
		engagement.Policy{
			GraceMinutes:        config.AppConfig.StartGraceMinutes,
			ReminderLeadMinutes: config.AppConfig.ReminderLeadMinutes,
			DefaultTimezone:     config.AppConfig.DefaultTimezone,
		},
	)

	escrowService := escrow.NewDefaultEscrowService(
		escrowRepo,
		payment.NewStripeProcessor(),
		notificationService,
		escrow.Policy{
			FeePercent:      config.AppConfig.PlatformFeePercent,
			AutoReleaseDays: config.AppConfig.AutoReleaseDays,
			MinAmount:       config.AppConfig.EscrowMinAmount,
			MaxAmount:       config.AppConfig.EscrowMaxAmount,
		},
	)

	// Background workers: reminder queue consumer and the recurring sweeps.
	cron.InitReminderWorker(engagementService)
	sweeps := cron.InitSweeps(engagementService, escrowService)
	defer sweeps.Stop()

	handlerBundle := &routes.HandlerBundle{
		Engagement:   handlers.NewEngagementHandler(engagementService),
		Escrow:       handlers.NewEscrowHandler(escrowService),
		Availability: handlers.NewAvailabilityHandler(availabilityService),
		Notification: handlers.NewNotificationHandler(notificationService),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
