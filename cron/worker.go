package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"serviflex/config"
	"serviflex/models"
	"serviflex/services/engagement"
	"serviflex/services/escrow"
	"serviflex/services/tasks"
	"serviflex/utils"

	"github.com/hibiken/asynq"
	cronv3 "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InitReminderWorker runs the async worker in background. It consumes the
// delayed reminder tasks enqueued when engagements are accepted.
func InitReminderWorker(engagementSvc engagement.EngagementService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(engagementSvc))

	go func() {
		log.Println("[ReminderWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReminderWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReminderWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(engagementSvc engagement.EngagementService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid reminder payload", zap.Error(err))
			return err
		}

		_, err := engagementSvc.MarkScheduled(ctx, p.EngagementID)
		if err != nil {
			// Cancelled or already-started engagements make the task moot.
			if utils.IsFault(err, utils.FaultInvalidState) || utils.IsFault(err, utils.FaultNotFound) {
				return nil
			}
			utils.GetLogger().Warn("reminder task failed",
				zap.String("engagementID", p.EngagementID), zap.Error(err))
			return err
		}
		return nil
	}
}

// InitSweeps starts the recurring maintenance jobs: the escrow auto-release
// sweep and the reminder fallback sweep that catches tasks the queue lost.
func InitSweeps(engagementSvc engagement.EngagementService, escrowSvc escrow.EscrowService) *cronv3.Cron {
	logger := utils.GetLogger()
	c := cronv3.New()

	c.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := escrowSvc.SweepAutoRelease(ctx); err != nil {
			logger.Warn("auto release sweep failed", zap.Error(err))
		}
	})

	c.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := engagementSvc.SweepDueReminders(ctx); err != nil {
			logger.Warn("reminder sweep failed", zap.Error(err))
		}
	})

	c.Start()
	return c
}
