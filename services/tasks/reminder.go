package tasks

import (
	"context"
	"encoding/json"
	"time"

	"serviflex/models"

	"github.com/hibiken/asynq"
)

const TypeSendReminder = "reminder:send"

// NewReminderTask builds the delayed asynq task that fires an engagement
// reminder at fireAt.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// AsynqReminderScheduler enqueues reminder tasks on the shared asynq client.
type AsynqReminderScheduler struct {
	Client *asynq.Client
}

// NewAsynqReminderScheduler wraps an asynq client.
func NewAsynqReminderScheduler(client *asynq.Client) *AsynqReminderScheduler {
	return &AsynqReminderScheduler{Client: client}
}

// ScheduleReminder enqueues a reminder for the engagement at fireAt.
func (s *AsynqReminderScheduler) ScheduleReminder(ctx context.Context, engagementID string, fireAt time.Time) error {
	task, opts, err := NewReminderTask(models.ReminderPayload{
		EngagementID: engagementID,
		FireAt:       fireAt.UTC().Format(time.RFC3339),
	}, fireAt)
	if err != nil {
		return err
	}
	_, err = s.Client.EnqueueContext(ctx, task, opts...)
	return err
}
