package engagement

import (
	"context"
	"time"

	"serviflex/models"
)

// Policy carries the lifecycle timing rules, injected from config.
type Policy struct {
	// GraceMinutes is how early before the scheduled time a professional may
	// start the service. There is no upper bound on late starts.
	GraceMinutes int
	// ReminderLeadMinutes is how long before the scheduled time the reminder
	// fires and the engagement moves to scheduled.
	ReminderLeadMinutes int
	// DefaultTimezone interprets scheduled wall-clock times for
	// professionals without availability settings.
	DefaultTimezone string
}

// Scheduler is the slice of the availability service the lifecycle needs:
// conflict checks at creation and the professional's timezone.
type Scheduler interface {
	IsAvailable(ctx context.Context, professionalID, date, start string, durationMinutes int, excludeEngagementID string) (bool, error)
	GetSettings(ctx context.Context, professionalID string) (*models.AvailabilitySettings, error)
}

// ReminderScheduler enqueues the delayed reminder task when an engagement is
// accepted.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, engagementID string, fireAt time.Time) error
}

// CreateRequest is the client's booking request.
type CreateRequest struct {
	ProfessionalID    string  `json:"professionalId" binding:"required"`
	ProfessionalName  string  `json:"professionalName"`
	ProfessionalEmail string  `json:"professionalEmail"`
	ServiceType       string  `json:"serviceType" binding:"required"`
	Description       string  `json:"description"`
	EstimatedPrice    float64 `json:"estimatedPrice"`
	Currency          string  `json:"currency"`
	ScheduledDate     string  `json:"scheduledDate" binding:"required"`
	ScheduledTime     string  `json:"scheduledTime" binding:"required"`
	DurationMinutes   int     `json:"durationMinutes"`
}

// CompleteRequest carries the professional's completion details.
type CompleteRequest struct {
	FinalPrice *float64 `json:"finalPrice"`
	PayoutKey  string   `json:"payoutKey"`
}

// EngagementService drives the service engagement lifecycle. Every transition
// is authorized against the acting party and is idempotent: replaying a call
// that already took effect returns the current document unchanged.
type EngagementService interface {
	// Create books a new pending engagement for the acting client after
	// checking the professional's availability.
	Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.ServiceEngagement, error)

	// Accept is the professional taking the job. Schedules the reminder.
	Accept(ctx context.Context, actor models.Actor, engagementID string) (*models.ServiceEngagement, error)

	// Start begins the work. Allowed from accepted or scheduled, no earlier
	// than GraceMinutes before the scheduled time.
	Start(ctx context.Context, actor models.Actor, engagementID string, arrival *models.GeoPoint) (*models.ServiceEngagement, error)

	// Complete finishes the work and records the final price and payout key.
	Complete(ctx context.Context, actor models.Actor, engagementID string, req CompleteRequest) (*models.ServiceEngagement, error)

	// ConfirmPayment is the client acknowledging the professional was paid.
	ConfirmPayment(ctx context.Context, actor models.Actor, engagementID, paymentProof string) (*models.ServiceEngagement, error)

	// Cancel aborts the engagement. Either party may cancel until the work
	// is completed.
	Cancel(ctx context.Context, actor models.Actor, engagementID, note string) (*models.ServiceEngagement, error)

	// MarkScheduled moves an accepted engagement to scheduled and fires the
	// at-most-once reminder notification. Called by the reminder worker.
	MarkScheduled(ctx context.Context, engagementID string) (*models.ServiceEngagement, error)

	// SweepDueReminders finds accepted engagements whose reminder window has
	// opened and marks them scheduled. Fallback for lost queue tasks.
	SweepDueReminders(ctx context.Context) (int, error)

	GetByID(ctx context.Context, actor models.Actor, engagementID string) (*models.ServiceEngagement, error)
	ListByUser(ctx context.Context, userID, role string) ([]models.ServiceEngagement, error)
}
