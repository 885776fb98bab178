package availability

import (
	"context"

	"serviflex/models"
)

// Defaults carries the fallback values used when a professional has never
// configured availability.
type Defaults struct {
	BufferMinutes      int
	AdvanceBookingDays int
	Timezone           string
}

// BookingProjection is the read side of the engagement store the scheduler
// checks conflicts against.
type BookingProjection interface {
	ActiveWindows(ctx context.Context, professionalID, date string) ([]models.BookingWindow, error)
}

// BlockDateRequest marks one calendar date as unavailable.
type BlockDateRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason"`
	Type   string `json:"type"`
}

// AvailabilityService owns the professional's recurring schedule, blocked
// dates, and the slot arithmetic bookings are validated against.
type AvailabilityService interface {
	// GetSettings returns the settings, materializing the default template on
	// first read.
	GetSettings(ctx context.Context, professionalID string) (*models.AvailabilitySettings, error)

	// SetWeekSchedule replaces the recurring week template after validating
	// that every day's slots are well formed and non-overlapping.
	SetWeekSchedule(ctx context.Context, professionalID string, week models.WeekSchedule) (*models.AvailabilitySettings, error)

	// SetPreferences updates buffer time, advance-booking horizon and timezone.
	SetPreferences(ctx context.Context, professionalID string, bufferTime, advanceDays int, timezone string) (*models.AvailabilitySettings, error)

	BlockDate(ctx context.Context, professionalID string, req BlockDateRequest) error
	UnblockDate(ctx context.Context, professionalID, date string) error
	ListBlockedDates(ctx context.Context, professionalID string) ([]models.BlockedDate, error)

	// IsAvailable reports whether the professional can take a booking of the
	// given duration starting at date+start. excludeEngagementID, when not
	// empty, ignores that engagement's own window during the conflict scan.
	IsAvailable(ctx context.Context, professionalID, date, start string, durationMinutes int, excludeEngagementID string) (bool, error)

	// ListAvailableSlots returns the bookable "HH:MM" start times on a date
	// for the given duration.
	ListAvailableSlots(ctx context.Context, professionalID, date string, durationMinutes int) ([]string, error)
}
