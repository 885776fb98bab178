package availabilityRepo

import (
	"context"

	"serviflex/models"
)

// AvailabilityRepository owns persistence for availability settings and
// blocked-date detail records.
type AvailabilityRepository interface {
	// GetSettings returns the professional's settings, or (nil, nil) when
	// they have never been materialized.
	GetSettings(ctx context.Context, professionalID string) (*models.AvailabilitySettings, error)

	// UpsertSettings writes the full settings document.
	UpsertSettings(ctx context.Context, settings *models.AvailabilitySettings) error

	// AddBlockedDate adds a date to the settings' blocked set and records the
	// detail entry. Adding an already-blocked date is a no-op.
	AddBlockedDate(ctx context.Context, detail *models.BlockedDate) error

	// RemoveBlockedDate removes a date from the blocked set and deletes its
	// detail entries.
	RemoveBlockedDate(ctx context.Context, professionalID, date string) error

	// ListBlockedDates returns the detail records for a professional.
	ListBlockedDates(ctx context.Context, professionalID string) ([]models.BlockedDate, error)
}
