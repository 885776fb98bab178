package notification

import (
	"context"

	"serviflex/models"
)

// NotificationService is the one-way lifecycle event sink. Notify is
// fire-and-forget: delivery failures are logged and never surfaced to the
// state transition that triggered them.
type NotificationService interface {
	Notify(ctx context.Context, userID, title, message, kind, link string)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	RegisterDeviceToken(ctx context.Context, userID, token string) error
}
