package notificationRepo

import (
	"context"

	"serviflex/models"
)

// NotificationRepository persists bell notifications and device tokens.
type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error

	GetDeviceToken(ctx context.Context, userID string) (*models.DeviceToken, error)
	SetDeviceToken(ctx context.Context, token *models.DeviceToken) error
}
