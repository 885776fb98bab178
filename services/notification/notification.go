package notification

import (
	"context"
	"time"

	notificationRepo "serviflex/database/repository/notification"
	"serviflex/models"
	"serviflex/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultNotificationService persists bell notifications and attempts an FCM
// push when the user has a registered device token.
type DefaultNotificationService struct {
	Repo notificationRepo.NotificationRepository
	// FCM may be nil (e.g. in tests); pushes are then skipped.
	FCM *messaging.Client
}

// Notify writes the bell entry and fires a best-effort push. Any failure is
// logged and swallowed: lifecycle correctness never depends on delivery.
func (s *DefaultNotificationService) Notify(ctx context.Context, userID, title, message, kind, link string) {
	logger := utils.GetLogger()

	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Link:      link,
		Read:      false,
		CreatedAt: time.Now(),
	}
	if err := s.Repo.Insert(ctx, n); err != nil {
		logger.Warn("notification: failed to persist bell entry",
			zap.String("userID", userID), zap.String("kind", kind), zap.Error(err))
	}

	s.push(ctx, userID, title, message, map[string]string{
		"kind": kind,
		"link": link,
	})
}

func (s *DefaultNotificationService) push(ctx context.Context, userID, title, body string, data map[string]string) {
	if s.FCM == nil {
		return
	}
	logger := utils.GetLogger()

	token, err := s.Repo.GetDeviceToken(ctx, userID)
	if err != nil {
		logger.Warn("notification: failed to look up device token",
			zap.String("userID", userID), zap.Error(err))
		return
	}
	if token == nil || token.Token == "" {
		return
	}

	msg := &messaging.Message{
		Token: token.Token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if _, err := s.FCM.Send(ctx, msg); err != nil {
		logger.Warn("notification: push delivery failed",
			zap.String("userID", userID), zap.Error(err))
	}
}

// ListForUser returns the user's bell entries, newest first.
func (s *DefaultNotificationService) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.Repo.ListForUser(ctx, userID)
}

// MarkRead flags one bell entry as read.
func (s *DefaultNotificationService) MarkRead(ctx context.Context, notificationID string) error {
	return s.Repo.MarkRead(ctx, notificationID)
}

// RegisterDeviceToken stores the user's FCM token for push delivery.
func (s *DefaultNotificationService) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	return s.Repo.SetDeviceToken(ctx, &models.DeviceToken{
		UserID:    userID,
		Token:     token,
		UpdatedAt: time.Now(),
	})
}
