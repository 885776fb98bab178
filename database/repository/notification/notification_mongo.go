package notificationRepo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"serviflex/database"
	"serviflex/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNotificationRepo is the MongoDB implementation of NotificationRepository.
type MongoNotificationRepo struct {
	notifColl *mongo.Collection
	tokenColl *mongo.Collection
}

// NewMongoNotificationRepo returns a repo bound to the notification collections.
func NewMongoNotificationRepo() *MongoNotificationRepo {
	repo := &MongoNotificationRepo{
		notifColl: database.DB().Collection("notifications"),
		tokenColl: database.DB().Collection("device_tokens"),
	}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoNotificationRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.notifColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		log.Printf("notification repo: failed to ensure index: %v", err)
	}
	_, err = repo.tokenColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("notification repo: failed to ensure token index: %v", err)
	}
}

// Insert writes one bell notification.
func (repo *MongoNotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.notifColl.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("error inserting notification: %w", err)
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (repo *MongoNotificationRepo) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := repo.notifColl.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags one notification as read.
func (repo *MongoNotificationRepo) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.notifColl.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"read": true}}); err != nil {
		return fmt.Errorf("error marking notification %s read: %w", id, err)
	}
	return nil
}

// GetDeviceToken returns the user's registered push token, or (nil, nil).
func (repo *MongoNotificationRepo) GetDeviceToken(ctx context.Context, userID string) (*models.DeviceToken, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var token models.DeviceToken
	err := repo.tokenColl.FindOne(ctx, bson.M{"user_id": userID}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching device token: %w", err)
	}
	return &token, nil
}

// SetDeviceToken registers or replaces the user's push token.
func (repo *MongoNotificationRepo) SetDeviceToken(ctx context.Context, token *models.DeviceToken) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": token.UserID}
	opts := options.Replace().SetUpsert(true)
	if _, err := repo.tokenColl.ReplaceOne(ctx, filter, token, opts); err != nil {
		return fmt.Errorf("error setting device token: %w", err)
	}
	return nil
}
