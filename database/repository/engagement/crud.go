package engagementRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"serviflex/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new engagement document.
func (repo *MongoEngagementRepo) Create(ctx context.Context, eng *models.ServiceEngagement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, eng); err != nil {
		return fmt.Errorf("error creating engagement: %w", err)
	}
	return nil
}

// GetByID retrieves an engagement by its ID. Returns (nil, nil) when absent.
func (repo *MongoEngagementRepo) GetByID(ctx context.Context, id string) (*models.ServiceEngagement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var eng models.ServiceEngagement
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&eng)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching engagement %s: %w", id, err)
	}
	return &eng, nil
}

// ListByClient returns all engagements requested by the client, newest first.
func (repo *MongoEngagementRepo) ListByClient(ctx context.Context, clientID string) ([]models.ServiceEngagement, error) {
	return repo.listBy(ctx, bson.M{"client_id": clientID})
}

// ListByProfessional returns all engagements assigned to the professional,
// newest first.
func (repo *MongoEngagementRepo) ListByProfessional(ctx context.Context, professionalID string) ([]models.ServiceEngagement, error) {
	return repo.listBy(ctx, bson.M{"professional_id": professionalID})
}

func (repo *MongoEngagementRepo) listBy(ctx context.Context, filter bson.M) ([]models.ServiceEngagement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing engagements: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ServiceEngagement
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding engagements: %w", err)
	}
	return out, nil
}
