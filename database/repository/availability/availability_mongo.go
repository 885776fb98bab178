package availabilityRepo

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

// MongoAvailabilityRepo is the MongoDB implementation of AvailabilityRepository.
type MongoAvailabilityRepo struct {
	settingsColl *mongo.Collection
	blockedColl  *mongo.Collection
}

// NewMongoAvailabilityRepo returns a repo bound to the availability collections.
func NewMongoAvailabilityRepo() *MongoAvailabilityRepo {
	repo := &MongoAvailabilityRepo{
		settingsColl: database.DB().Collection("availability_settings"),
		blockedColl:  database.DB().Collection("blocked_dates"),
	}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoAvailabilityRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.settingsColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "professional_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("availability repo: failed to ensure settings index: %v", err)
	}
	_, err = repo.blockedColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "professional_id", Value: 1}, {Key: "date", Value: 1}},
	})
	if err != nil {
		log.Printf("availability repo: failed to ensure blocked-date index: %v", err)
	}
}

// GetSettings returns the settings document, or (nil, nil) when absent.
func (repo *MongoAvailabilityRepo) GetSettings(ctx context.Context, professionalID string) (*models.AvailabilitySettings, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var settings models.AvailabilitySettings
	err := repo.settingsColl.FindOne(ctx, bson.M{"professional_id": professionalID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching availability settings: %w", err)
	}
	return &settings, nil
}

// UpsertSettings writes the full settings document.
func (repo *MongoAvailabilityRepo) UpsertSettings(ctx context.Context, settings *models.AvailabilitySettings) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"professional_id": settings.ProfessionalID}
	opts := options.Replace().SetUpsert(true)
	if _, err := repo.settingsColl.ReplaceOne(ctx, filter, settings, opts); err != nil {
		return fmt.Errorf("error upserting availability settings: %w", err)
	}
	return nil
}

// AddBlockedDate adds the date to the settings set ($addToSet keeps it
// idempotent) and records the detail entry.
func (repo *MongoAvailabilityRepo) AddBlockedDate(ctx context.Context, detail *models.BlockedDate) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"professional_id": detail.ProfessionalID}
	update := bson.M{
		"$addToSet": bson.M{"blocked_dates": detail.Date},
		"$set":      bson.M{"updated_at": detail.CreatedAt},
	}
	if _, err := repo.settingsColl.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error blocking date %s: %w", detail.Date, err)
	}
	if _, err := repo.blockedColl.InsertOne(ctx, detail); err != nil {
		return fmt.Errorf("error recording blocked date detail: %w", err)
	}
	return nil
}

// RemoveBlockedDate removes the date from the settings set and deletes its
// detail entries.
func (repo *MongoAvailabilityRepo) RemoveBlockedDate(ctx context.Context, professionalID, date string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"professional_id": professionalID}
	update := bson.M{
		"$pull": bson.M{"blocked_dates": date},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	if _, err := repo.settingsColl.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error unblocking date %s: %w", date, err)
	}
	if _, err := repo.blockedColl.DeleteMany(ctx, bson.M{"professional_id": professionalID, "date": date}); err != nil {
		return fmt.Errorf("error removing blocked date detail: %w", err)
	}
	return nil
}

// ListBlockedDates returns the detail records for a professional.
func (repo *MongoAvailabilityRepo) ListBlockedDates(ctx context.Context, professionalID string) ([]models.BlockedDate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := repo.blockedColl.Find(ctx, bson.M{"professional_id": professionalID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing blocked dates: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.BlockedDate
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding blocked dates: %w", err)
	}
	return out, nil
}
