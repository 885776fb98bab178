package engagementRepo

import (
	"context"
	"log"
	"time"

	"serviflex/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEngagementRepo is the MongoDB implementation of EngagementRepository.
type MongoEngagementRepo struct {
	coll *mongo.Collection
}

// NewMongoEngagementRepo returns a repo bound to the engagements collection.
func NewMongoEngagementRepo() *MongoEngagementRepo {
	repo := &MongoEngagementRepo{
		coll: database.DB().Collection("engagements"),
	}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoEngagementRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "professional_id", Value: 1}, {Key: "scheduled_date", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_date", Value: 1}},
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("engagement repo: failed to ensure indexes: %v", err)
	}
}
