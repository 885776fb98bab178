package escrowRepo

import (
	"context"
	"log"
	"time"

	"serviflex/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEscrowRepo is the MongoDB implementation of EscrowRepository.
type MongoEscrowRepo struct {
	coll *mongo.Collection
}

// NewMongoEscrowRepo returns a repo bound to the escrow payments collection.
func NewMongoEscrowRepo() *MongoEscrowRepo {
	repo := &MongoEscrowRepo{
		coll: database.DB().Collection("escrow_payments"),
	}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoEscrowRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// One custody record per engagement.
			Keys:    bson.D{{Key: "engagement_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "client_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "professional_id", Value: 1}},
		},
		{
			// Serves the auto-release sweep range scan.
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "auto_release_date", Value: 1}},
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("escrow repo: failed to ensure indexes: %v", err)
	}
}
