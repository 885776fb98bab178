package escrowRepo

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

// Create inserts a new escrow payment document.
func (repo *MongoEscrowRepo) Create(ctx context.Context, p *models.EscrowPayment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error creating escrow payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID. Returns (nil, nil) when absent.
func (repo *MongoEscrowRepo) GetByID(ctx context.Context, id string) (*models.EscrowPayment, error) {
	return repo.getOne(ctx, bson.M{"id": id})
}

// GetByEngagement retrieves the payment tied to an engagement (1:1).
func (repo *MongoEscrowRepo) GetByEngagement(ctx context.Context, engagementID string) (*models.EscrowPayment, error) {
	return repo.getOne(ctx, bson.M{"engagement_id": engagementID})
}

func (repo *MongoEscrowRepo) getOne(ctx context.Context, filter bson.M) (*models.EscrowPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.EscrowPayment
	err := repo.coll.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching escrow payment: %w", err)
	}
	return &p, nil
}

// ListByClient returns all payments funded by the client, newest first.
func (repo *MongoEscrowRepo) ListByClient(ctx context.Context, clientID string) ([]models.EscrowPayment, error) {
	return repo.listBy(ctx, bson.M{"client_id": clientID})
}

// ListByProfessional returns all payments owed to the professional, newest first.
func (repo *MongoEscrowRepo) ListByProfessional(ctx context.Context, professionalID string) ([]models.EscrowPayment, error) {
	return repo.listBy(ctx, bson.M{"professional_id": professionalID})
}

func (repo *MongoEscrowRepo) listBy(ctx context.Context, filter bson.M) ([]models.EscrowPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing escrow payments: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.EscrowPayment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding escrow payments: %w", err)
	}
	return out, nil
}
