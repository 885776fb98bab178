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

func (repo *MongoEscrowRepo) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.EscrowPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.EscrowPayment
	err := repo.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, fmt.Errorf("error updating escrow payment: %w", err)
	}
	return &p, nil
}

// MarkFunded moves pending/processing to held_in_escrow in one guarded update.
func (repo *MongoEscrowRepo) MarkFunded(ctx context.Context, id, transactionRef string, at time.Time) (*models.EscrowPayment, error) {
	filter := bson.M{
		"id":     id,
		"status": bson.M{"$in": []models.EscrowStatus{models.EscrowPending, models.EscrowProcessing}},
	}
	update := bson.M{"$set": bson.M{
		"status":          models.EscrowHeld,
		"transaction_ref": transactionRef,
		"funded_at":       at,
		"updated_at":      at,
	}}
	return repo.findOneAndUpdate(ctx, filter, update)
}

// SetCompletionFlag sets one party's confirmation flag while the payment is
// held. The returned post-image carries both flags as of this write, so a
// concurrent confirmation by the other party is never observed stale.
func (repo *MongoEscrowRepo) SetCompletionFlag(ctx context.Context, id string, byClient bool, at time.Time) (*models.EscrowPayment, error) {
	field := "completed_by_professional"
	if byClient {
		field = "completed_by_client"
	}
	filter := bson.M{
		"id":     id,
		"status": models.EscrowHeld,
	}
	update := bson.M{"$set": bson.M{
		field:        true,
		"updated_at": at,
	}}
	return repo.findOneAndUpdate(ctx, filter, update)
}

// Release moves held_in_escrow to released. The status guard makes it win or
// lose atomically against a concurrent Release or Refund.
func (repo *MongoEscrowRepo) Release(ctx context.Context, id string, at time.Time) (*models.EscrowPayment, error) {
	filter := bson.M{"id": id, "status": models.EscrowHeld}
	update := bson.M{"$set": bson.M{
		"status":      models.EscrowReleased,
		"released_at": at,
		"updated_at":  at,
	}}
	return repo.findOneAndUpdate(ctx, filter, update)
}

// Refund moves held_in_escrow to refunded, recording the reason.
func (repo *MongoEscrowRepo) Refund(ctx context.Context, id, reason string, at time.Time) (*models.EscrowPayment, error) {
	filter := bson.M{"id": id, "status": models.EscrowHeld}
	update := bson.M{"$set": bson.M{
		"status":        models.EscrowRefunded,
		"refund_reason": reason,
		"refunded_at":   at,
		"updated_at":    at,
	}}
	return repo.findOneAndUpdate(ctx, filter, update)
}

// Cancel voids a payment that never reached custody.
func (repo *MongoEscrowRepo) Cancel(ctx context.Context, id string, at time.Time) (*models.EscrowPayment, error) {
	filter := bson.M{
		"id":     id,
		"status": bson.M{"$in": []models.EscrowStatus{models.EscrowPending, models.EscrowProcessing}},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.EscrowCancelled,
		"updated_at": at,
	}}
	return repo.findOneAndUpdate(ctx, filter, update)
}

// ListAutoReleasable returns held payments whose deadline has passed.
func (repo *MongoEscrowRepo) ListAutoReleasable(ctx context.Context, now time.Time) ([]models.EscrowPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":            models.EscrowHeld,
		"auto_release_date": bson.M{"$lte": now},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying auto-releasable payments: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.EscrowPayment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding auto-releasable payments: %w", err)
	}
	return out, nil
}
