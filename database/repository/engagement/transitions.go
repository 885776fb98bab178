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

// Transition performs the guarded status move in a single FindOneAndUpdate:
// the filter pins the source status so concurrent callers cannot both win,
// and the history entry is pushed in the same document update.
func (repo *MongoEngagementRepo) Transition(
	ctx context.Context,
	id string,
	from []models.EngagementStatus,
	upd TransitionUpdate,
) (*models.ServiceEngagement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":     id,
		"status": bson.M{"$in": from},
	}

	set := bson.M{"status": upd.Change.To}
	if upd.AcceptedAt != nil {
		set["accepted_at"] = *upd.AcceptedAt
	}
	if upd.StartedAt != nil {
		set["started_at"] = *upd.StartedAt
	}
	if upd.CompletedAt != nil {
		set["completed_at"] = *upd.CompletedAt
	}
	if upd.PaidAt != nil {
		set["paid_at"] = *upd.PaidAt
	}
	if upd.CancelledAt != nil {
		set["cancelled_at"] = *upd.CancelledAt
	}
	if upd.FinalPrice != nil {
		set["final_price"] = *upd.FinalPrice
	}
	if upd.PayoutKey != nil {
		set["payout_key"] = *upd.PayoutKey
	}
	if upd.PaymentProof != nil {
		set["payment_proof"] = *upd.PaymentProof
	}
	if upd.CancellationNote != nil {
		set["cancellation_note"] = *upd.CancellationNote
	}
	if upd.ArrivalLocation != nil {
		set["arrival_location"] = *upd.ArrivalLocation
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"status_history": upd.Change},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var eng models.ServiceEngagement
	err := repo.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&eng)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, fmt.Errorf("error transitioning engagement %s: %w", id, err)
	}
	return &eng, nil
}

// MarkNotified stamps a one-shot notification slot. The $exists guard makes
// the stamp at-most-once under retries.
func (repo *MongoEngagementRepo) MarkNotified(ctx context.Context, id, slot string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	field := "notifications_sent." + slot
	filter := bson.M{
		"id":  id,
		field: bson.M{"$exists": false},
	}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{field: at}})
	if err != nil {
		return false, fmt.Errorf("error marking notification %s on engagement %s: %w", slot, id, err)
	}
	return res.MatchedCount > 0, nil
}
