package engagementRepo

import (
	"context"
	"fmt"
	"time"

	"serviflex/models"
	"serviflex/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// activeStatuses are the engagement states that occupy a professional's
// calendar from the scheduler's point of view.
var activeStatuses = []models.EngagementStatus{
	models.EngagementPending,
	models.EngagementAccepted,
	models.EngagementScheduled,
	models.EngagementInProgress,
}

// ActiveWindows projects active engagements on a date into half-open minute
// intervals. Rows with unparseable clock times are skipped rather than
// failing the whole projection.
func (repo *MongoEngagementRepo) ActiveWindows(ctx context.Context, professionalID, date string) ([]models.BookingWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"professional_id": professionalID,
		"scheduled_date":  date,
		"status":          bson.M{"$in": activeStatuses},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying active engagements: %w", err)
	}
	defer cursor.Close(ctx)

	var engs []models.ServiceEngagement
	if err := cursor.All(ctx, &engs); err != nil {
		return nil, fmt.Errorf("error decoding active engagements: %w", err)
	}

	windows := make([]models.BookingWindow, 0, len(engs))
	for _, e := range engs {
		start, err := utils.ParseClock(e.ScheduledTime)
		if err != nil {
			continue
		}
		duration := e.DurationMinutes
		if duration <= 0 {
			duration = 60
		}
		windows = append(windows, models.BookingWindow{
			EngagementID: e.ID,
			Start:        start,
			End:          start + duration,
		})
	}
	return windows, nil
}

// ListAcceptedUnreminded returns accepted engagements scheduled on any of the
// given dates whose reminder slot has not been stamped.
func (repo *MongoEngagementRepo) ListAcceptedUnreminded(ctx context.Context, dates []string) ([]models.ServiceEngagement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":                      models.EngagementAccepted,
		"scheduled_date":              bson.M{"$in": dates},
		"notifications_sent.reminder": bson.M{"$exists": false},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying engagements due for reminder: %w", err)
	}
	defer cursor.Close(ctx)

	var engs []models.ServiceEngagement
	if err := cursor.All(ctx, &engs); err != nil {
		return nil, fmt.Errorf("error decoding engagements due for reminder: %w", err)
	}
	return engs, nil
}
