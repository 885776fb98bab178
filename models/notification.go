package models

import "time"

// Notification is one bell entry delivered to a user. The sink is one-way:
// lifecycle code writes these and never reads them back.
type Notification struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	Kind      string    `bson:"kind" json:"kind"` // request, acceptance, reminder, start, completion, payment, cancellation, message
	Title     string    `bson:"title" json:"title"`
	Message   string    `bson:"message" json:"message"`
	Link      string    `bson:"link,omitempty" json:"link,omitempty"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// DeviceToken maps a user to their registered FCM token for push delivery.
type DeviceToken struct {
	UserID    string    `bson:"user_id" json:"userId"`
	Token     string    `bson:"token" json:"token"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ReminderPayload is the asynq task payload for a scheduled engagement
// reminder.
type ReminderPayload struct {
	EngagementID string `json:"engagementId"`
	FireAt       string `json:"fireAt"`
}
