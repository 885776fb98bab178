package models

import "time"

// EngagementStatus enumerates the lifecycle states of a service engagement.
type EngagementStatus string

const (
	EngagementPending    EngagementStatus = "pending"
	EngagementAccepted   EngagementStatus = "accepted"
	EngagementScheduled  EngagementStatus = "scheduled"
	EngagementInProgress EngagementStatus = "in_progress"
	EngagementCompleted  EngagementStatus = "completed"
	EngagementPaid       EngagementStatus = "paid"
	EngagementCancelled  EngagementStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s EngagementStatus) Terminal() bool {
	return s == EngagementPaid || s == EngagementCancelled
}

// StatusChange is one audit-trail entry. The statusHistory array is append-only;
// its last entry's To always equals the engagement's current status.
type StatusChange struct {
	From      EngagementStatus `bson:"from" json:"from"`
	To        EngagementStatus `bson:"to" json:"to"`
	Timestamp time.Time        `bson:"timestamp" json:"timestamp"`
	ActorID   string           `bson:"actor_id" json:"actorId"`
	ActorName string           `bson:"actor_name" json:"actorName"`
	Note      string           `bson:"note,omitempty" json:"note,omitempty"`
}

// NotificationsSent records which one-shot lifecycle notifications have fired,
// guaranteeing at-most-once delivery across client retries.
type NotificationsSent struct {
	Acceptance *time.Time `bson:"acceptance,omitempty" json:"acceptance,omitempty"`
	Reminder   *time.Time `bson:"reminder,omitempty" json:"reminder,omitempty"`
	Completion *time.Time `bson:"completion,omitempty" json:"completion,omitempty"`
}

// GeoPoint is an optional arrival location stamped when the professional starts.
type GeoPoint struct {
	Lat       float64   `bson:"lat" json:"lat"`
	Lng       float64   `bson:"lng" json:"lng"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ServiceEngagement is one requested-and-tracked unit of work between a client
// and a professional.
type ServiceEngagement struct {
	ID string `bson:"id" json:"id"`

	ClientID          string `bson:"client_id" json:"clientId"`
	ClientName        string `bson:"client_name" json:"clientName"`
	ClientEmail       string `bson:"client_email" json:"clientEmail"`
	ProfessionalID    string `bson:"professional_id" json:"professionalId"`
	ProfessionalName  string `bson:"professional_name" json:"professionalName"`
	ProfessionalEmail string `bson:"professional_email" json:"professionalEmail"`

	ServiceType    string  `bson:"service_type" json:"serviceType"`
	Description    string  `bson:"description" json:"description"`
	EstimatedPrice float64 `bson:"estimated_price" json:"estimatedPrice"`
	FinalPrice     float64 `bson:"final_price,omitempty" json:"finalPrice,omitempty"`
	Currency       string  `bson:"currency,omitempty" json:"currency,omitempty"`

	// ScheduledDate is "YYYY-MM-DD", ScheduledTime is local wall-clock "HH:MM"
	// in the professional's timezone.
	ScheduledDate    string `bson:"scheduled_date" json:"scheduledDate"`
	ScheduledTime    string `bson:"scheduled_time" json:"scheduledTime"`
	DurationMinutes  int    `bson:"duration_minutes" json:"durationMinutes"`
	PayoutKey        string `bson:"payout_key,omitempty" json:"payoutKey,omitempty"`
	PaymentProof     string `bson:"payment_proof,omitempty" json:"paymentProof,omitempty"`
	CancellationNote string `bson:"cancellation_note,omitempty" json:"cancellationNote,omitempty"`

	Status          EngagementStatus  `bson:"status" json:"status"`
	StatusHistory   []StatusChange    `bson:"status_history" json:"statusHistory"`
	Notifications   NotificationsSent `bson:"notifications_sent" json:"notificationsSent"`
	ArrivalLocation *GeoPoint         `bson:"arrival_location,omitempty" json:"arrivalLocation,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	AcceptedAt  *time.Time `bson:"accepted_at,omitempty" json:"acceptedAt,omitempty"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	PaidAt      *time.Time `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
}

// CurrentStatus returns the To of the last history entry, which by invariant
// matches Status.
func (e *ServiceEngagement) CurrentStatus() EngagementStatus {
	if len(e.StatusHistory) == 0 {
		return e.Status
	}
	return e.StatusHistory[len(e.StatusHistory)-1].To
}

// PartyOf reports whether userID is the client or the assigned professional.
func (e *ServiceEngagement) PartyOf(userID string) bool {
	return userID == e.ClientID || userID == e.ProfessionalID
}

// OtherParty returns the counterpart of userID on this engagement.
func (e *ServiceEngagement) OtherParty(userID string) (id, name, email string) {
	if userID == e.ClientID {
		return e.ProfessionalID, e.ProfessionalName, e.ProfessionalEmail
	}
	return e.ClientID, e.ClientName, e.ClientEmail
}
