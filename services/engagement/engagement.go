package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	engagementRepo "serviflex/database/repository/engagement"
	"serviflex/models"
	"serviflex/services/notification"
	"serviflex/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultDurationMinutes = 60

// DefaultEngagementService is the production implementation of
// EngagementService.
type DefaultEngagementService struct {
	Repo      engagementRepo.EngagementRepository
	Scheduler Scheduler
	Reminders ReminderScheduler
	Notifier  notification.NotificationService
	Policy    Policy

	// Now is swappable for tests.
	Now func() time.Time
}

// NewDefaultEngagementService wires the lifecycle service with its
// dependencies.
func NewDefaultEngagementService(repo engagementRepo.EngagementRepository, scheduler Scheduler, reminders ReminderScheduler, notifier notification.NotificationService, policy Policy) *DefaultEngagementService {
	return &DefaultEngagementService{
		Repo:      repo,
		Scheduler: scheduler,
		Reminders: reminders,
		Notifier:  notifier,
		Policy:    policy,
		Now:       time.Now,
	}
}

// Create books a new pending engagement after checking the professional's
// calendar.
func (s *DefaultEngagementService) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.ServiceEngagement, error) {
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = defaultDurationMinutes
	}

	free, err := s.Scheduler.IsAvailable(ctx, req.ProfessionalID, req.ScheduledDate, req.ScheduledTime, duration, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, utils.NewFault(utils.FaultConflict,
			"professional %s is not available on %s at %s", req.ProfessionalID, req.ScheduledDate, req.ScheduledTime)
	}

	now := s.Now().UTC()
	eng := &models.ServiceEngagement{
		ID:                uuid.New().String(),
		ClientID:          actor.ID,
		ClientName:        actor.Name,
		ClientEmail:       actor.Email,
		ProfessionalID:    req.ProfessionalID,
		ProfessionalName:  req.ProfessionalName,
		ProfessionalEmail: req.ProfessionalEmail,
		ServiceType:       req.ServiceType,
		Description:       req.Description,
		EstimatedPrice:    req.EstimatedPrice,
		Currency:          req.Currency,
		ScheduledDate:     req.ScheduledDate,
		ScheduledTime:     req.ScheduledTime,
		DurationMinutes:   duration,
		Status:            models.EngagementPending,
		StatusHistory: []models.StatusChange{{
			To:        models.EngagementPending,
			Timestamp: now,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		}},
		CreatedAt: now,
	}

	if err := s.Repo.Create(ctx, eng); err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}

	s.Notifier.Notify(ctx, eng.ProfessionalID, "New service request",
		fmt.Sprintf("%s requested %s on %s at %s.", actor.Name, eng.ServiceType, eng.ScheduledDate, eng.ScheduledTime),
		"engagement", "/engagements/"+eng.ID)

	utils.GetLogger().Info("engagement created",
		zap.String("engagementID", eng.ID),
		zap.String("clientID", actor.ID),
		zap.String("professionalID", eng.ProfessionalID))
	return eng, nil
}

// Accept is the professional taking the job. Replaying Accept on an already
// accepted engagement succeeds without effect.
func (s *DefaultEngagementService) Accept(ctx context.Context, actor models.Actor, engagementID string) (*models.ServiceEngagement, error) {
	current, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.ProfessionalID {
		return nil, utils.NewFault(utils.FaultForbidden,
			"only the assigned professional can accept engagement %s", engagementID)
	}

	now := s.Now().UTC()
	eng, err := s.Repo.Transition(ctx, engagementID, []models.EngagementStatus{models.EngagementPending}, engagementRepo.TransitionUpdate{
		Change: models.StatusChange{
			From:      models.EngagementPending,
			To:        models.EngagementAccepted,
			Timestamp: now,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		},
		AcceptedAt: &now,
	})
	if errors.Is(err, engagementRepo.ErrNoMatch) {
		return s.replayOrFault(ctx, engagementID, models.EngagementAccepted, "accepted")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept engagement: %w", err)
	}

	if fresh, err := s.Repo.MarkNotified(ctx, engagementID, "acceptance", now); err == nil && fresh {
		s.Notifier.Notify(ctx, eng.ClientID, "Request accepted",
			fmt.Sprintf("%s accepted your %s request for %s at %s.", eng.ProfessionalName, eng.ServiceType, eng.ScheduledDate, eng.ScheduledTime),
			"engagement", "/engagements/"+eng.ID)
	}

	s.scheduleReminder(ctx, eng)

	utils.GetLogger().Info("engagement accepted", zap.String("engagementID", engagementID))
	return eng, nil
}

// Start begins the work. The professional may start up to GraceMinutes before
// the scheduled time; late starts are always allowed.
func (s *DefaultEngagementService) Start(ctx context.Context, actor models.Actor, engagementID string, arrival *models.GeoPoint) (*models.ServiceEngagement, error) {
	current, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.ProfessionalID {
		return nil, utils.NewFault(utils.FaultForbidden,
			"only the assigned professional can start engagement %s", engagementID)
	}

	scheduledAt, err := s.scheduledInstant(ctx, current)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	earliest := scheduledAt.Add(-time.Duration(s.Policy.GraceMinutes) * time.Minute)
	if now.Before(earliest) {
		return nil, utils.NewFault(utils.FaultTooEarly,
			"engagement %s cannot start before %s", engagementID, earliest.Format(time.RFC3339))
	}

	nowUTC := now.UTC()
	if arrival != nil && arrival.Timestamp.IsZero() {
		arrival.Timestamp = nowUTC
	}
	eng, err := s.Repo.Transition(ctx, engagementID,
		[]models.EngagementStatus{models.EngagementAccepted, models.EngagementScheduled},
		engagementRepo.TransitionUpdate{
			Change: models.StatusChange{
				From:      current.Status,
				To:        models.EngagementInProgress,
				Timestamp: nowUTC,
				ActorID:   actor.ID,
				ActorName: actor.Name,
			},
			StartedAt:       &nowUTC,
			ArrivalLocation: arrival,
		})
	if errors.Is(err, engagementRepo.ErrNoMatch) {
		return s.replayOrFault(ctx, engagementID, models.EngagementInProgress, "started")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start engagement: %w", err)
	}

	s.Notifier.Notify(ctx, eng.ClientID, "Service started",
		fmt.Sprintf("%s started the %s service.", eng.ProfessionalName, eng.ServiceType),
		"engagement", "/engagements/"+eng.ID)
	return eng, nil
}

// Complete finishes the work. The final price defaults to the estimate when
// the professional does not state one.
func (s *DefaultEngagementService) Complete(ctx context.Context, actor models.Actor, engagementID string, req CompleteRequest) (*models.ServiceEngagement, error) {
	current, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.ProfessionalID {
		return nil, utils.NewFault(utils.FaultForbidden,
			"only the assigned professional can complete engagement %s", engagementID)
	}

	finalPrice := current.EstimatedPrice
	if req.FinalPrice != nil {
		finalPrice = *req.FinalPrice
	}
	if finalPrice < 0 {
		return nil, utils.NewFault(utils.FaultInvalidAmount, "final price cannot be negative")
	}

	now := s.Now().UTC()
	upd := engagementRepo.TransitionUpdate{
		Change: models.StatusChange{
			From:      models.EngagementInProgress,
			To:        models.EngagementCompleted,
			Timestamp: now,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		},
		CompletedAt: &now,
		FinalPrice:  &finalPrice,
	}
	if req.PayoutKey != "" {
		upd.PayoutKey = &req.PayoutKey
	}

	eng, err := s.Repo.Transition(ctx, engagementID, []models.EngagementStatus{models.EngagementInProgress}, upd)
	if errors.Is(err, engagementRepo.ErrNoMatch) {
		return s.replayOrFault(ctx, engagementID, models.EngagementCompleted, "completed")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete engagement: %w", err)
	}

	if fresh, err := s.Repo.MarkNotified(ctx, engagementID, "completion", now); err == nil && fresh {
		s.Notifier.Notify(ctx, eng.ClientID, "Service completed",
			fmt.Sprintf("%s finished the %s service. Total: %.2f. Please confirm the payment.", eng.ProfessionalName, eng.ServiceType, eng.FinalPrice),
			"engagement", "/engagements/"+eng.ID)
	}

	utils.GetLogger().Info("engagement completed",
		zap.String("engagementID", engagementID), zap.Float64("finalPrice", finalPrice))
	return eng, nil
}

// ConfirmPayment is the client acknowledging the professional was paid.
func (s *DefaultEngagementService) ConfirmPayment(ctx context.Context, actor models.Actor, engagementID, paymentProof string) (*models.ServiceEngagement, error) {
	current, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.ClientID {
		return nil, utils.NewFault(utils.FaultForbidden,
			"only the client can confirm payment for engagement %s", engagementID)
	}

	now := s.Now().UTC()
	upd := engagementRepo.TransitionUpdate{
		Change: models.StatusChange{
			From:      models.EngagementCompleted,
			To:        models.EngagementPaid,
			Timestamp: now,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		},
		PaidAt: &now,
	}
	if paymentProof != "" {
		upd.PaymentProof = &paymentProof
	}

	eng, err := s.Repo.Transition(ctx, engagementID, []models.EngagementStatus{models.EngagementCompleted}, upd)
	if errors.Is(err, engagementRepo.ErrNoMatch) {
		return s.replayOrFault(ctx, engagementID, models.EngagementPaid, "paid")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	s.Notifier.Notify(ctx, eng.ProfessionalID, "Payment confirmed",
		fmt.Sprintf("%s confirmed the payment for %s.", eng.ClientName, eng.ServiceType),
		"engagement", "/engagements/"+eng.ID)
	return eng, nil
}

// Cancel aborts the engagement. Completed and paid work is immutable; a
// replayed cancel succeeds without effect.
func (s *DefaultEngagementService) Cancel(ctx context.Context, actor models.Actor, engagementID, note string) (*models.ServiceEngagement, error) {
	current, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if !current.PartyOf(actor.ID) {
		return nil, utils.NewFault(utils.FaultForbidden,
			"user %s is not a party to engagement %s", actor.ID, engagementID)
	}
	switch {
	case current.Status == models.EngagementCancelled:
		return current, nil
	case current.Status.Terminal() || current.Status == models.EngagementCompleted:
		return nil, utils.NewFault(utils.FaultImmutable,
			"engagement %s is %s and can no longer be cancelled", engagementID, current.Status)
	}

	now := s.Now().UTC()
	upd := engagementRepo.TransitionUpdate{
		Change: models.StatusChange{
			From:      current.Status,
			To:        models.EngagementCancelled,
			Timestamp: now,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Note:      note,
		},
		CancelledAt: &now,
	}
	if note != "" {
		upd.CancellationNote = &note
	}

	eng, err := s.Repo.Transition(ctx, engagementID,
		[]models.EngagementStatus{models.EngagementPending, models.EngagementAccepted, models.EngagementScheduled, models.EngagementInProgress},
		upd)
	if errors.Is(err, engagementRepo.ErrNoMatch) {
		return s.replayOrFault(ctx, engagementID, models.EngagementCancelled, "cancelled")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel engagement: %w", err)
	}

	otherID, _, _ := eng.OtherParty(actor.ID)
	s.Notifier.Notify(ctx, otherID, "Engagement cancelled",
		fmt.Sprintf("The %s engagement on %s was cancelled by %s.", eng.ServiceType, eng.ScheduledDate, actor.Name),
		"engagement", "/engagements/"+eng.ID)
	if actor.ID == eng.ClientID {
		s.Notifier.Notify(ctx, eng.ProfessionalID, "Message from "+actor.Name, note,
			"message", "/engagements/"+eng.ID)
	}

	utils.GetLogger().Info("engagement cancelled",
		zap.String("engagementID", engagementID), zap.String("actorID", actor.ID))
	return eng, nil
}

// MarkScheduled moves an accepted engagement to scheduled when the reminder
// fires. The reminder notification is delivered at most once even when the
// queue retries the task.
func (s *DefaultEngagementService) MarkScheduled(ctx context.Context, engagementID string) (*models.ServiceEngagement, error) {
	now := s.Now().UTC()
	eng, err := s.Repo.Transition(ctx, engagementID, []models.EngagementStatus{models.EngagementAccepted}, engagementRepo.TransitionUpdate{
		Change: models.StatusChange{
			From:      models.EngagementAccepted,
			To:        models.EngagementScheduled,
			Timestamp: now,
			ActorID:   "system",
			ActorName: "system",
		},
	})
	if errors.Is(err, engagementRepo.ErrNoMatch) {
		return s.replayOrFault(ctx, engagementID, models.EngagementScheduled, "scheduled")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to schedule engagement: %w", err)
	}

	if fresh, err := s.Repo.MarkNotified(ctx, engagementID, "reminder", now); err == nil && fresh {
		s.Notifier.Notify(ctx, eng.ClientID, "Upcoming service",
			fmt.Sprintf("Your %s service with %s starts at %s.", eng.ServiceType, eng.ProfessionalName, eng.ScheduledTime),
			"engagement", "/engagements/"+eng.ID)
		s.Notifier.Notify(ctx, eng.ProfessionalID, "Upcoming service",
			fmt.Sprintf("Your %s service for %s starts at %s.", eng.ServiceType, eng.ClientName, eng.ScheduledTime),
			"engagement", "/engagements/"+eng.ID)
	}
	return eng, nil
}

// SweepDueReminders scans accepted engagements scheduled around the current
// date and marks those inside the reminder window. Lost transitions to a
// concurrent worker are skipped.
func (s *DefaultEngagementService) SweepDueReminders(ctx context.Context) (int, error) {
	now := s.Now()
	// Scheduled dates are wall-clock dates in the professional's timezone,
	// which can lag the server clock by a day, so yesterday stays in scope.
	dates := []string{
		now.AddDate(0, 0, -1).Format("2006-01-02"),
		now.Format("2006-01-02"),
		now.AddDate(0, 0, 1).Format("2006-01-02"),
	}

	due, err := s.Repo.ListAcceptedUnreminded(ctx, dates)
	if err != nil {
		return 0, fmt.Errorf("failed to list unreminded engagements: %w", err)
	}

	moved := 0
	for i := range due {
		scheduledAt, err := s.scheduledInstant(ctx, &due[i])
		if err != nil {
			continue
		}
		if now.Before(scheduledAt.Add(-time.Duration(s.Policy.ReminderLeadMinutes) * time.Minute)) {
			continue
		}
		if _, err := s.MarkScheduled(ctx, due[i].ID); err != nil {
			if !utils.IsFault(err, utils.FaultInvalidState) {
				utils.GetLogger().Warn("reminder sweep transition failed",
					zap.String("engagementID", due[i].ID), zap.Error(err))
			}
			continue
		}
		moved++
	}
	return moved, nil
}

// GetByID returns the engagement to one of its parties.
func (s *DefaultEngagementService) GetByID(ctx context.Context, actor models.Actor, engagementID string) (*models.ServiceEngagement, error) {
	eng, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if !eng.PartyOf(actor.ID) {
		return nil, utils.NewFault(utils.FaultForbidden,
			"user %s is not a party to engagement %s", actor.ID, engagementID)
	}
	return eng, nil
}

func (s *DefaultEngagementService) ListByUser(ctx context.Context, userID, role string) ([]models.ServiceEngagement, error) {
	if role == "professional" {
		return s.Repo.ListByProfessional(ctx, userID)
	}
	return s.Repo.ListByClient(ctx, userID)
}

// scheduleReminder enqueues the delayed reminder for an accepted engagement.
// Failures are logged and left to the fallback sweep.
func (s *DefaultEngagementService) scheduleReminder(ctx context.Context, eng *models.ServiceEngagement) {
	if s.Reminders == nil {
		return
	}
	scheduledAt, err := s.scheduledInstant(ctx, eng)
	if err != nil {
		utils.GetLogger().Warn("cannot schedule reminder", zap.String("engagementID", eng.ID), zap.Error(err))
		return
	}
	fireAt := scheduledAt.Add(-time.Duration(s.Policy.ReminderLeadMinutes) * time.Minute)
	if fireAt.Before(s.Now()) {
		fireAt = s.Now()
	}
	if err := s.Reminders.ScheduleReminder(ctx, eng.ID, fireAt); err != nil {
		utils.GetLogger().Warn("reminder enqueue failed", zap.String("engagementID", eng.ID), zap.Error(err))
	}
}

// scheduledInstant resolves the engagement's wall-clock schedule in the
// professional's timezone.
func (s *DefaultEngagementService) scheduledInstant(ctx context.Context, eng *models.ServiceEngagement) (time.Time, error) {
	tz := s.Policy.DefaultTimezone
	if s.Scheduler != nil {
		if settings, err := s.Scheduler.GetSettings(ctx, eng.ProfessionalID); err == nil && settings != nil && settings.Timezone != "" {
			tz = settings.Timezone
		}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	at, err := utils.ComposeLocal(eng.ScheduledDate, eng.ScheduledTime, loc)
	if err != nil {
		return time.Time{}, utils.NewFault(utils.FaultInvalidState,
			"engagement %s has an unparseable schedule %s %s", eng.ID, eng.ScheduledDate, eng.ScheduledTime)
	}
	return at, nil
}

// replayOrFault distinguishes an idempotent replay from an invalid transition
// after a guarded update found no match.
func (s *DefaultEngagementService) replayOrFault(ctx context.Context, engagementID string, want models.EngagementStatus, verb string) (*models.ServiceEngagement, error) {
	current, err := s.mustGet(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if current.Status == want {
		return current, nil
	}
	return nil, utils.NewFault(utils.FaultInvalidState,
		"engagement %s cannot be %s from status %s", engagementID, verb, current.Status)
}

func (s *DefaultEngagementService) mustGet(ctx context.Context, engagementID string) (*models.ServiceEngagement, error) {
	eng, err := s.Repo.GetByID(ctx, engagementID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch engagement: %w", err)
	}
	if eng == nil {
		return nil, utils.NewFault(utils.FaultNotFound, "engagement %s not found", engagementID)
	}
	return eng, nil
}
