package engagement

import (
	"context"
	"sync"
	"testing"
	"time"

	engagementRepo "serviflex/database/repository/engagement"
	"serviflex/models"
	"serviflex/utils"
)

type memEngagementRepo struct {
	mu          sync.Mutex
	engagements map[string]*models.ServiceEngagement
}

func newMemEngagementRepo() *memEngagementRepo {
	return &memEngagementRepo{engagements: make(map[string]*models.ServiceEngagement)}
}

func (r *memEngagementRepo) Create(ctx context.Context, eng *models.ServiceEngagement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *eng
	r.engagements[eng.ID] = &cp
	return nil
}

func (r *memEngagementRepo) GetByID(ctx context.Context, id string) (*models.ServiceEngagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eng, ok := r.engagements[id]
	if !ok {
		return nil, nil
	}
	cp := *eng
	return &cp, nil
}

func (r *memEngagementRepo) ListByClient(ctx context.Context, clientID string) ([]models.ServiceEngagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceEngagement
	for _, eng := range r.engagements {
		if eng.ClientID == clientID {
			out = append(out, *eng)
		}
	}
	return out, nil
}

func (r *memEngagementRepo) ListByProfessional(ctx context.Context, professionalID string) ([]models.ServiceEngagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceEngagement
	for _, eng := range r.engagements {
		if eng.ProfessionalID == professionalID {
			out = append(out, *eng)
		}
	}
	return out, nil
}

func (r *memEngagementRepo) Transition(ctx context.Context, id string, from []models.EngagementStatus, upd engagementRepo.TransitionUpdate) (*models.ServiceEngagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eng, ok := r.engagements[id]
	if !ok {
		return nil, engagementRepo.ErrNoMatch
	}
	matched := false
	for _, s := range from {
		if eng.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return nil, engagementRepo.ErrNoMatch
	}

	eng.Status = upd.Change.To
	eng.StatusHistory = append(eng.StatusHistory, upd.Change)
	if upd.AcceptedAt != nil {
		eng.AcceptedAt = upd.AcceptedAt
	}
	if upd.StartedAt != nil {
		eng.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		eng.CompletedAt = upd.CompletedAt
	}
	if upd.PaidAt != nil {
		eng.PaidAt = upd.PaidAt
	}
	if upd.CancelledAt != nil {
		eng.CancelledAt = upd.CancelledAt
	}
	if upd.FinalPrice != nil {
		eng.FinalPrice = *upd.FinalPrice
	}
	if upd.PayoutKey != nil {
		eng.PayoutKey = *upd.PayoutKey
	}
	if upd.PaymentProof != nil {
		eng.PaymentProof = *upd.PaymentProof
	}
	if upd.CancellationNote != nil {
		eng.CancellationNote = *upd.CancellationNote
	}
	if upd.ArrivalLocation != nil {
		eng.ArrivalLocation = upd.ArrivalLocation
	}
	cp := *eng
	return &cp, nil
}

func (r *memEngagementRepo) MarkNotified(ctx context.Context, id, slot string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eng, ok := r.engagements[id]
	if !ok {
		return false, nil
	}
	var field **time.Time
	switch slot {
	case "acceptance":
		field = &eng.Notifications.Acceptance
	case "reminder":
		field = &eng.Notifications.Reminder
	case "completion":
		field = &eng.Notifications.Completion
	default:
		return false, nil
	}
	if *field != nil {
		return false, nil
	}
	stamp := at
	*field = &stamp
	return true, nil
}

func (r *memEngagementRepo) ActiveWindows(ctx context.Context, professionalID, date string) ([]models.BookingWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BookingWindow
	for _, eng := range r.engagements {
		if eng.ProfessionalID != professionalID || eng.ScheduledDate != date {
			continue
		}
		switch eng.Status {
		case models.EngagementPending, models.EngagementAccepted, models.EngagementScheduled, models.EngagementInProgress:
		default:
			continue
		}
		start, err := utils.ParseClock(eng.ScheduledTime)
		if err != nil {
			continue
		}
		out = append(out, models.BookingWindow{EngagementID: eng.ID, Start: start, End: start + eng.DurationMinutes})
	}
	return out, nil
}

func (r *memEngagementRepo) ListAcceptedUnreminded(ctx context.Context, dates []string) ([]models.ServiceEngagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceEngagement
	for _, eng := range r.engagements {
		if eng.Status != models.EngagementAccepted || eng.Notifications.Reminder != nil {
			continue
		}
		for _, d := range dates {
			if eng.ScheduledDate == d {
				out = append(out, *eng)
				break
			}
		}
	}
	return out, nil
}

type fakeScheduler struct {
	available bool
	settings  *models.AvailabilitySettings
}

func (f *fakeScheduler) IsAvailable(ctx context.Context, professionalID, date, start string, durationMinutes int, excludeEngagementID string) (bool, error) {
	return f.available, nil
}

func (f *fakeScheduler) GetSettings(ctx context.Context, professionalID string) (*models.AvailabilitySettings, error) {
	return f.settings, nil
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled []time.Time
}

func (f *fakeReminders) ScheduleReminder(ctx context.Context, engagementID string, fireAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, fireAt)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, title, message, kind, link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind+":"+userID)
}

func (f *fakeNotifier) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(ctx context.Context, notificationID string) error { return nil }
func (f *fakeNotifier) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	return nil
}

var (
	client = models.Actor{ID: "client-1", Name: "Ana", Email: "ana@example.com"}
	pro    = models.Actor{ID: "pro-1", Name: "Bruno", Email: "bruno@example.com"}
)

type fixture struct {
	svc       *DefaultEngagementService
	repo      *memEngagementRepo
	reminders *fakeReminders
	notifier  *fakeNotifier
}

func newFixture(now time.Time) *fixture {
	repo := newMemEngagementRepo()
	reminders := &fakeReminders{}
	notifier := &fakeNotifier{}
	svc := NewDefaultEngagementService(repo, &fakeScheduler{available: true}, reminders, notifier, Policy{
		GraceMinutes:        15,
		ReminderLeadMinutes: 10,
		DefaultTimezone:     "UTC",
	})
	svc.Now = func() time.Time { return now }
	return &fixture{svc: svc, repo: repo, reminders: reminders, notifier: notifier}
}

func createPending(t *testing.T, f *fixture) *models.ServiceEngagement {
	t.Helper()
	eng, err := f.svc.Create(context.Background(), client, CreateRequest{
		ProfessionalID:   pro.ID,
		ProfessionalName: pro.Name,
		ServiceType:      "plumbing",
		EstimatedPrice:   120,
		ScheduledDate:    "2026-09-10",
		ScheduledTime:    "10:00",
		DurationMinutes:  90,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return eng
}

func TestFullLifecycle(t *testing.T) {
	now := time.Date(2026, 9, 10, 9, 50, 0, 0, time.UTC)
	f := newFixture(now)
	ctx := context.Background()

	eng := createPending(t, f)
	if eng.Status != models.EngagementPending {
		t.Fatalf("created status = %s, want pending", eng.Status)
	}

	eng, err := f.svc.Accept(ctx, pro, eng.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if eng.Status != models.EngagementAccepted || eng.AcceptedAt == nil {
		t.Fatalf("after accept: status=%s acceptedAt=%v", eng.Status, eng.AcceptedAt)
	}
	if len(f.reminders.scheduled) != 1 {
		t.Errorf("reminders scheduled = %d, want 1", len(f.reminders.scheduled))
	}

	eng, err = f.svc.Start(ctx, pro, eng.ID, &models.GeoPoint{Lat: -23.55, Lng: -46.63})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if eng.Status != models.EngagementInProgress || eng.ArrivalLocation == nil {
		t.Fatalf("after start: status=%s arrival=%v", eng.Status, eng.ArrivalLocation)
	}

	final := 150.0
	eng, err = f.svc.Complete(ctx, pro, eng.ID, CompleteRequest{FinalPrice: &final, PayoutKey: "bruno@pix"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if eng.Status != models.EngagementCompleted || eng.FinalPrice != 150 || eng.PayoutKey != "bruno@pix" {
		t.Fatalf("after complete: status=%s finalPrice=%v payoutKey=%q", eng.Status, eng.FinalPrice, eng.PayoutKey)
	}

	eng, err = f.svc.ConfirmPayment(ctx, client, eng.ID, "receipt-123")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if eng.Status != models.EngagementPaid || eng.PaidAt == nil {
		t.Fatalf("after payment: status=%s paidAt=%v", eng.Status, eng.PaidAt)
	}

	// The audit trail follows the full path and its tail matches the status.
	want := []models.EngagementStatus{
		models.EngagementPending, models.EngagementAccepted,
		models.EngagementInProgress, models.EngagementCompleted, models.EngagementPaid,
	}
	if len(eng.StatusHistory) != len(want) {
		t.Fatalf("history length = %d, want %d", len(eng.StatusHistory), len(want))
	}
	for i, s := range want {
		if eng.StatusHistory[i].To != s {
			t.Errorf("history[%d].To = %s, want %s", i, eng.StatusHistory[i].To, s)
		}
	}
	if eng.CurrentStatus() != eng.Status {
		t.Errorf("CurrentStatus() = %s, status = %s", eng.CurrentStatus(), eng.Status)
	}
}

func TestCreateRejectsUnavailableSlot(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	f.svc.Scheduler = &fakeScheduler{available: false}

	_, err := f.svc.Create(context.Background(), client, CreateRequest{
		ProfessionalID: pro.ID,
		ServiceType:    "plumbing",
		ScheduledDate:  "2026-09-10",
		ScheduledTime:  "10:00",
	})
	if !utils.IsFault(err, utils.FaultConflict) {
		t.Errorf("expected conflict fault, got %v", err)
	}
}

func TestAcceptAuthorization(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	eng := createPending(t, f)

	if _, err := f.svc.Accept(context.Background(), client, eng.ID); !utils.IsFault(err, utils.FaultForbidden) {
		t.Errorf("client accepting: expected forbidden fault, got %v", err)
	}
	stranger := models.Actor{ID: "stranger"}
	if _, err := f.svc.Accept(context.Background(), stranger, eng.ID); !utils.IsFault(err, utils.FaultForbidden) {
		t.Errorf("stranger accepting: expected forbidden fault, got %v", err)
	}
}

func TestAcceptReplayIsNoOp(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	eng := createPending(t, f)

	first, err := f.svc.Accept(ctx, pro, eng.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	second, err := f.svc.Accept(ctx, pro, eng.ID)
	if err != nil {
		t.Fatalf("replayed Accept: %v", err)
	}
	if len(second.StatusHistory) != len(first.StatusHistory) {
		t.Errorf("replay grew the history: %d vs %d", len(second.StatusHistory), len(first.StatusHistory))
	}
	if second.Status != models.EngagementAccepted {
		t.Errorf("status after replay = %s", second.Status)
	}
}

func TestStartGracePeriod(t *testing.T) {
	ctx := context.Background()

	// 09:44 is one minute before the 15-minute grace window opens.
	f := newFixture(time.Date(2026, 9, 10, 9, 44, 0, 0, time.UTC))
	eng := createPending(t, f)
	if _, err := f.svc.Accept(ctx, pro, eng.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.svc.Start(ctx, pro, eng.ID, nil); !utils.IsFault(err, utils.FaultTooEarly) {
		t.Fatalf("early start: expected tooEarly fault, got %v", err)
	}

	// At 09:45 the window opens.
	f.svc.Now = func() time.Time { return time.Date(2026, 9, 10, 9, 45, 0, 0, time.UTC) }
	if _, err := f.svc.Start(ctx, pro, eng.ID, nil); err != nil {
		t.Fatalf("start at grace boundary: %v", err)
	}

	// Late starts have no upper bound.
	f2 := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	eng2 := createPending(t, f2)
	if _, err := f2.svc.Accept(ctx, pro, eng2.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	f2.svc.Now = func() time.Time { return time.Date(2026, 9, 12, 8, 0, 0, 0, time.UTC) }
	if _, err := f2.svc.Start(ctx, pro, eng2.ID, nil); err != nil {
		t.Fatalf("late start: %v", err)
	}
}

func TestCompleteDefaultsToEstimate(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()
	eng := createPending(t, f)
	if _, err := f.svc.Accept(ctx, pro, eng.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.svc.Start(ctx, pro, eng.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done, err := f.svc.Complete(ctx, pro, eng.ID, CompleteRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.FinalPrice != eng.EstimatedPrice {
		t.Errorf("final price = %v, want estimate %v", done.FinalPrice, eng.EstimatedPrice)
	}
}

func TestConfirmPaymentIsClientOnly(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()
	eng := createPending(t, f)
	f.svc.Accept(ctx, pro, eng.ID)
	f.svc.Start(ctx, pro, eng.ID, nil)
	f.svc.Complete(ctx, pro, eng.ID, CompleteRequest{})

	if _, err := f.svc.ConfirmPayment(ctx, pro, eng.ID, ""); !utils.IsFault(err, utils.FaultForbidden) {
		t.Errorf("professional confirming payment: expected forbidden fault, got %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, client, eng.ID, ""); err != nil {
		t.Errorf("client confirming payment: %v", err)
	}
}

func TestCancelRules(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Pending work cancels freely and the replay is a no-op.
	eng := createPending(t, f)
	cancelled, err := f.svc.Cancel(ctx, client, eng.ID, "found someone closer")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.EngagementCancelled || cancelled.CancellationNote == "" {
		t.Fatalf("after cancel: status=%s note=%q", cancelled.Status, cancelled.CancellationNote)
	}
	if _, err := f.svc.Cancel(ctx, client, eng.ID, ""); err != nil {
		t.Errorf("replayed cancel: %v", err)
	}

	// Completed work is immutable.
	f2 := newFixture(time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))
	eng2 := createPending(t, f2)
	f2.svc.Accept(ctx, pro, eng2.ID)
	f2.svc.Start(ctx, pro, eng2.ID, nil)
	f2.svc.Complete(ctx, pro, eng2.ID, CompleteRequest{})
	if _, err := f2.svc.Cancel(ctx, client, eng2.ID, ""); !utils.IsFault(err, utils.FaultImmutable) {
		t.Errorf("cancelling completed work: expected immutable fault, got %v", err)
	}

	// Strangers cannot cancel.
	f3 := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	eng3 := createPending(t, f3)
	stranger := models.Actor{ID: "stranger"}
	if _, err := f3.svc.Cancel(ctx, stranger, eng3.ID, ""); !utils.IsFault(err, utils.FaultForbidden) {
		t.Errorf("stranger cancelling: expected forbidden fault, got %v", err)
	}

	// A cancelling client always messages the professional, note or not.
	f4 := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	eng4 := createPending(t, f4)
	before := len(f4.notifier.sent)
	if _, err := f4.svc.Cancel(ctx, client, eng4.ID, ""); err != nil {
		t.Fatalf("cancel without note: %v", err)
	}
	messages := 0
	for _, s := range f4.notifier.sent[before:] {
		if s == "message:"+pro.ID {
			messages++
		}
	}
	if messages != 1 {
		t.Errorf("message notifications to professional = %d, want 1", messages)
	}
}

func TestMarkScheduledNotifiesOnce(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	eng := createPending(t, f)
	if _, err := f.svc.Accept(ctx, pro, eng.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	before := len(f.notifier.sent)
	moved, err := f.svc.MarkScheduled(ctx, eng.ID)
	if err != nil {
		t.Fatalf("MarkScheduled: %v", err)
	}
	if moved.Status != models.EngagementScheduled {
		t.Fatalf("status = %s, want scheduled", moved.Status)
	}
	afterFirst := len(f.notifier.sent)
	if afterFirst != before+2 {
		t.Errorf("reminder notifications = %d, want 2", afterFirst-before)
	}

	// A queue retry replays the task; the notification must not repeat.
	if _, err := f.svc.MarkScheduled(ctx, eng.ID); err != nil {
		t.Fatalf("replayed MarkScheduled: %v", err)
	}
	if len(f.notifier.sent) != afterFirst {
		t.Errorf("replay re-sent reminder notifications")
	}
}

func TestSweepDueReminders(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 10, 9, 55, 0, 0, time.UTC))
	ctx := context.Background()
	eng := createPending(t, f) // scheduled 2026-09-10 10:00, lead 10 min
	if _, err := f.svc.Accept(ctx, pro, eng.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	moved, err := f.svc.SweepDueReminders(ctx)
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if moved != 1 {
		t.Fatalf("sweep moved %d engagements, want 1", moved)
	}
	got, _ := f.repo.GetByID(ctx, eng.ID)
	if got.Status != models.EngagementScheduled {
		t.Errorf("status = %s, want scheduled", got.Status)
	}

	// Nothing left to move on the second pass.
	moved, err = f.svc.SweepDueReminders(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if moved != 0 {
		t.Errorf("second sweep moved %d engagements", moved)
	}
}

func TestSweepDueRemindersCrossesServerMidnight(t *testing.T) {
	// 00:55 UTC on the 11th is 21:55 of the 10th in Sao Paulo, five minutes
	// after the reminder for a 22:00 engagement came due. The engagement's
	// scheduled date is server-yesterday but must stay in the sweep's scope.
	f := newFixture(time.Date(2026, 9, 11, 0, 55, 0, 0, time.UTC))
	f.svc.Scheduler = &fakeScheduler{
		available: true,
		settings:  &models.AvailabilitySettings{Timezone: "America/Sao_Paulo"},
	}
	ctx := context.Background()

	eng, err := f.svc.Create(ctx, client, CreateRequest{
		ProfessionalID:   pro.ID,
		ProfessionalName: pro.Name,
		ServiceType:      "plumbing",
		EstimatedPrice:   120,
		ScheduledDate:    "2026-09-10",
		ScheduledTime:    "22:00",
		DurationMinutes:  60,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Accept(ctx, pro, eng.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	moved, err := f.svc.SweepDueReminders(ctx)
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if moved != 1 {
		t.Fatalf("sweep moved %d engagements, want 1", moved)
	}
	got, _ := f.repo.GetByID(ctx, eng.ID)
	if got.Status != models.EngagementScheduled {
		t.Errorf("status = %s, want scheduled", got.Status)
	}
}

func TestGetByIDRestrictedToParties(t *testing.T) {
	f := newFixture(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	eng := createPending(t, f)

	if _, err := f.svc.GetByID(ctx, client, eng.ID); err != nil {
		t.Errorf("client read: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, pro, eng.ID); err != nil {
		t.Errorf("professional read: %v", err)
	}
	stranger := models.Actor{ID: "stranger"}
	if _, err := f.svc.GetByID(ctx, stranger, eng.ID); !utils.IsFault(err, utils.FaultForbidden) {
		t.Errorf("stranger read: expected forbidden fault, got %v", err)
	}
	if _, err := f.svc.GetByID(ctx, client, "missing"); !utils.IsFault(err, utils.FaultNotFound) {
		t.Errorf("missing engagement: expected notFound fault, got %v", err)
	}
}
