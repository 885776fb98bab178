package escrow

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	escrowRepo "serviflex/database/repository/escrow"
	"serviflex/models"
	"serviflex/services/payment"
	"serviflex/utils"
)

type memEscrowRepo struct {
	mu       sync.Mutex
	payments map[string]*models.EscrowPayment
}

func newMemEscrowRepo() *memEscrowRepo {
	return &memEscrowRepo{payments: make(map[string]*models.EscrowPayment)}
}

func (r *memEscrowRepo) Create(ctx context.Context, p *models.EscrowPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.EngagementID == p.EngagementID {
			return escrowRepo.ErrDuplicate
		}
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memEscrowRepo) GetByID(ctx context.Context, id string) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) GetByEngagement(ctx context.Context, engagementID string) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.EngagementID == engagementID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memEscrowRepo) ListByClient(ctx context.Context, clientID string) ([]models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EscrowPayment
	for _, p := range r.payments {
		if p.ClientID == clientID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memEscrowRepo) ListByProfessional(ctx context.Context, professionalID string) ([]models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EscrowPayment
	for _, p := range r.payments {
		if p.ProfessionalID == professionalID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memEscrowRepo) MarkFunded(ctx context.Context, id, transactionRef string, at time.Time) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || (p.Status != models.EscrowPending && p.Status != models.EscrowProcessing) {
		return nil, escrowRepo.ErrNoMatch
	}
	p.Status = models.EscrowHeld
	p.TransactionRef = transactionRef
	p.FundedAt = &at
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) SetCompletionFlag(ctx context.Context, id string, byClient bool, at time.Time) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != models.EscrowHeld {
		return nil, escrowRepo.ErrNoMatch
	}
	if byClient {
		p.CompletedByClient = true
	} else {
		p.CompletedByProfessional = true
	}
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) Release(ctx context.Context, id string, at time.Time) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != models.EscrowHeld {
		return nil, escrowRepo.ErrNoMatch
	}
	p.Status = models.EscrowReleased
	p.ReleasedAt = &at
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) Refund(ctx context.Context, id, reason string, at time.Time) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != models.EscrowHeld {
		return nil, escrowRepo.ErrNoMatch
	}
	p.Status = models.EscrowRefunded
	p.RefundReason = reason
	p.RefundedAt = &at
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) Cancel(ctx context.Context, id string, at time.Time) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || (p.Status != models.EscrowPending && p.Status != models.EscrowProcessing) {
		return nil, escrowRepo.ErrNoMatch
	}
	p.Status = models.EscrowCancelled
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) ListAutoReleasable(ctx context.Context, now time.Time) ([]models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EscrowPayment
	for _, p := range r.payments {
		if p.Status == models.EscrowHeld && !p.AutoReleaseDate.After(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeProcessor struct{ calls int }

func (f *fakeProcessor) InitiatePayment(ctx context.Context, req payment.PaymentRequest) (*payment.IntentRef, error) {
	f.calls++
	return &payment.IntentRef{Reference: "pi_test_" + req.PaymentID, ClientSecret: "secret"}, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	users []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, title, message, kind, link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, title)
	f.users = append(f.users, userID)
}

func (f *fakeNotifier) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(ctx context.Context, notificationID string) error { return nil }
func (f *fakeNotifier) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	return nil
}

func testPolicy() Policy {
	return Policy{FeePercent: 10, AutoReleaseDays: 7, MinAmount: 10, MaxAmount: 50000}
}

func newTestService() (*DefaultEscrowService, *memEscrowRepo) {
	repo := newMemEscrowRepo()
	svc := NewDefaultEscrowService(repo, &fakeProcessor{}, &fakeNotifier{}, testPolicy())
	return svc, repo
}

func openHeld(t *testing.T, svc *DefaultEscrowService, amount float64) *models.EscrowPayment {
	t.Helper()
	ctx := context.Background()
	p, err := svc.Open(ctx, OpenRequest{
		EngagementID:   "eng-1",
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		Amount:         amount,
		PaymentMethod:  "pix",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	held, err := svc.ConfirmFunding(ctx, p.ID, "tx-1")
	if err != nil {
		t.Fatalf("ConfirmFunding: %v", err)
	}
	return held
}

func TestOpenSplitsFee(t *testing.T) {
	svc, _ := newTestService()
	for _, amount := range []float64{100, 33.33, 10, 49999.99} {
		repo := newMemEscrowRepo()
		svc.Repo = repo
		p, err := svc.Open(context.Background(), OpenRequest{
			EngagementID:   "eng-fee",
			ClientID:       "client-1",
			ProfessionalID: "pro-1",
			Amount:         amount,
		})
		if err != nil {
			t.Fatalf("Open(%v): %v", amount, err)
		}
		if p.PlatformFeeAmount != utils.RoundCents(amount*0.10) {
			t.Errorf("amount %v: fee = %v", amount, p.PlatformFeeAmount)
		}
		if math.Abs(p.PlatformFeeAmount+p.ProfessionalAmount-p.Amount) > 1e-9 {
			t.Errorf("amount %v: fee %v + professional %v != amount", amount, p.PlatformFeeAmount, p.ProfessionalAmount)
		}
		if p.Status != models.EscrowPending {
			t.Errorf("new payment status = %s, want pending", p.Status)
		}
	}
}

func TestOpenRejectsOutOfBounds(t *testing.T) {
	svc, _ := newTestService()
	for _, amount := range []float64{9.99, 0, -5, 50000.01} {
		_, err := svc.Open(context.Background(), OpenRequest{
			EngagementID:   "eng-bounds",
			ClientID:       "client-1",
			ProfessionalID: "pro-1",
			Amount:         amount,
		})
		if !utils.IsFault(err, utils.FaultInvalidAmount) {
			t.Errorf("Open(%v): expected invalidAmount fault, got %v", amount, err)
		}
	}
}

func TestOpenIsIdempotentPerEngagement(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	req := OpenRequest{EngagementID: "eng-1", ClientID: "client-1", ProfessionalID: "pro-1", Amount: 100}

	first, err := svc.Open(ctx, req)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	second, err := svc.Open(ctx, req)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second Open created a new payment: %s vs %s", first.ID, second.ID)
	}
}

func TestOpenConcurrentSameEngagement(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	req := OpenRequest{EngagementID: "eng-race", ClientID: "client-1", ProfessionalID: "pro-1", Amount: 100}

	var wg sync.WaitGroup
	results := make([]*models.EscrowPayment, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Open(ctx, req)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Open %d: %v", i, err)
		}
	}
	// The loser of the insert race gets the winner's record, not an error.
	if results[0].ID != results[1].ID {
		t.Errorf("concurrent Opens created distinct payments: %s vs %s", results[0].ID, results[1].ID)
	}
	if n := len(repo.payments); n != 1 {
		t.Errorf("repo holds %d payments, want 1", n)
	}
}

func TestConfirmFundingReplay(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	held := openHeld(t, svc, 100)

	again, err := svc.ConfirmFunding(ctx, held.ID, "tx-1")
	if err != nil {
		t.Fatalf("replayed ConfirmFunding: %v", err)
	}
	if again.Status != models.EscrowHeld {
		t.Errorf("status = %s, want held_in_escrow", again.Status)
	}

	_, err = svc.ConfirmFunding(ctx, held.ID, "tx-other")
	if !utils.IsFault(err, utils.FaultInvalidState) {
		t.Errorf("funding with a different ref: expected invalidState fault, got %v", err)
	}
}

func TestDualConfirmationReleases(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	held := openHeld(t, svc, 100)

	p, err := svc.ConfirmCompletion(ctx, held.ID, "pro-1")
	if err != nil {
		t.Fatalf("professional confirm: %v", err)
	}
	if p.Status != models.EscrowHeld {
		t.Errorf("after one confirmation status = %s, want held_in_escrow", p.Status)
	}

	p, err = svc.ConfirmCompletion(ctx, held.ID, "client-1")
	if err != nil {
		t.Fatalf("client confirm: %v", err)
	}
	if p.Status != models.EscrowReleased {
		t.Errorf("after both confirmations status = %s, want released", p.Status)
	}
	if p.ReleasedAt == nil {
		t.Error("ReleasedAt not stamped")
	}
}

func TestConfirmCompletionRejectsStranger(t *testing.T) {
	svc, _ := newTestService()
	held := openHeld(t, svc, 100)

	_, err := svc.ConfirmCompletion(context.Background(), held.ID, "stranger")
	if !utils.IsFault(err, utils.FaultForbidden) {
		t.Errorf("expected forbidden fault, got %v", err)
	}
}

func TestConcurrentConfirmationsReleaseOnce(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	held := openHeld(t, svc, 250)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []string{"client-1", "pro-1"} {
		wg.Add(1)
		go func(i int, actor string) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmCompletion(ctx, held.ID, actor)
		}(i, actor)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("confirmation %d failed: %v", i, err)
		}
	}

	final, err := repo.GetByID(ctx, held.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != models.EscrowReleased {
		t.Errorf("final status = %s, want released", final.Status)
	}
}

func TestReleaseRequiresConfirmationsOrDeadline(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	held := openHeld(t, svc, 100)

	_, err := svc.Release(ctx, held.ID)
	if !utils.IsFault(err, utils.FaultInvalidState) {
		t.Fatalf("premature release: expected invalidState fault, got %v", err)
	}

	// Push the deadline into the past and retry.
	repo.mu.Lock()
	repo.payments[held.ID].AutoReleaseDate = time.Now().UTC().Add(-time.Hour)
	repo.mu.Unlock()

	p, err := svc.Release(ctx, held.ID)
	if err != nil {
		t.Fatalf("release after deadline: %v", err)
	}
	if p.Status != models.EscrowReleased {
		t.Errorf("status = %s, want released", p.Status)
	}

	// Releasing a released payment is a no-op.
	if _, err := svc.Release(ctx, held.ID); err != nil {
		t.Errorf("replayed release: %v", err)
	}
}

func TestRefundExcludesRelease(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	held := openHeld(t, svc, 100)

	p, err := svc.Refund(ctx, held.ID, "service not delivered")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if p.Status != models.EscrowRefunded {
		t.Errorf("status = %s, want refunded", p.Status)
	}
	if p.RefundReason != "service not delivered" {
		t.Errorf("reason = %q", p.RefundReason)
	}

	_, err = svc.Release(ctx, held.ID)
	if !utils.IsFault(err, utils.FaultInvalidState) {
		t.Errorf("release after refund: expected invalidState fault, got %v", err)
	}
}

func TestCancelOnlyBeforeCustody(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Open(ctx, OpenRequest{EngagementID: "eng-1", ClientID: "client-1", ProfessionalID: "pro-1", Amount: 100})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cancelled, err := svc.Cancel(ctx, p.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.EscrowCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	svc2, _ := newTestService()
	held := openHeld(t, svc2, 100)
	if _, err := svc2.Cancel(ctx, held.ID); !utils.IsFault(err, utils.FaultInvalidState) {
		t.Errorf("cancelling a held payment: expected invalidState fault, got %v", err)
	}
}

func TestSweepAutoRelease(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	held := openHeld(t, svc, 100)

	n, err := svc.SweepAutoRelease(ctx)
	if err != nil {
		t.Fatalf("SweepAutoRelease: %v", err)
	}
	if n != 0 {
		t.Errorf("sweep released %d payments before the deadline", n)
	}

	repo.mu.Lock()
	repo.payments[held.ID].AutoReleaseDate = time.Now().UTC().Add(-time.Minute)
	repo.mu.Unlock()

	n, err = svc.SweepAutoRelease(ctx)
	if err != nil {
		t.Fatalf("SweepAutoRelease: %v", err)
	}
	if n != 1 {
		t.Errorf("sweep released %d payments, want 1", n)
	}

	final, _ := repo.GetByID(ctx, held.ID)
	if final.Status != models.EscrowReleased {
		t.Errorf("final status = %s, want released", final.Status)
	}
}
