package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	escrowRepo "serviflex/database/repository/escrow"
	"serviflex/models"
	"serviflex/services/notification"
	"serviflex/services/payment"
	"serviflex/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEscrowService is the production implementation of EscrowService.
type DefaultEscrowService struct {
	Repo      escrowRepo.EscrowRepository
	Processor payment.Processor
	Notifier  notification.NotificationService
	Policy    Policy
}

// NewDefaultEscrowService wires the escrow service with its dependencies.
func NewDefaultEscrowService(repo escrowRepo.EscrowRepository, proc payment.Processor, notifier notification.NotificationService, policy Policy) *DefaultEscrowService {
	return &DefaultEscrowService{Repo: repo, Processor: proc, Notifier: notifier, Policy: policy}
}

// Open creates the escrow record, splits the platform fee, and initiates the
// charge with the payment processor. A second Open for the same engagement
// returns the record created by the first.
func (s *DefaultEscrowService) Open(ctx context.Context, req OpenRequest) (*models.EscrowPayment, error) {
	logger := utils.GetLogger()

	if req.Amount < s.Policy.MinAmount || req.Amount > s.Policy.MaxAmount {
		return nil, utils.NewFault(utils.FaultInvalidAmount,
			"amount %.2f outside allowed range [%.2f, %.2f]",
			req.Amount, s.Policy.MinAmount, s.Policy.MaxAmount)
	}

	if existing, err := s.Repo.GetByEngagement(ctx, req.EngagementID); err != nil {
		return nil, fmt.Errorf("failed to check existing escrow: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	fee := utils.RoundCents(req.Amount * s.Policy.FeePercent / 100)
	professional := utils.RoundCents(req.Amount - fee)

	p := &models.EscrowPayment{
		ID:                    uuid.New().String(),
		EngagementID:          req.EngagementID,
		ClientID:              req.ClientID,
		ProfessionalID:        req.ProfessionalID,
		Amount:                req.Amount,
		PlatformFeePercentage: s.Policy.FeePercent,
		PlatformFeeAmount:     fee,
		ProfessionalAmount:    professional,
		Currency:              req.Currency,
		Status:                models.EscrowPending,
		PaymentMethod:         req.PaymentMethod,
		AutoReleaseDate:       now.AddDate(0, 0, s.Policy.AutoReleaseDays),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.Repo.Create(ctx, p); err != nil {
		if errors.Is(err, escrowRepo.ErrDuplicate) {
			// Lost the insert race to a concurrent Open for the same
			// engagement; return its record.
			return s.GetByEngagement(ctx, req.EngagementID)
		}
		return nil, fmt.Errorf("failed to create escrow payment: %w", err)
	}

	ref, err := s.Processor.InitiatePayment(ctx, payment.PaymentRequest{
		PaymentID:    p.ID,
		EngagementID: p.EngagementID,
		ClientID:     p.ClientID,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Method:       p.PaymentMethod,
		Description:  fmt.Sprintf("Escrow for engagement %s", p.EngagementID),
	})
	if err != nil {
		// The record stays pending; the client can retry funding later.
		logger.Warn("payment initiation failed", zap.String("paymentID", p.ID), zap.Error(err))
	} else {
		p.TransactionRef = ref.Reference
	}

	logger.Info("escrow opened",
		zap.String("paymentID", p.ID),
		zap.String("engagementID", p.EngagementID),
		zap.Float64("amount", p.Amount))
	return p, nil
}

// ConfirmFunding transitions the payment into custody. Replays carrying the
// transaction ref already on a held payment succeed without effect.
func (s *DefaultEscrowService) ConfirmFunding(ctx context.Context, paymentID, transactionRef string) (*models.EscrowPayment, error) {
	now := time.Now().UTC()
	p, err := s.Repo.MarkFunded(ctx, paymentID, transactionRef, now)
	if errors.Is(err, escrowRepo.ErrNoMatch) {
		current, gerr := s.mustGet(ctx, paymentID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == models.EscrowHeld && current.TransactionRef == transactionRef {
			return current, nil
		}
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s cannot be funded from status %s", paymentID, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm funding: %w", err)
	}

	s.Notifier.Notify(ctx, p.ProfessionalID, "Payment secured",
		fmt.Sprintf("The payment of %.2f is held in escrow. You can start the service.", p.Amount),
		"escrow", "/escrow/"+p.ID)

	utils.GetLogger().Info("escrow funded",
		zap.String("paymentID", p.ID),
		zap.String("transactionRef", transactionRef))
	return p, nil
}

// ConfirmCompletion records actorID's sign-off. The actor must be one of the
// two parties; when the second confirmation lands the funds release.
func (s *DefaultEscrowService) ConfirmCompletion(ctx context.Context, paymentID, actorID string) (*models.EscrowPayment, error) {
	current, err := s.mustGet(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var byClient bool
	switch actorID {
	case current.ClientID:
		byClient = true
	case current.ProfessionalID:
		byClient = false
	default:
		return nil, utils.NewFault(utils.FaultForbidden,
			"user %s is not a party to payment %s", actorID, paymentID)
	}

	now := time.Now().UTC()
	p, err := s.Repo.SetCompletionFlag(ctx, paymentID, byClient, now)
	if errors.Is(err, escrowRepo.ErrNoMatch) {
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s is not held in escrow (status %s)", paymentID, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	if !p.BothConfirmed() {
		other := p.ProfessionalID
		if actorID == p.ProfessionalID {
			other = p.ClientID
		}
		s.Notifier.Notify(ctx, other, "Completion confirmed",
			"The other party confirmed the service. Confirm on your side to release the payment.",
			"escrow", "/escrow/"+p.ID)
		return p, nil
	}

	released, err := s.release(ctx, p.ID, now)
	if errors.Is(err, escrowRepo.ErrNoMatch) {
		// A concurrent confirm or the sweep already settled it.
		return s.mustGet(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}
	return released, nil
}

// Release pays out manually. It requires both confirmations or an elapsed
// auto-release deadline.
func (s *DefaultEscrowService) Release(ctx context.Context, paymentID string) (*models.EscrowPayment, error) {
	current, err := s.mustGet(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if current.Status == models.EscrowReleased {
		return current, nil
	}
	if current.Status.Terminal() {
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s was already settled as %s", paymentID, current.Status)
	}
	if current.Status != models.EscrowHeld {
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s cannot be released from status %s", paymentID, current.Status)
	}
	if !current.BothConfirmed() && now.Before(current.AutoReleaseDate) {
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s needs both confirmations or an elapsed auto-release date", paymentID)
	}

	p, err := s.release(ctx, paymentID, now)
	if errors.Is(err, escrowRepo.ErrNoMatch) {
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s was settled concurrently", paymentID)
	}
	return p, err
}

// Refund returns held funds to the client.
func (s *DefaultEscrowService) Refund(ctx context.Context, paymentID, reason string) (*models.EscrowPayment, error) {
	now := time.Now().UTC()
	p, err := s.Repo.Refund(ctx, paymentID, reason, now)
	if errors.Is(err, escrowRepo.ErrNoMatch) {
		current, gerr := s.mustGet(ctx, paymentID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == models.EscrowRefunded {
			return current, nil
		}
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s cannot be refunded from status %s", paymentID, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}

	s.Notifier.Notify(ctx, p.ClientID, "Payment refunded",
		fmt.Sprintf("Your payment of %.2f was refunded: %s", p.Amount, reason),
		"escrow", "/escrow/"+p.ID)
	s.Notifier.Notify(ctx, p.ProfessionalID, "Payment refunded",
		"The escrow payment was refunded to the client.",
		"escrow", "/escrow/"+p.ID)

	utils.GetLogger().Info("escrow refunded",
		zap.String("paymentID", p.ID), zap.String("reason", reason))
	return p, nil
}

// Cancel voids an escrow that never reached custody.
func (s *DefaultEscrowService) Cancel(ctx context.Context, paymentID string) (*models.EscrowPayment, error) {
	now := time.Now().UTC()
	p, err := s.Repo.Cancel(ctx, paymentID, now)
	if errors.Is(err, escrowRepo.ErrNoMatch) {
		current, gerr := s.mustGet(ctx, paymentID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == models.EscrowCancelled {
			return current, nil
		}
		return nil, utils.NewFault(utils.FaultInvalidState,
			"payment %s cannot be cancelled from status %s", paymentID, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel payment: %w", err)
	}
	return p, nil
}

func (s *DefaultEscrowService) GetByID(ctx context.Context, paymentID string) (*models.EscrowPayment, error) {
	return s.mustGet(ctx, paymentID)
}

func (s *DefaultEscrowService) GetByEngagement(ctx context.Context, engagementID string) (*models.EscrowPayment, error) {
	p, err := s.Repo.GetByEngagement(ctx, engagementID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch escrow: %w", err)
	}
	if p == nil {
		return nil, utils.NewFault(utils.FaultNotFound, "no escrow for engagement %s", engagementID)
	}
	return p, nil
}

func (s *DefaultEscrowService) ListByUser(ctx context.Context, userID, role string) ([]models.EscrowPayment, error) {
	if role == "professional" {
		return s.Repo.ListByProfessional(ctx, userID)
	}
	return s.Repo.ListByClient(ctx, userID)
}

// SweepAutoRelease releases every held payment past its deadline. Races with
// manual settlement are tolerated: a lost CAS is skipped, not retried.
func (s *DefaultEscrowService) SweepAutoRelease(ctx context.Context) (int, error) {
	logger := utils.GetLogger()
	now := time.Now().UTC()

	due, err := s.Repo.ListAutoReleasable(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list auto-releasable payments: %w", err)
	}

	released := 0
	for i := range due {
		if _, err := s.release(ctx, due[i].ID, now); err != nil {
			if !errors.Is(err, escrowRepo.ErrNoMatch) {
				logger.Warn("auto release failed", zap.String("paymentID", due[i].ID), zap.Error(err))
			}
			continue
		}
		released++
	}

	if released > 0 {
		logger.Info("auto release sweep finished", zap.Int("released", released))
	}
	return released, nil
}

// release performs the terminal transition and fans out notifications.
func (s *DefaultEscrowService) release(ctx context.Context, paymentID string, at time.Time) (*models.EscrowPayment, error) {
	p, err := s.Repo.Release(ctx, paymentID, at)
	if err != nil {
		if errors.Is(err, escrowRepo.ErrNoMatch) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to release payment: %w", err)
	}

	s.Notifier.Notify(ctx, p.ProfessionalID, "Payment released",
		fmt.Sprintf("You received %.2f for engagement %s.", p.ProfessionalAmount, p.EngagementID),
		"escrow", "/escrow/"+p.ID)
	s.Notifier.Notify(ctx, p.ClientID, "Payment released",
		"The escrow payment was released to the professional.",
		"escrow", "/escrow/"+p.ID)

	utils.GetLogger().Info("escrow released",
		zap.String("paymentID", p.ID),
		zap.Float64("professionalAmount", p.ProfessionalAmount),
		zap.Float64("platformFee", p.PlatformFeeAmount))
	return p, nil
}

func (s *DefaultEscrowService) mustGet(ctx context.Context, paymentID string) (*models.EscrowPayment, error) {
	p, err := s.Repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch escrow payment: %w", err)
	}
	if p == nil {
		return nil, utils.NewFault(utils.FaultNotFound, "escrow payment %s not found", paymentID)
	}
	return p, nil
}
