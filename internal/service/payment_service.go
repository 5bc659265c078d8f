package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

// PaymentService settles the simulated payment for a reservation.
type PaymentService struct {
	transactionRepo repository.TransactionRepository
	voucherRepo     repository.VoucherRepository
	slotRepo        repository.SlotRepository
	slots           *SlotService
	notifier        Notifier
	commands        CommandPublisher

	now func() time.Time
}

func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	voucherRepo repository.VoucherRepository,
	slotRepo repository.SlotRepository,
	slots *SlotService,
	notifier Notifier,
	commands CommandPublisher,
) *PaymentService {
	return &PaymentService{
		transactionRepo: transactionRepo,
		voucherRepo:     voucherRepo,
		slotRepo:        slotRepo,
		slots:           slots,
		notifier:        notifier,
		commands:        commands,
		now:             time.Now,
	}
}

func (s *PaymentService) GetByID(ctx context.Context, id int) (*domain.TransactionDetail, error) {
	return s.transactionRepo.FindByID(ctx, id)
}

func (s *PaymentService) GetByToken(ctx context.Context, token string) (*domain.TransactionDetail, error) {
	return s.transactionRepo.FindByToken(ctx, token)
}

// Pay settles a pending transaction. Paying a reservation whose voucher TTL
// has already passed expires the reservation instead; the conditional
// MarkPaid closes the remaining window against a concurrent sweep.
func (s *PaymentService) Pay(ctx context.Context, id int) (*domain.TransactionDetail, error) {
	detail, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Status != domain.TransactionPending {
		return nil, ErrAlreadyProcessed
	}
	if detail.VoucherStatus == domain.VoucherExpired || detail.VoucherExpiresAt.Before(s.now().UTC()) {
		s.expireReservation(ctx, detail)
		return nil, ErrReservationExpired
	}

	err = s.transactionRepo.MarkPaid(ctx, id)
	if errors.Is(err, repository.ErrConflict) {
		// The sweeper expired this reservation between our read and the
		// write. The expiry already won; report it.
		return nil, ErrReservationExpired
	}
	if err != nil {
		return nil, fmt.Errorf("PaymentService.Pay: %w", err)
	}

	detail, err = s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.Pay: %w", err)
	}
	s.notifier.Broadcast(EventPaymentSuccess, detail)
	if err := s.commands.NotifySystem(ctx, fmt.Sprintf("Payment received for voucher %s", detail.VoucherCode)); err != nil {
		log.Printf("payment: system notify: %v", err)
	}
	return detail, nil
}

// PayByToken settles the transaction behind a payment-page token.
func (s *PaymentService) PayByToken(ctx context.Context, token string) (*domain.TransactionDetail, error) {
	detail, err := s.transactionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Pay(ctx, detail.ID)
}

// Callback is the payment-simulator webhook. Anything but a success status is
// acknowledged and ignored.
func (s *PaymentService) Callback(ctx context.Context, dto domain.PaymentCallbackDTO) (*domain.TransactionDetail, error) {
	switch dto.Status {
	case "success", "paid":
		return s.Pay(ctx, dto.TransactionID)
	default:
		log.Printf("payment: callback for transaction %d ignored (status %q)", dto.TransactionID, dto.Status)
		return s.transactionRepo.FindByID(ctx, dto.TransactionID)
	}
}

func (s *PaymentService) expireReservation(ctx context.Context, detail *domain.TransactionDetail) {
	if err := s.transactionRepo.SetStatus(ctx, detail.ID, domain.TransactionExpired); err != nil {
		log.Printf("payment: expire transaction %d: %v", detail.ID, err)
	}
	if detail.VoucherStatus != domain.VoucherExpired {
		if err := s.voucherRepo.SetStatus(ctx, detail.VoucherID, domain.VoucherExpired); err != nil {
			log.Printf("payment: expire voucher %d: %v", detail.VoucherID, err)
		}
	}
	err := s.slotRepo.TransitionStatus(ctx, detail.VoucherSlotID, domain.SlotReserved, domain.SlotAvailable)
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		log.Printf("payment: release slot %d: %v", detail.VoucherSlotID, err)
	}
	s.notifier.Broadcast(EventReservationExpired, map[string]any{
		"slotNumber":  detail.SlotNumber,
		"voucherCode": detail.VoucherCode,
	})
	s.slots.PushCounts(ctx)
}
