package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

// parkingFee is the flat reservation price, in IDR.
const parkingFee = 10000

// BookingService turns a booking request into a reserved slot, an unused
// voucher and a pending transaction, in that order. Each step that fails
// unwinds the previous ones so a failed booking never leaks a reservation.
type BookingService struct {
	slotRepo        repository.SlotRepository
	transactionRepo repository.TransactionRepository
	vouchers        *VoucherService
	slots           *SlotService
	notifier        Notifier
	dash            Dashboard
	appURL          string
}

func NewBookingService(
	slotRepo repository.SlotRepository,
	transactionRepo repository.TransactionRepository,
	vouchers *VoucherService,
	slots *SlotService,
	notifier Notifier,
	dash Dashboard,
	appURL string,
) *BookingService {
	return &BookingService{
		slotRepo:        slotRepo,
		transactionRepo: transactionRepo,
		vouchers:        vouchers,
		slots:           slots,
		notifier:        notifier,
		dash:            dash,
		appURL:          appURL,
	}
}

// paymentToken draws the opaque handle the payment page uses. 24 random
// bytes, base64url without padding.
func paymentToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Book reserves a slot and issues its voucher and transaction. A zero
// SlotNumber means "first available".
func (s *BookingService) Book(ctx context.Context, dto domain.CreateBookingDTO) (*domain.BookingResult, error) {
	slot, err := s.reserve(ctx, dto.SlotNumber)
	if err != nil {
		return nil, err
	}

	voucher, err := s.vouchers.Issue(ctx, slot.ID)
	if err != nil {
		s.release(ctx, slot.ID)
		return nil, err
	}

	token, err := paymentToken()
	if err != nil {
		s.unwind(ctx, voucher.ID, slot.ID)
		return nil, fmt.Errorf("BookingService.Book: %w", err)
	}

	tx, err := s.transactionRepo.Create(ctx, &domain.Transaction{
		VoucherID:    voucher.ID,
		Amount:       parkingFee,
		Status:       domain.TransactionPending,
		PaymentToken: token,
	})
	if err != nil {
		s.unwind(ctx, voucher.ID, slot.ID)
		return nil, fmt.Errorf("BookingService.Book: %w", err)
	}

	slot.Status = domain.SlotReserved
	s.notifier.Broadcast(EventSlotUpdate, slot)
	s.notifier.Broadcast(EventVoucherCreated, map[string]any{
		"voucherCode": voucher.Code,
		"slotNumber":  slot.SlotNumber,
		"expiresAt":   voucher.ExpiresAt,
	})
	s.slots.PushCounts(ctx)
	if err := s.dash.PushLastVoucher(ctx, voucher.Code); err != nil {
		log.Printf("booking: last voucher pin: %v", err)
	}

	return &domain.BookingResult{
		VoucherCode:   voucher.Code,
		TransactionID: tx.ID,
		PaymentToken:  token,
		ExpiresAt:     voucher.ExpiresAt,
		PaymentURL:    fmt.Sprintf("%s/payment/%s", s.appURL, token),
	}, nil
}

func (s *BookingService) reserve(ctx context.Context, slotNumber int) (*domain.Slot, error) {
	if slotNumber > 0 {
		slot, err := s.slotRepo.FindByNumber(ctx, slotNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrSlotUnavailable
			}
			return nil, fmt.Errorf("BookingService.reserve: %w", err)
		}
		err = s.slotRepo.TransitionStatus(ctx, slot.ID, domain.SlotAvailable, domain.SlotReserved)
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSlotUnavailable
		}
		if err != nil {
			return nil, fmt.Errorf("BookingService.reserve: %w", err)
		}
		slot.Status = domain.SlotReserved
		return slot, nil
	}

	slot, err := s.slotRepo.ReserveFirstAvailable(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLotFull
	}
	if err != nil {
		return nil, fmt.Errorf("BookingService.reserve: %w", err)
	}
	return slot, nil
}

func (s *BookingService) release(ctx context.Context, slotID int) {
	err := s.slotRepo.TransitionStatus(ctx, slotID, domain.SlotReserved, domain.SlotAvailable)
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		log.Printf("booking: release slot %d: %v", slotID, err)
	}
}

func (s *BookingService) unwind(ctx context.Context, voucherID, slotID int) {
	if err := s.vouchers.voucherRepo.SetStatus(ctx, voucherID, domain.VoucherExpired); err != nil {
		log.Printf("booking: unwind voucher %d: %v", voucherID, err)
	}
	s.release(ctx, slotID)
}
