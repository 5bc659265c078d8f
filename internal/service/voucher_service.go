package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

// codeAttempts bounds the retry loop that resolves voucher code collisions.
const codeAttempts = 5

// VoucherService issues and resolves the 6-digit access codes.
type VoucherService struct {
	voucherRepo repository.VoucherRepository
	slotRepo    repository.SlotRepository
	ttl         time.Duration

	// codeFn and now are swappable for tests.
	codeFn func() (string, error)
	now    func() time.Time
}

func NewVoucherService(voucherRepo repository.VoucherRepository, slotRepo repository.SlotRepository, ttl time.Duration) *VoucherService {
	return &VoucherService{
		voucherRepo: voucherRepo,
		slotRepo:    slotRepo,
		ttl:         ttl,
		codeFn:      randomCode,
		now:         time.Now,
	}
}

// randomCode draws a uniform 6-digit code, leading zeros included.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue creates an unused voucher bound to the slot. Code collisions with
// another active voucher are resolved by drawing again, a few times; the
// active-code uniqueness itself is enforced by the repository, so two
// concurrent issues can never share a code.
func (s *VoucherService) Issue(ctx context.Context, slotID int) (*domain.Voucher, error) {
	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code, err := s.codeFn()
		if err != nil {
			return nil, fmt.Errorf("VoucherService.Issue: %w", err)
		}
		v, err := s.voucherRepo.Create(ctx, &domain.Voucher{
			Code:      code,
			SlotID:    slotID,
			Status:    domain.VoucherUnused,
			ExpiresAt: s.now().UTC().Add(s.ttl),
		})
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, fmt.Errorf("VoucherService.Issue: %w", err)
		}
		log.Printf("voucher code %s collided, retrying (%d/%d)", code, attempt, codeAttempts)
	}
	return nil, fmt.Errorf("VoucherService.Issue: could not allocate a unique code after %d attempts", codeAttempts)
}

// GetByCode resolves a voucher and applies lazy expiry: an unused voucher
// found past its TTL is expired on the spot and its slot released, rather
// than waiting for the next sweep.
func (s *VoucherService) GetByCode(ctx context.Context, code string) (*domain.VoucherDetail, error) {
	detail, err := s.voucherRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if detail.Status == domain.VoucherUnused && detail.Expired(s.now().UTC()) {
		if err := s.voucherRepo.SetStatus(ctx, detail.ID, domain.VoucherExpired); err != nil {
			return nil, fmt.Errorf("VoucherService.GetByCode: %w", err)
		}
		err = s.slotRepo.TransitionStatus(ctx, detail.SlotID, domain.SlotReserved, domain.SlotAvailable)
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("VoucherService.GetByCode: %w", err)
		}
		detail.Status = domain.VoucherExpired
		detail.SlotStatus = domain.SlotAvailable
	}
	return detail, nil
}
