package memory

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

type VoucherRepository struct {
	store *Store
}

func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) (*domain.Voucher, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.vouchers {
		if existing.Code == v.Code && existing.Status != domain.VoucherExpired {
			return nil, fmt.Errorf("%w: voucher code '%s' already active", repository.ErrDuplicateEntry, v.Code)
		}
	}
	now := time.Now().UTC()
	v.ID = r.store.nextVoucherID
	r.store.nextVoucherID++
	if v.Status == "" {
		v.Status = domain.VoucherUnused
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	r.store.vouchers[v.ID] = cloneVoucher(v)
	return v, nil
}

func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*domain.VoucherDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *domain.Voucher
	for _, v := range r.store.vouchers {
		if v.Code != code {
			continue
		}
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	slot, ok := r.store.slots[latest.SlotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.VoucherDetail{
		Voucher:    *cloneVoucher(latest),
		SlotNumber: slot.SlotNumber,
		SlotStatus: slot.Status,
	}, nil
}

func (r *VoucherRepository) MarkUsed(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	v, ok := r.store.vouchers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.Status != domain.VoucherUnused {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	v.Status = domain.VoucherUsed
	v.UsedAt = null.TimeFrom(now)
	v.UpdatedAt = now
	return nil
}

func (r *VoucherRepository) SetStatus(ctx context.Context, id int, status domain.VoucherStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	v, ok := r.store.vouchers[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Status = status
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *VoucherRepository) ExpireOpenBySlot(ctx context.Context, slotID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for _, v := range r.store.vouchers {
		if v.SlotID == slotID && v.Status == domain.VoucherUnused {
			v.Status = domain.VoucherExpired
			v.UpdatedAt = now
		}
	}
	return nil
}

func (r *VoucherRepository) FindExpiredUnused(ctx context.Context, now time.Time) ([]repository.ExpiredReservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var expired []repository.ExpiredReservation
	for _, v := range r.store.vouchers {
		if v.Status != domain.VoucherUnused || !v.Expired(now) {
			continue
		}
		transactionID := 0
		skip := false
		for _, t := range r.store.transactions {
			if t.VoucherID == v.ID {
				if t.Status != domain.TransactionPending {
					skip = true
					break
				}
				transactionID = t.ID
			}
		}
		if skip {
			continue
		}
		slot, ok := r.store.slots[v.SlotID]
		if !ok {
			continue
		}
		expired = append(expired, repository.ExpiredReservation{
			VoucherID:     v.ID,
			SlotID:        v.SlotID,
			SlotNumber:    slot.SlotNumber,
			TransactionID: transactionID,
		})
	}
	return expired, nil
}

func (r *VoucherRepository) ExpireBatch(ctx context.Context, ids []int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if v, ok := r.store.vouchers[id]; ok {
			v.Status = domain.VoucherExpired
			v.UpdatedAt = now
		}
	}
	return nil
}
