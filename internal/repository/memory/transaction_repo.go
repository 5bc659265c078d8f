package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

type TransactionRepository struct {
	store *Store
}

func (r *TransactionRepository) detailLocked(t *domain.Transaction) (*domain.TransactionDetail, error) {
	v, ok := r.store.vouchers[t.VoucherID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	slot, ok := r.store.slots[v.SlotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.TransactionDetail{
		Transaction:      *cloneTransaction(t),
		VoucherCode:      v.Code,
		VoucherStatus:    v.Status,
		VoucherSlotID:    v.SlotID,
		VoucherExpiresAt: v.ExpiresAt,
		SlotNumber:       slot.SlotNumber,
	}, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.transactions {
		if existing.VoucherID == t.VoucherID {
			return nil, fmt.Errorf("%w: voucher %d already has a transaction", repository.ErrDuplicateEntry, t.VoucherID)
		}
	}
	now := time.Now().UTC()
	t.ID = r.store.nextTransactionID
	r.store.nextTransactionID++
	if t.Status == "" {
		t.Status = domain.TransactionPending
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	r.store.transactions[t.ID] = cloneTransaction(t)
	return t, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int) (*domain.TransactionDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.detailLocked(t)
}

func (r *TransactionRepository) FindByToken(ctx context.Context, paymentToken string) (*domain.TransactionDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.transactions {
		if t.PaymentToken == paymentToken {
			return r.detailLocked(t)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TransactionRepository) StatusByVoucherID(ctx context.Context, voucherID int) (domain.TransactionStatus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.transactions {
		if t.VoucherID == voucherID {
			return t.Status, nil
		}
	}
	return "", repository.ErrNotFound
}

func (r *TransactionRepository) MarkPaid(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status != domain.TransactionPending {
		return repository.ErrConflict
	}
	t.Status = domain.TransactionPaid
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TransactionRepository) SetStatus(ctx context.Context, id int, status domain.TransactionStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TransactionRepository) FindRecent(ctx context.Context, limit int) ([]domain.TransactionDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := make([]*domain.Transaction, 0, len(r.store.transactions))
	for _, t := range r.store.transactions {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	details := make([]domain.TransactionDetail, 0, len(all))
	for _, t := range all {
		detail, err := r.detailLocked(t)
		if err != nil {
			continue
		}
		details = append(details, *detail)
	}
	return details, nil
}

func (r *TransactionRepository) ExpireBatch(ctx context.Context, ids []int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if t, ok := r.store.transactions[id]; ok {
			t.Status = domain.TransactionExpired
			t.UpdatedAt = now
		}
	}
	return nil
}
