package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type VoucherStatus string

const (
	VoucherUnused  VoucherStatus = "unused"
	VoucherUsed    VoucherStatus = "used"
	VoucherExpired VoucherStatus = "expired"
)

// Voucher is a single-use 6-digit access code bound to one slot reservation.
type Voucher struct {
	ID        int           `json:"id"`
	Code      string        `json:"code"`
	SlotID    int           `json:"slot_id"`
	Status    VoucherStatus `json:"status"`
	ExpiresAt time.Time     `json:"expiresAt"`
	UsedAt    null.Time     `json:"usedAt"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// VoucherDetail is a voucher joined with its slot, as returned by lookups by
// code. SlotStatus is a snapshot, not a live reference.
type VoucherDetail struct {
	Voucher
	SlotNumber int        `json:"slotNumber"`
	SlotStatus SlotStatus `json:"slotStatus"`
}

// Expired reports whether the voucher TTL has passed at the given instant.
func (v *Voucher) Expired(now time.Time) bool {
	return !v.ExpiresAt.IsZero() && v.ExpiresAt.Before(now)
}
