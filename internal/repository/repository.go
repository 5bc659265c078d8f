package repository

import (
	"context"
	"errors"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrConflict = errors.New("record not in expected state")
var ErrNoActiveSession = errors.New("no active gate session")

// SlotRepository owns per-bay availability state. Every status change is a
// single conditional write: the caller states the status it expects and the
// update applies only while that expectation still holds, so interleaved
// handlers cannot lose updates. ErrConflict means the expectation failed.
type SlotRepository interface {
	FindAll(ctx context.Context) ([]domain.Slot, error)
	FindByID(ctx context.Context, id int) (*domain.Slot, error)
	FindByNumber(ctx context.Context, slotNumber int) (*domain.Slot, error)
	CountByStatus(ctx context.Context) (domain.SlotCounts, error)
	// TransitionStatus applies from -> to in one conditional write.
	TransitionStatus(ctx context.Context, id int, from, to domain.SlotStatus) error
	// ReserveFirstAvailable atomically reserves the lowest-numbered available
	// slot and returns it, or ErrNotFound when the lot is full.
	ReserveFirstAvailable(ctx context.Context) (*domain.Slot, error)
	// ForceStatus is the admin reset path and skips the expected-status check.
	ForceStatus(ctx context.Context, id int, to domain.SlotStatus) error
	// ReleaseBatch moves the given slots to available in one statement.
	ReleaseBatch(ctx context.Context, ids []int) error
}

// ExpiredReservation is one row of the sweeper's reservation-expiry scan:
// an unused voucher past its TTL whose transaction is still pending (or was
// never created).
type ExpiredReservation struct {
	VoucherID     int
	SlotID        int
	SlotNumber    int
	TransactionID int // 0 when no transaction exists
}

type VoucherRepository interface {
	// Create inserts the voucher, returning ErrDuplicateEntry when the code
	// collides with any non-expired voucher.
	Create(ctx context.Context, v *domain.Voucher) (*domain.Voucher, error)
	FindByCode(ctx context.Context, code string) (*domain.VoucherDetail, error)
	// MarkUsed flips unused -> used and stamps usedAt; ErrConflict when the
	// voucher is no longer unused.
	MarkUsed(ctx context.Context, id int) error
	SetStatus(ctx context.Context, id int, status domain.VoucherStatus) error
	// ExpireOpenBySlot expires every unused voucher of a slot (admin reset).
	ExpireOpenBySlot(ctx context.Context, slotID int) error
	FindExpiredUnused(ctx context.Context, now time.Time) ([]ExpiredReservation, error)
	ExpireBatch(ctx context.Context, ids []int) error
}

type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
	FindByID(ctx context.Context, id int) (*domain.TransactionDetail, error)
	FindByToken(ctx context.Context, paymentToken string) (*domain.TransactionDetail, error)
	// StatusByVoucherID returns ErrNotFound when the voucher has no
	// transaction.
	StatusByVoucherID(ctx context.Context, voucherID int) (domain.TransactionStatus, error)
	// MarkPaid flips pending -> paid; ErrConflict when the transaction has
	// already been paid or expired (for instance by a concurrent sweep).
	MarkPaid(ctx context.Context, id int) error
	SetStatus(ctx context.Context, id int, status domain.TransactionStatus) error
	FindRecent(ctx context.Context, limit int) ([]domain.TransactionDetail, error)
	ExpireBatch(ctx context.Context, ids []int) error
}

// GateSessionRepository enforces the single-lane invariant at the storage
// boundary: Create fails with ErrConflict while any session is entering, so
// two concurrent validations can never both succeed.
type GateSessionRepository interface {
	Create(ctx context.Context, s *domain.GateSession) (*domain.GateSession, error)
	// FindActive returns the entering session or ErrNoActiveSession.
	FindActive(ctx context.Context) (*domain.GateSession, error)
	// Complete flips entering -> parked; ErrConflict when already completed,
	// which deduplicates replayed sensor events.
	Complete(ctx context.Context, id int) error
	// Abort flips entering -> aborted (sweeper timeout path).
	Abort(ctx context.Context, id int) error
	// SetBuzzer writes the level-triggered alarm flag conditionally: it
	// reports false (no error) when the flag already had the requested
	// value, so callers issue at most one actuator command per edge.
	SetBuzzer(ctx context.Context, id int, active bool) (bool, error)
	FindEnteringOlderThan(ctx context.Context, cutoff time.Time) ([]domain.GateSession, error)
}

type DeviceLogRepository interface {
	Create(ctx context.Context, entry *domain.DeviceLog) error
	FindRecent(ctx context.Context, limit int) ([]domain.DeviceLog, error)
}
