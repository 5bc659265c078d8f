// Package memory implements the repository interfaces over process memory.
// It backs the test suite and the DB-less dev mode (DB_HOST unset), and
// mirrors the conditional-write semantics of the postgresql package: every
// status transition checks the expected current state under the store lock.
package memory

import (
	"sync"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

type Store struct {
	mu sync.Mutex

	slots        map[int]*domain.Slot
	vouchers     map[int]*domain.Voucher
	transactions map[int]*domain.Transaction
	sessions     map[int]*domain.GateSession
	logs         []domain.DeviceLog

	nextSlotID        int
	nextVoucherID     int
	nextTransactionID int
	nextSessionID     int
	nextLogID         int64
}

func NewStore() *Store {
	return &Store{
		slots:             make(map[int]*domain.Slot),
		vouchers:          make(map[int]*domain.Voucher),
		transactions:      make(map[int]*domain.Transaction),
		sessions:          make(map[int]*domain.GateSession),
		nextSlotID:        1,
		nextVoucherID:     1,
		nextTransactionID: 1,
		nextSessionID:     1,
		nextLogID:         1,
	}
}

// SeedSlots creates n available slots numbered 1..n.
func (s *Store) SeedSlots(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := 1; i <= n; i++ {
		id := s.nextSlotID
		s.nextSlotID++
		s.slots[id] = &domain.Slot{
			ID:         id,
			SlotNumber: i,
			Status:     domain.SlotAvailable,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
}

func (s *Store) Slots() *SlotRepository               { return &SlotRepository{store: s} }
func (s *Store) Vouchers() *VoucherRepository         { return &VoucherRepository{store: s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{store: s} }
func (s *Store) GateSessions() *GateSessionRepository { return &GateSessionRepository{store: s} }
func (s *Store) DeviceLogs() *DeviceLogRepository     { return &DeviceLogRepository{store: s} }

func cloneSlot(slot *domain.Slot) *domain.Slot {
	c := *slot
	return &c
}

func cloneVoucher(v *domain.Voucher) *domain.Voucher {
	c := *v
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

func cloneSession(gs *domain.GateSession) *domain.GateSession {
	c := *gs
	return &c
}
