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

// Sweeper is the background janitor. On every tick it expires reservations
// whose voucher TTL has passed without payment, and aborts gate sessions that
// have been entering for too long. Each sweep is independent; one failed
// cycle never stops the loop.
type Sweeper struct {
	voucherRepo     repository.VoucherRepository
	slotRepo        repository.SlotRepository
	transactionRepo repository.TransactionRepository
	sessionRepo     repository.GateSessionRepository
	slots           *SlotService
	notifier        Notifier
	commands        CommandPublisher

	interval       time.Duration
	sessionTimeout time.Duration
	now            func() time.Time
}

func NewSweeper(
	voucherRepo repository.VoucherRepository,
	slotRepo repository.SlotRepository,
	transactionRepo repository.TransactionRepository,
	sessionRepo repository.GateSessionRepository,
	slots *SlotService,
	notifier Notifier,
	commands CommandPublisher,
	interval, sessionTimeout time.Duration,
) *Sweeper {
	return &Sweeper{
		voucherRepo:     voucherRepo,
		slotRepo:        slotRepo,
		transactionRepo: transactionRepo,
		sessionRepo:     sessionRepo,
		slots:           slots,
		notifier:        notifier,
		commands:        commands,
		interval:        interval,
		sessionTimeout:  sessionTimeout,
		now:             time.Now,
	}
}

// Start blocks until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle. Exported so tests and admin tooling can trigger it
// directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	if err := s.sweepReservations(ctx); err != nil {
		log.Printf("sweeper: reservations: %v", err)
	}
	if err := s.sweepGateSessions(ctx); err != nil {
		log.Printf("sweeper: gate sessions: %v", err)
	}
	s.publishCountSummary(ctx)
}

// publishCountSummary pushes the periodic slot-count broadcast devices listen
// for on the system notify topic.
func (s *Sweeper) publishCountSummary(ctx context.Context) {
	counts, err := s.slotRepo.CountByStatus(ctx)
	if err != nil {
		log.Printf("sweeper: count summary: %v", err)
		return
	}
	msg := fmt.Sprintf("slots available=%d reserved=%d occupied=%d",
		counts.Available, counts.Reserved, counts.Occupied)
	if err := s.commands.NotifySystem(ctx, msg); err != nil {
		log.Printf("sweeper: count summary: %v", err)
	}
}

func (s *Sweeper) sweepReservations(ctx context.Context) error {
	rows, err := s.voucherRepo.FindExpiredUnused(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("find expired: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	voucherIDs := make([]int, 0, len(rows))
	slotIDs := make([]int, 0, len(rows))
	var transactionIDs []int
	for _, row := range rows {
		voucherIDs = append(voucherIDs, row.VoucherID)
		slotIDs = append(slotIDs, row.SlotID)
		if row.TransactionID != 0 {
			transactionIDs = append(transactionIDs, row.TransactionID)
		}
	}

	if err := s.voucherRepo.ExpireBatch(ctx, voucherIDs); err != nil {
		return fmt.Errorf("expire vouchers: %w", err)
	}
	if err := s.slotRepo.ReleaseBatch(ctx, slotIDs); err != nil {
		return fmt.Errorf("release slots: %w", err)
	}
	if len(transactionIDs) > 0 {
		if err := s.transactionRepo.ExpireBatch(ctx, transactionIDs); err != nil {
			return fmt.Errorf("expire transactions: %w", err)
		}
	}

	for _, row := range rows {
		s.notifier.Broadcast(EventReservationExpired, map[string]any{
			"slotNumber": row.SlotNumber,
			"voucherId":  row.VoucherID,
		})
	}
	log.Printf("sweeper: expired %d reservation(s)", len(rows))
	s.slots.PushCounts(ctx)
	return nil
}

func (s *Sweeper) sweepGateSessions(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.sessionTimeout)
	sessions, err := s.sessionRepo.FindEnteringOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale sessions: %w", err)
	}

	for _, session := range sessions {
		err := s.sessionRepo.Abort(ctx, session.ID)
		if errors.Is(err, repository.ErrConflict) {
			// Completed between the scan and the abort; leave it be.
			continue
		}
		if err != nil {
			log.Printf("sweeper: abort session %d: %v", session.ID, err)
			continue
		}

		// The vehicle never reached its bay; free the reservation.
		err = s.slotRepo.TransitionStatus(ctx, session.SlotID, domain.SlotReserved, domain.SlotAvailable)
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			log.Printf("sweeper: release slot %d: %v", session.SlotID, err)
		}

		if err := s.commands.SendGateCommand(ctx, "close", session.SlotNumber); err != nil {
			log.Printf("sweeper: close command: %v", err)
		}
		if session.BuzzerActive {
			if err := s.commands.SendBuzzerCommand(ctx, false, session.SlotNumber); err != nil {
				log.Printf("sweeper: buzzer off: %v", err)
			}
		}
		s.notifier.Broadcast(EventGateSessionTimeout, map[string]any{
			"sessionId":  session.ID,
			"slotNumber": session.SlotNumber,
		})
		log.Printf("sweeper: aborted stale gate session %d (slot %d)", session.ID, session.SlotNumber)
	}
	if len(sessions) > 0 {
		s.slots.PushCounts(ctx)
	}
	return nil
}
