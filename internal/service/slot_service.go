package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

// SlotService is the single authority over slot status. Sensor readings,
// gate-session completions, bookings, sweeps and admin resets all funnel
// through it (or through the conditional repository writes it relies on), so
// no two code paths can disagree about a bay's state.
type SlotService struct {
	slotRepo    repository.SlotRepository
	voucherRepo repository.VoucherRepository
	notifier    Notifier
	dash        Dashboard
}

func NewSlotService(
	slotRepo repository.SlotRepository,
	voucherRepo repository.VoucherRepository,
	notifier Notifier,
	dash Dashboard,
) *SlotService {
	return &SlotService{
		slotRepo:    slotRepo,
		voucherRepo: voucherRepo,
		notifier:    notifier,
		dash:        dash,
	}
}

func (s *SlotService) GetAll(ctx context.Context) ([]domain.Slot, error) {
	return s.slotRepo.FindAll(ctx)
}

func (s *SlotService) Counts(ctx context.Context) (domain.SlotCounts, error) {
	return s.slotRepo.CountByStatus(ctx)
}

// NormalizeSensorValue maps the raw reading a device reports to a slot
// status. Devices send "1"/"0" over the bus and "occupied"/"empty" over HTTP.
func NormalizeSensorValue(value string) domain.SlotStatus {
	switch value {
	case "occupied", "1":
		return domain.SlotOccupied
	case "reserved":
		return domain.SlotReserved
	default:
		return domain.SlotAvailable
	}
}

// ApplySensorStatus reconciles one sensor observation with the registry.
// Occupancy is trusted from both available and reserved bays; a cleared
// sensor only releases an occupied bay and never cancels a reservation.
// Returns the slot and whether anything changed.
func (s *SlotService) ApplySensorStatus(ctx context.Context, slotNumber int, observed domain.SlotStatus) (*domain.Slot, bool, error) {
	slot, err := s.slotRepo.FindByNumber(ctx, slotNumber)
	if err != nil {
		return nil, false, fmt.Errorf("SlotService.ApplySensorStatus: %w", err)
	}

	changed := false
	switch observed {
	case domain.SlotOccupied:
		err = s.slotRepo.TransitionStatus(ctx, slot.ID, domain.SlotAvailable, domain.SlotOccupied)
		if errors.Is(err, repository.ErrConflict) {
			err = s.slotRepo.TransitionStatus(ctx, slot.ID, domain.SlotReserved, domain.SlotOccupied)
		}
		if err == nil {
			changed = true
		} else if !errors.Is(err, repository.ErrConflict) {
			return nil, false, fmt.Errorf("SlotService.ApplySensorStatus: %w", err)
		}
	case domain.SlotAvailable:
		err = s.slotRepo.TransitionStatus(ctx, slot.ID, domain.SlotOccupied, domain.SlotAvailable)
		if err == nil {
			changed = true
		} else if !errors.Is(err, repository.ErrConflict) {
			return nil, false, fmt.Errorf("SlotService.ApplySensorStatus: %w", err)
		}
	default:
		// Sensors never place reservations.
	}

	if changed {
		slot, err = s.slotRepo.FindByID(ctx, slot.ID)
		if err != nil {
			return nil, false, fmt.Errorf("SlotService.ApplySensorStatus: %w", err)
		}
		s.notifier.Broadcast(EventSlotUpdate, slot)
		s.PushCounts(ctx)
	}
	return slot, changed, nil
}

// ResetSlot is the admin escape hatch: force the bay back to available and
// expire any voucher still holding it.
func (s *SlotService) ResetSlot(ctx context.Context, slotNumber int) (*domain.Slot, error) {
	slot, err := s.slotRepo.FindByNumber(ctx, slotNumber)
	if err != nil {
		return nil, fmt.Errorf("SlotService.ResetSlot: %w", err)
	}
	if err := s.voucherRepo.ExpireOpenBySlot(ctx, slot.ID); err != nil {
		return nil, fmt.Errorf("SlotService.ResetSlot: %w", err)
	}
	if err := s.slotRepo.ForceStatus(ctx, slot.ID, domain.SlotAvailable); err != nil {
		return nil, fmt.Errorf("SlotService.ResetSlot: %w", err)
	}
	slot.Status = domain.SlotAvailable
	s.notifier.Broadcast(EventSlotUpdate, slot)
	s.PushCounts(ctx)
	return slot, nil
}

// PushCounts refreshes the dashboard availability gauges. Failures only log:
// the dashboard is a mirror, never an authority.
func (s *SlotService) PushCounts(ctx context.Context) {
	counts, err := s.slotRepo.CountByStatus(ctx)
	if err != nil {
		log.Printf("slot counts: %v", err)
		return
	}
	if err := s.dash.PushSlotCounts(ctx, counts.Available, counts.Occupied); err != nil {
		log.Printf("slot counts: %v", err)
	}
}
