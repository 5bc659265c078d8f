package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

// GateService coordinates the single entry gate: voucher validation opens it,
// the bay sensor confirming arrival closes it, and a wrong-bay arrival sounds
// the buzzer. The single-lane rule and all command deduplication live in the
// conditional gate-session writes, so replayed or concurrent events collapse
// to one actuator command each.
type GateService struct {
	sessionRepo     repository.GateSessionRepository
	voucherRepo     repository.VoucherRepository
	transactionRepo repository.TransactionRepository
	slotRepo        repository.SlotRepository
	logRepo         repository.DeviceLogRepository
	vouchers        *VoucherService
	notifier        Notifier
	commands        CommandPublisher
}

func NewGateService(
	sessionRepo repository.GateSessionRepository,
	voucherRepo repository.VoucherRepository,
	transactionRepo repository.TransactionRepository,
	slotRepo repository.SlotRepository,
	logRepo repository.DeviceLogRepository,
	vouchers *VoucherService,
	notifier Notifier,
	commands CommandPublisher,
) *GateService {
	return &GateService{
		sessionRepo:     sessionRepo,
		voucherRepo:     voucherRepo,
		transactionRepo: transactionRepo,
		slotRepo:        slotRepo,
		logRepo:         logRepo,
		vouchers:        vouchers,
		notifier:        notifier,
		commands:        commands,
	}
}

// ValidateAndOpen runs the full admission check for a voucher code and, when
// it passes, opens the gate under a fresh session. The session insert is the
// atomic gate: its single-entering constraint decides races between two
// simultaneous validations, regardless of the fail-fast check before it.
func (s *GateService) ValidateAndOpen(ctx context.Context, dto domain.ValidateVoucherDTO) (*domain.VoucherValidateResponse, error) {
	if _, err := s.sessionRepo.FindActive(ctx); err == nil {
		return nil, ErrGateBusy
	} else if !errors.Is(err, repository.ErrNoActiveSession) {
		return nil, fmt.Errorf("GateService.ValidateAndOpen: %w", err)
	}

	detail, err := s.vouchers.GetByCode(ctx, dto.Code)
	if err != nil {
		return nil, err
	}
	switch detail.Status {
	case domain.VoucherUnused:
	case domain.VoucherExpired:
		return nil, ErrVoucherExpired
	default:
		return nil, ErrVoucherNotUsable
	}

	txStatus, err := s.transactionRepo.StatusByVoucherID(ctx, detail.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("GateService.ValidateAndOpen: %w", err)
	}
	if txStatus != domain.TransactionPaid {
		return nil, ErrNotPaid
	}

	session, err := s.sessionRepo.Create(ctx, &domain.GateSession{
		VoucherID:  detail.ID,
		SlotID:     detail.SlotID,
		SlotNumber: detail.SlotNumber,
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrGateBusy
	}
	if err != nil {
		return nil, fmt.Errorf("GateService.ValidateAndOpen: %w", err)
	}

	// The committed session is ground truth from here on. A failed voucher
	// flip is logged and left to the operator; refusing entry now would
	// strand the session.
	if err := s.voucherRepo.MarkUsed(ctx, detail.ID); err != nil {
		log.Printf("gate: mark voucher %d used: %v", detail.ID, err)
	}

	if err := s.commands.SendGateCommand(ctx, "open", session.SlotNumber); err != nil {
		log.Printf("gate: open command: %v", err)
	}
	resp := &domain.VoucherValidateResponse{
		Code:       dto.Code,
		Valid:      true,
		SlotNumber: session.SlotNumber,
		Action:     "open",
	}
	if err := s.commands.PublishVoucherResponse(ctx, *resp); err != nil {
		log.Printf("gate: validate response: %v", err)
	}
	s.notifier.Broadcast(EventServoOpen, map[string]any{
		"slotNumber":  session.SlotNumber,
		"voucherCode": dto.Code,
	})
	s.logDevice(ctx, dto.DeviceID, "voucher_validated", map[string]any{
		"code":       dto.Code,
		"slotNumber": session.SlotNumber,
	})
	return resp, nil
}

// OnSensorEvent arbitrates a bay sensor change against the active session.
// Without an active session there is nothing to arbitrate; the registry
// update has already happened upstream.
func (s *GateService) OnSensorEvent(ctx context.Context, slotNumber int, status domain.SlotStatus) error {
	session, err := s.sessionRepo.FindActive(ctx)
	if errors.Is(err, repository.ErrNoActiveSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("GateService.OnSensorEvent: %w", err)
	}

	switch {
	case status == domain.SlotOccupied && slotNumber == session.SlotNumber:
		return s.completeSession(ctx, session)
	case status == domain.SlotOccupied && slotNumber != session.SlotNumber:
		return s.raiseWrongSlot(ctx, session, slotNumber)
	case status == domain.SlotAvailable && slotNumber != session.SlotNumber && session.BuzzerActive:
		return s.clearWrongSlot(ctx, session, slotNumber)
	}
	return nil
}

func (s *GateService) completeSession(ctx context.Context, session *domain.GateSession) error {
	err := s.sessionRepo.Complete(ctx, session.ID)
	if errors.Is(err, repository.ErrConflict) {
		// A replayed sensor event; the first delivery already closed out.
		return nil
	}
	if err != nil {
		return fmt.Errorf("GateService.completeSession: %w", err)
	}

	// The sensor handler usually flips the slot to occupied before we run;
	// the conditional write keeps this harmless either way.
	err = s.slotRepo.TransitionStatus(ctx, session.SlotID, domain.SlotReserved, domain.SlotOccupied)
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		log.Printf("gate: occupy slot %d: %v", session.SlotID, err)
	}

	if err := s.commands.SendGateCommand(ctx, "close", session.SlotNumber); err != nil {
		log.Printf("gate: close command: %v", err)
	}
	if session.BuzzerActive {
		if err := s.commands.SendBuzzerCommand(ctx, false, session.SlotNumber); err != nil {
			log.Printf("gate: buzzer off: %v", err)
		}
	}
	s.notifier.Broadcast(EventGateReady, map[string]any{
		"slotNumber": session.SlotNumber,
	})
	s.logDevice(ctx, "", "session_parked", map[string]any{
		"sessionId":  session.ID,
		"slotNumber": session.SlotNumber,
	})
	return nil
}

func (s *GateService) raiseWrongSlot(ctx context.Context, session *domain.GateSession, slotNumber int) error {
	changed, err := s.sessionRepo.SetBuzzer(ctx, session.ID, true)
	if err != nil {
		return fmt.Errorf("GateService.raiseWrongSlot: %w", err)
	}
	if !changed {
		return nil
	}
	if err := s.commands.SendBuzzerCommand(ctx, true, slotNumber); err != nil {
		log.Printf("gate: buzzer on: %v", err)
	}
	if err := s.commands.NotifySystem(ctx, fmt.Sprintf("Vehicle detected in wrong slot %d, expected %d", slotNumber, session.SlotNumber)); err != nil {
		log.Printf("gate: wrong slot notify: %v", err)
	}
	s.logDevice(ctx, "", "wrong_slot", map[string]any{
		"sessionId":    session.ID,
		"expectedSlot": session.SlotNumber,
		"actualSlot":   slotNumber,
	})
	return nil
}

func (s *GateService) clearWrongSlot(ctx context.Context, session *domain.GateSession, slotNumber int) error {
	changed, err := s.sessionRepo.SetBuzzer(ctx, session.ID, false)
	if err != nil {
		return fmt.Errorf("GateService.clearWrongSlot: %w", err)
	}
	if !changed {
		return nil
	}
	if err := s.commands.SendBuzzerCommand(ctx, false, slotNumber); err != nil {
		log.Printf("gate: buzzer off: %v", err)
	}
	return nil
}

// OnGateState records the controller's own state reports and surfaces
// readiness to the dashboard.
func (s *GateService) OnGateState(ctx context.Context, deviceID, state string) {
	s.logDevice(ctx, deviceID, "gate_state", map[string]any{"state": state})
	if state == "ready" || state == "closed" {
		s.notifier.Broadcast(EventGateReady, map[string]any{"state": state})
	}
}

func (s *GateService) logDevice(ctx context.Context, deviceID, eventType string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("gate: marshal device log: %v", err)
		return
	}
	entry := &domain.DeviceLog{DeviceID: deviceID, Type: eventType, Payload: raw}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		log.Printf("gate: device log: %v", err)
	}
}
