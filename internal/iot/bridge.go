// Package iot bridges the broker topics to the coordination services: it
// demultiplexes device telemetry inbound and publishes gate commands and
// validation responses outbound.
package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/mqtt"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

// Topic layout shared with the gate controller firmware.
const (
	topicVoucherCheck    = "parking/voucher/check"
	topicSlotStatus      = "parking/slot/+/status"
	topicGateState       = "parking/gate/state"
	topicVoucherResponse = "parking/voucher/validateResponse"
	topicGateOpen        = "parking/gate/open"
	topicGateClose       = "parking/gate/close"
	topicWrongSlot       = "parking/indicator/wrong-slot"
	topicSystemNotify    = "parking/system/notify"
)

// handlerTimeout bounds the work done for one inbound message.
const handlerTimeout = 10 * time.Second

// Bridge connects the broker to the services. It is the CommandPublisher the
// services publish through, and it feeds inbound messages back into them.
type Bridge struct {
	client   mqtt.Client
	dash     service.Dashboard
	notifier service.Notifier

	gate  *service.GateService
	slots *service.SlotService
}

func NewBridge(client mqtt.Client, dash service.Dashboard, notifier service.Notifier) *Bridge {
	return &Bridge{client: client, dash: dash, notifier: notifier}
}

// Start wires the inbound subscriptions and connects. The services arrive
// here rather than in the constructor because they publish through the bridge
// themselves.
func (b *Bridge) Start(ctx context.Context, gate *service.GateService, slots *service.SlotService) error {
	b.gate = gate
	b.slots = slots

	subs := map[string]mqtt.Handler{
		topicVoucherCheck: b.handleVoucherCheck,
		topicSlotStatus:   b.handleSlotStatus,
		topicGateState:    b.handleGateState,
	}
	for filter, handler := range subs {
		if err := b.client.Subscribe(filter, handler); err != nil {
			return fmt.Errorf("iot.Bridge.Start: %w", err)
		}
	}
	if err := b.client.Connect(ctx); err != nil {
		return fmt.Errorf("iot.Bridge.Start: %w", err)
	}
	return nil
}

func (b *Bridge) Stop() {
	b.client.Disconnect()
}

// --- inbound ---

type voucherCheckMessage struct {
	Code     string `json:"code"`
	DeviceID string `json:"deviceId"`
}

func (b *Bridge) handleVoucherCheck(_ string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var msg voucherCheckMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("iot: malformed voucher check %q: %v", payload, err)
		return
	}
	if msg.Code == "" {
		log.Printf("iot: voucher check without code, dropped")
		return
	}

	resp, err := b.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{
		Code:     msg.Code,
		DeviceID: msg.DeviceID,
	})
	if err != nil {
		denied := domain.VoucherValidateResponse{
			Code:    msg.Code,
			Valid:   false,
			Message: rejectionMessage(err),
		}
		if pubErr := b.PublishVoucherResponse(ctx, denied); pubErr != nil {
			log.Printf("iot: validate response: %v", pubErr)
		}
		return
	}
	log.Printf("iot: voucher %s accepted for slot %d", resp.Code, resp.SlotNumber)
}

// rejectionMessage maps a validation failure onto the short string the gate
// display shows.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrGateBusy):
		return "Gate is currently in use"
	case errors.Is(err, repository.ErrNotFound):
		return "Voucher not found"
	case errors.Is(err, service.ErrVoucherNotUsable):
		return "Voucher not usable"
	case errors.Is(err, service.ErrVoucherExpired):
		return "Voucher expired"
	case errors.Is(err, service.ErrNotPaid):
		return "Voucher not paid"
	default:
		return "Validation failed"
	}
}

type slotStatusMessage struct {
	Value       string `json:"value"`
	SensorIndex int    `json:"sensorIndex"`
	DeviceID    string `json:"deviceId"`
}

func (b *Bridge) handleSlotStatus(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	slotNumber, err := slotNumberFromTopic(topic)
	if err != nil {
		log.Printf("iot: %v", err)
		return
	}

	// Firmware sends either a bare value ("1", "occupied") or a JSON object.
	raw := strings.TrimSpace(string(payload))
	msg := slotStatusMessage{Value: raw, SensorIndex: slotNumber - 1}
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("iot: malformed slot status %q: %v", payload, err)
			return
		}
	}

	status := service.NormalizeSensorValue(msg.Value)
	if _, _, err := b.slots.ApplySensorStatus(ctx, slotNumber, status); err != nil {
		log.Printf("iot: slot %d status: %v", slotNumber, err)
		return
	}
	if err := b.dash.UpdateSensorPin(ctx, msg.SensorIndex, msg.Value); err != nil {
		log.Printf("iot: sensor pin: %v", err)
	}
	if err := b.gate.OnSensorEvent(ctx, slotNumber, status); err != nil {
		log.Printf("iot: gate arbitration: %v", err)
	}
}

func slotNumberFromTopic(topic string) (int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return 0, fmt.Errorf("unexpected slot status topic %q", topic)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("bad slot number in topic %q", topic)
	}
	return n, nil
}

type gateStateMessage struct {
	State    string `json:"state"`
	DeviceID string `json:"deviceId"`
}

func (b *Bridge) handleGateState(_ string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	raw := strings.TrimSpace(string(payload))
	msg := gateStateMessage{State: raw}
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("iot: malformed gate state %q: %v", payload, err)
			return
		}
	}
	b.gate.OnGateState(ctx, msg.DeviceID, msg.State)
}

// --- outbound (service.CommandPublisher) ---

type gateCommandMessage struct {
	SlotNumber int    `json:"slotNumber"`
	Command    string `json:"command"`
	RequestID  string `json:"requestId"`
}

func (b *Bridge) SendGateCommand(ctx context.Context, command string, slotNumber int) error {
	topic := topicGateOpen
	if command == "close" {
		topic = topicGateClose
	}
	msg := gateCommandMessage{
		SlotNumber: slotNumber,
		Command:    command,
		RequestID:  uuid.NewString(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("iot.SendGateCommand: %w", err)
	}
	if err := b.client.Publish(topic, payload); err != nil {
		return fmt.Errorf("iot.SendGateCommand: %w", err)
	}
	if err := b.dash.SendServoCommand(ctx, command, slotNumber); err != nil {
		log.Printf("iot: dashboard servo mirror: %v", err)
	}
	b.notifier.Broadcast(service.EventServoCommand, msg)
	return nil
}

type buzzerCommandMessage struct {
	SlotNumber int    `json:"slotNumber"`
	Active     bool   `json:"active"`
	RequestID  string `json:"requestId"`
}

func (b *Bridge) SendBuzzerCommand(ctx context.Context, active bool, slotNumber int) error {
	payload, err := json.Marshal(buzzerCommandMessage{
		SlotNumber: slotNumber,
		Active:     active,
		RequestID:  uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("iot.SendBuzzerCommand: %w", err)
	}
	if err := b.client.Publish(topicWrongSlot, payload); err != nil {
		return fmt.Errorf("iot.SendBuzzerCommand: %w", err)
	}
	return nil
}

func (b *Bridge) PublishVoucherResponse(ctx context.Context, resp domain.VoucherValidateResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("iot.PublishVoucherResponse: %w", err)
	}
	if err := b.client.Publish(topicVoucherResponse, payload); err != nil {
		return fmt.Errorf("iot.PublishVoucherResponse: %w", err)
	}
	return nil
}

func (b *Bridge) NotifySystem(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return fmt.Errorf("iot.NotifySystem: %w", err)
	}
	if err := b.client.Publish(topicSystemNotify, payload); err != nil {
		return fmt.Errorf("iot.NotifySystem: %w", err)
	}
	return nil
}
