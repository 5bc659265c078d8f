// Package service holds the coordination logic between the HTTP/MQTT edges
// and the repositories. Outbound side effects go through the small interfaces
// below so the concrete bridge, websocket manager and dashboard client stay
// injectable.
package service

import (
	"context"
	"errors"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

// Browser-facing event names pushed over the websocket.
const (
	EventSlotUpdate         = "slotUpdate"
	EventVoucherCreated     = "voucherCreated"
	EventPaymentSuccess     = "paymentSuccess"
	EventServoOpen          = "servoOpen"
	EventGateReady          = "gateReady"
	EventGateSessionTimeout = "gateSessionTimeout"
	EventReservationExpired = "reservationExpired"
	EventServoCommand       = "servoCommand"
)

// Notifier fans an event out to every connected dashboard client.
type Notifier interface {
	Broadcast(event string, payload any)
}

// CommandPublisher sends commands and responses down to the gate controller.
type CommandPublisher interface {
	SendGateCommand(ctx context.Context, command string, slotNumber int) error
	SendBuzzerCommand(ctx context.Context, active bool, slotNumber int) error
	PublishVoucherResponse(ctx context.Context, resp domain.VoucherValidateResponse) error
	NotifySystem(ctx context.Context, message string) error
}

// Dashboard mirrors state onto the cloud dashboard pins.
type Dashboard interface {
	PushSlotCounts(ctx context.Context, available, occupied int) error
	SendServoCommand(ctx context.Context, command string, slotNumber int) error
	UpdateSensorPin(ctx context.Context, sensorIndex int, value string) error
	PushLastVoucher(ctx context.Context, code string) error
}

var (
	ErrGateBusy           = errors.New("gate is currently in use")
	ErrVoucherNotUsable   = errors.New("voucher is not usable")
	ErrVoucherExpired     = errors.New("voucher has expired")
	ErrNotPaid            = errors.New("voucher has not been paid")
	ErrLotFull            = errors.New("no available slots")
	ErrSlotUnavailable    = errors.New("slot is not available")
	ErrReservationExpired = errors.New("reservation has expired")
	ErrAlreadyProcessed   = errors.New("transaction already processed")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
