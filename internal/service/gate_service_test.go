package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

func TestValidateAndOpenHappyPath(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	code := env.bookAndPay(t)

	resp, err := env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: code, DeviceID: "gate-1"})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, 1, resp.SlotNumber)
	assert.Equal(t, "open", resp.Action)

	assert.Equal(t, 1, env.commands.gateCount("open:"))
	require.Len(t, env.commands.responses, 1)
	assert.True(t, env.commands.responses[0].Valid)
	assert.Equal(t, 1, env.notifier.count(EventServoOpen))

	detail, err := env.vouchers.GetByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherUsed, detail.Status)
}

func TestSecondValidationWhileGateBusy(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	first := env.bookAndPay(t)
	second := env.bookAndPay(t)

	_, err := env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: first})
	require.NoError(t, err)

	_, err = env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: second})
	assert.ErrorIs(t, err, ErrGateBusy)

	// Only the first validation opened the gate; the second voucher is still
	// unused.
	assert.Equal(t, 1, env.commands.gateCount("open:"))
	detail, err := env.vouchers.GetByCode(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherUnused, detail.Status)
}

func TestValidateRejectsUnknownCode(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.gate.ValidateAndOpen(context.Background(), domain.ValidateVoucherDTO{Code: "000000"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, env.commands.gateCount("open:"))
}

func TestValidateRejectsUnpaidVoucher(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	_, err = env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: result.VoucherCode})
	assert.ErrorIs(t, err, ErrNotPaid)
}

func TestValidateRejectsUsedVoucher(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	code := env.bookAndPay(t)

	_, err := env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: code})
	require.NoError(t, err)

	// Park the vehicle so the gate frees up, then try the same code again.
	require.NoError(t, env.gate.OnSensorEvent(ctx, 1, domain.SlotOccupied))

	_, err = env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: code})
	assert.ErrorIs(t, err, ErrVoucherNotUsable)
}

func TestCorrectSlotArrivalClosesGateOnce(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	code := env.bookAndPay(t)

	_, err := env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: code})
	require.NoError(t, err)

	require.NoError(t, env.gate.OnSensorEvent(ctx, 1, domain.SlotOccupied))
	// A replayed sensor event must not produce a second close command.
	require.NoError(t, env.gate.OnSensorEvent(ctx, 1, domain.SlotOccupied))

	assert.Equal(t, 1, env.commands.gateCount("close:"))
	assert.Equal(t, 1, env.notifier.count(EventGateReady))

	slots, err := env.slots.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slots[0].Status)
}

func TestWrongSlotArrivalSoundsBuzzerOnce(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	code := env.bookAndPay(t)

	_, err := env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: code})
	require.NoError(t, err)

	// Vehicle lands in slot 2 instead of slot 1; the event arrives twice.
	require.NoError(t, env.gate.OnSensorEvent(ctx, 2, domain.SlotOccupied))
	require.NoError(t, env.gate.OnSensorEvent(ctx, 2, domain.SlotOccupied))
	assert.Equal(t, 1, env.commands.buzzerCount(true))

	// It backs out; the buzzer stops exactly once.
	require.NoError(t, env.gate.OnSensorEvent(ctx, 2, domain.SlotAvailable))
	require.NoError(t, env.gate.OnSensorEvent(ctx, 2, domain.SlotAvailable))
	assert.Equal(t, 1, env.commands.buzzerCount(false))

	// The session is still waiting for the right slot.
	_, err = env.gate.ValidateAndOpen(ctx, domain.ValidateVoucherDTO{Code: code})
	assert.ErrorIs(t, err, ErrGateBusy)
}

func TestSensorEventWithoutSessionIsIgnored(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	require.NoError(t, env.gate.OnSensorEvent(ctx, 1, domain.SlotOccupied))
	assert.Empty(t, env.commands.gateCommands)
	assert.Empty(t, env.commands.buzzer)
}
