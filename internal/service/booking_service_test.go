package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

func TestBookReservesFirstAvailableSlot(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	assert.Len(t, result.VoucherCode, 6)
	assert.NotEmpty(t, result.PaymentToken)
	assert.True(t, strings.HasSuffix(result.PaymentURL, result.PaymentToken))

	slots, err := env.slots.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotReserved, slots[0].Status)
	assert.Equal(t, domain.SlotAvailable, slots[1].Status)
	assert.Equal(t, domain.SlotAvailable, slots[2].Status)

	detail, err := env.payments.GetByID(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPending, detail.Status)
	assert.Equal(t, result.VoucherCode, detail.VoucherCode)

	assert.Equal(t, 1, env.notifier.count(EventVoucherCreated))
	assert.Equal(t, result.VoucherCode, env.dash.lastVoucher)
}

func TestBookSpecificSlot(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	_, err := env.bookings.Book(ctx, domain.CreateBookingDTO{SlotNumber: 2})
	require.NoError(t, err)

	slots, err := env.slots.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slots[0].Status)
	assert.Equal(t, domain.SlotReserved, slots[1].Status)

	_, err = env.bookings.Book(ctx, domain.CreateBookingDTO{SlotNumber: 2})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookWhenLotFull(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	_, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	_, err = env.bookings.Book(ctx, domain.CreateBookingDTO{})
	assert.ErrorIs(t, err, ErrLotFull)
}

func TestBookUnknownSlot(t *testing.T) {
	env := newTestEnv(t, 2)

	_, err := env.bookings.Book(context.Background(), domain.CreateBookingDTO{SlotNumber: 99})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}
