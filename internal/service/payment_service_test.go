package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

func TestPayMarksTransactionPaid(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	detail, err := env.payments.Pay(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPaid, detail.Status)
	assert.Equal(t, 1, env.notifier.count(EventPaymentSuccess))
	assert.Len(t, env.commands.notifications, 1)
}

func TestPayTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	_, err = env.payments.Pay(ctx, result.TransactionID)
	require.NoError(t, err)

	_, err = env.payments.Pay(ctx, result.TransactionID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, env.notifier.count(EventPaymentSuccess))
}

func TestPayAfterVoucherTTLExpiresReservation(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	env.payments.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	_, err = env.payments.Pay(ctx, result.TransactionID)
	assert.ErrorIs(t, err, ErrReservationExpired)

	detail, err := env.payments.GetByID(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionExpired, detail.Status)
	assert.Equal(t, domain.VoucherExpired, detail.VoucherStatus)

	slots, err := env.slots.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slots[0].Status)
	assert.Equal(t, 1, env.notifier.count(EventReservationExpired))
}

func TestPayByTokenLookup(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	detail, err := env.payments.GetByToken(ctx, result.PaymentToken)
	require.NoError(t, err)
	assert.Equal(t, result.TransactionID, detail.ID)
}

func TestCallbackSettlesOnSuccess(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	detail, err := env.payments.Callback(ctx, domain.PaymentCallbackDTO{
		TransactionID: result.TransactionID,
		Status:        "success",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPaid, detail.Status)
}

func TestCallbackIgnoresFailureStatus(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	detail, err := env.payments.Callback(ctx, domain.PaymentCallbackDTO{
		TransactionID: result.TransactionID,
		Status:        "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPending, detail.Status)
}
