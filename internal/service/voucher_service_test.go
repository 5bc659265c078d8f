package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

func TestIssueGeneratesSixDigitCodes(t *testing.T) {
	env := newTestEnv(t, 1)

	v, err := env.vouchers.Issue(context.Background(), 1)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), v.Code)
	assert.Equal(t, domain.VoucherUnused, v.Status)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), v.ExpiresAt, 2*time.Second)
}

func TestIssueRetriesOnCodeCollision(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	codes := []string{"111111", "111111", "222222"}
	calls := 0
	env.vouchers.codeFn = func() (string, error) {
		code := codes[calls%len(codes)]
		calls++
		return code, nil
	}

	first, err := env.vouchers.Issue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "111111", first.Code)

	// The second issue collides once, then lands on a fresh code.
	second, err := env.vouchers.Issue(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "222222", second.Code)
	assert.Equal(t, 3, calls)
}

func TestIssueGivesUpAfterBoundedAttempts(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	env.vouchers.codeFn = func() (string, error) { return "333333", nil }

	_, err := env.vouchers.Issue(ctx, 1)
	require.NoError(t, err)

	calls := 0
	env.vouchers.codeFn = func() (string, error) {
		calls++
		return "333333", nil
	}
	_, err = env.vouchers.Issue(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, codeAttempts, calls)
}

func TestGetByCodeLazilyExpiresStaleVoucher(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	env.vouchers.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	detail, err := env.vouchers.GetByCode(ctx, result.VoucherCode)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherExpired, detail.Status)

	slots, err := env.slots.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slots[0].Status)
}

func TestGetByCodeLeavesFreshVoucherAlone(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	detail, err := env.vouchers.GetByCode(ctx, result.VoucherCode)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherUnused, detail.Status)
	assert.Equal(t, domain.SlotReserved, detail.SlotStatus)
}
