package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository/memory"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Broadcast(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeCommands struct {
	mu            sync.Mutex
	gateCommands  []string // "open:1", "close:1"
	buzzer        []bool
	responses     []domain.VoucherValidateResponse
	notifications []string
}

func (f *fakeCommands) SendGateCommand(_ context.Context, command string, slotNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateCommands = append(f.gateCommands, fmt.Sprintf("%s:%d", command, slotNumber))
	return nil
}

func (f *fakeCommands) SendBuzzerCommand(_ context.Context, active bool, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buzzer = append(f.buzzer, active)
	return nil
}

func (f *fakeCommands) PublishVoucherResponse(_ context.Context, resp domain.VoucherValidateResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeCommands) NotifySystem(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, message)
	return nil
}

func (f *fakeCommands) gateCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.gateCommands {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeCommands) buzzerCount(active bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.buzzer {
		if b == active {
			n++
		}
	}
	return n
}

type fakeDashboard struct {
	mu          sync.Mutex
	countPushes int
	lastVoucher string
}

func (f *fakeDashboard) PushSlotCounts(_ context.Context, _, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countPushes++
	return nil
}

func (f *fakeDashboard) SendServoCommand(_ context.Context, _ string, _ int) error { return nil }

func (f *fakeDashboard) UpdateSensorPin(_ context.Context, _ int, _ string) error { return nil }

func (f *fakeDashboard) PushLastVoucher(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastVoucher = code
	return nil
}

// testEnv wires the full service stack over the in-memory store.
type testEnv struct {
	store    *memory.Store
	notifier *fakeNotifier
	commands *fakeCommands
	dash     *fakeDashboard

	slots    *SlotService
	vouchers *VoucherService
	bookings *BookingService
	payments *PaymentService
	gate     *GateService
	sweeper  *Sweeper
}

func newTestEnv(t *testing.T, slotCount int) *testEnv {
	t.Helper()

	store := memory.NewStore()
	store.SeedSlots(slotCount)

	env := &testEnv{
		store:    store,
		notifier: &fakeNotifier{},
		commands: &fakeCommands{},
		dash:     &fakeDashboard{},
	}

	slotRepo := store.Slots()
	voucherRepo := store.Vouchers()
	transactionRepo := store.Transactions()
	sessionRepo := store.GateSessions()
	logRepo := store.DeviceLogs()

	env.slots = NewSlotService(slotRepo, voucherRepo, env.notifier, env.dash)
	env.vouchers = NewVoucherService(voucherRepo, slotRepo, 5*time.Minute)
	env.bookings = NewBookingService(slotRepo, transactionRepo, env.vouchers, env.slots,
		env.notifier, env.dash, "http://localhost:5173")
	env.payments = NewPaymentService(transactionRepo, voucherRepo, slotRepo, env.slots,
		env.notifier, env.commands)
	env.gate = NewGateService(sessionRepo, voucherRepo, transactionRepo, slotRepo, logRepo,
		env.vouchers, env.notifier, env.commands)
	env.sweeper = NewSweeper(voucherRepo, slotRepo, transactionRepo, sessionRepo, env.slots,
		env.notifier, env.commands, time.Second, 3*time.Minute)
	return env
}

// bookAndPay runs the happy booking path through payment and returns the
// voucher code.
func (env *testEnv) bookAndPay(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	result, err := env.bookings.Book(ctx, domain.CreateBookingDTO{})
	require.NoError(t, err)

	_, err = env.payments.Pay(ctx, result.TransactionID)
	require.NoError(t, err)
	return result.VoucherCode
}
