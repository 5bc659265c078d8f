package iot

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/mqtt"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository/memory"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

// fakeBusClient records publishes and lets tests inject inbound messages
// through the same router the paho client would use.
type fakeBusClient struct {
	mu        sync.Mutex
	router    *mqtt.Router
	published map[string][][]byte
}

func newFakeBusClient() *fakeBusClient {
	return &fakeBusClient{
		router:    mqtt.NewRouter(),
		published: make(map[string][][]byte),
	}
}

func (f *fakeBusClient) Connect(ctx context.Context) error { return nil }

func (f *fakeBusClient) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = append(f.published[topic], payload)
	return nil
}

func (f *fakeBusClient) Subscribe(filter string, h mqtt.Handler) error {
	f.router.Register(filter, h)
	return nil
}

func (f *fakeBusClient) Disconnect() {}

func (f *fakeBusClient) deliver(topic string, payload []byte) {
	f.router.Dispatch(topic, payload)
}

func (f *fakeBusClient) messages(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[topic]
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string, any) {}

type nopDashboard struct{}

func (nopDashboard) PushSlotCounts(context.Context, int, int) error      { return nil }
func (nopDashboard) SendServoCommand(context.Context, string, int) error { return nil }
func (nopDashboard) UpdateSensorPin(context.Context, int, string) error  { return nil }
func (nopDashboard) PushLastVoucher(context.Context, string) error       { return nil }

type bridgeEnv struct {
	bus      *fakeBusClient
	bridge   *Bridge
	bookings *service.BookingService
	payments *service.PaymentService
	slots    *service.SlotService
}

func newBridgeEnv(t *testing.T, slotCount int) *bridgeEnv {
	t.Helper()

	store := memory.NewStore()
	store.SeedSlots(slotCount)

	bus := newFakeBusClient()
	bridge := NewBridge(bus, nopDashboard{}, nopNotifier{})

	slotRepo := store.Slots()
	voucherRepo := store.Vouchers()
	transactionRepo := store.Transactions()

	slots := service.NewSlotService(slotRepo, voucherRepo, nopNotifier{}, nopDashboard{})
	vouchers := service.NewVoucherService(voucherRepo, slotRepo, 5*time.Minute)
	bookings := service.NewBookingService(slotRepo, transactionRepo, vouchers, slots,
		nopNotifier{}, nopDashboard{}, "http://localhost:5173")
	payments := service.NewPaymentService(transactionRepo, voucherRepo, slotRepo, slots,
		nopNotifier{}, bridge)
	gate := service.NewGateService(store.GateSessions(), voucherRepo, transactionRepo, slotRepo,
		store.DeviceLogs(), vouchers, nopNotifier{}, bridge)

	require.NoError(t, bridge.Start(context.Background(), gate, slots))
	return &bridgeEnv{bus: bus, bridge: bridge, bookings: bookings, payments: payments, slots: slots}
}

func (env *bridgeEnv) bookAndPay(t *testing.T) string {
	t.Helper()
	result, err := env.bookings.Book(context.Background(), domain.CreateBookingDTO{})
	require.NoError(t, err)
	_, err = env.payments.Pay(context.Background(), result.TransactionID)
	require.NoError(t, err)
	return result.VoucherCode
}

func TestVoucherCheckOpensGate(t *testing.T) {
	env := newBridgeEnv(t, 2)
	code := env.bookAndPay(t)

	env.bus.deliver("parking/voucher/check", []byte(`{"code":"`+code+`","deviceId":"gate-1"}`))

	opens := env.bus.messages(topicGateOpen)
	require.Len(t, opens, 1)
	var cmd gateCommandMessage
	require.NoError(t, json.Unmarshal(opens[0], &cmd))
	assert.Equal(t, "open", cmd.Command)
	assert.Equal(t, 1, cmd.SlotNumber)
	assert.NotEmpty(t, cmd.RequestID)
}

func TestVoucherCheckRejectionIsPublished(t *testing.T) {
	env := newBridgeEnv(t, 1)

	env.bus.deliver("parking/voucher/check", []byte(`{"code":"999999"}`))

	responses := env.bus.messages(topicVoucherResponse)
	require.Len(t, responses, 1)
	var resp domain.VoucherValidateResponse
	require.NoError(t, json.Unmarshal(responses[0], &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, "Voucher not found", resp.Message)
	assert.Empty(t, env.bus.messages(topicGateOpen))
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	env := newBridgeEnv(t, 1)

	env.bus.deliver("parking/voucher/check", []byte(`{not json`))
	env.bus.deliver("parking/voucher/check", []byte(`{}`))
	env.bus.deliver("parking/slot/abc/status", []byte(`occupied`))
	env.bus.deliver("parking/slot/1/status", []byte(`{bad`))

	assert.Empty(t, env.bus.messages(topicGateOpen))
	assert.Empty(t, env.bus.messages(topicVoucherResponse))
}

func TestSlotStatusMessageUpdatesRegistry(t *testing.T) {
	env := newBridgeEnv(t, 2)

	env.bus.deliver("parking/slot/2/status", []byte("1"))

	slots, err := env.slots.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slots[1].Status)
	assert.Equal(t, domain.SlotAvailable, slots[0].Status)
}

func TestArrivalOnExpectedSlotClosesGate(t *testing.T) {
	env := newBridgeEnv(t, 2)
	code := env.bookAndPay(t)

	env.bus.deliver("parking/voucher/check", []byte(`{"code":"`+code+`"}`))
	env.bus.deliver("parking/slot/1/status", []byte("occupied"))

	require.Len(t, env.bus.messages(topicGateClose), 1)
}

func TestWrongSlotArrivalPublishesBuzzer(t *testing.T) {
	env := newBridgeEnv(t, 2)
	code := env.bookAndPay(t)

	env.bus.deliver("parking/voucher/check", []byte(`{"code":"`+code+`"}`))
	env.bus.deliver("parking/slot/2/status", []byte("occupied"))
	env.bus.deliver("parking/slot/2/status", []byte("occupied"))

	buzzes := env.bus.messages(topicWrongSlot)
	require.Len(t, buzzes, 1)
	var cmd buzzerCommandMessage
	require.NoError(t, json.Unmarshal(buzzes[0], &cmd))
	assert.True(t, cmd.Active)
	assert.Equal(t, 2, cmd.SlotNumber)
}
