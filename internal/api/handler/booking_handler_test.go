package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository/memory"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

type nopNotifier struct{}

func (nopNotifier) Broadcast(string, any) {}

type nopDashboard struct{}

func (nopDashboard) PushSlotCounts(context.Context, int, int) error      { return nil }
func (nopDashboard) SendServoCommand(context.Context, string, int) error { return nil }
func (nopDashboard) UpdateSensorPin(context.Context, int, string) error  { return nil }
func (nopDashboard) PushLastVoucher(context.Context, string) error       { return nil }

func newBookingRouter(t *testing.T, slotCount int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.SeedSlots(slotCount)

	slotRepo := store.Slots()
	voucherRepo := store.Vouchers()

	slots := service.NewSlotService(slotRepo, voucherRepo, nopNotifier{}, nopDashboard{})
	vouchers := service.NewVoucherService(voucherRepo, slotRepo, 5*time.Minute)
	bookings := service.NewBookingService(slotRepo, store.Transactions(), vouchers, slots,
		nopNotifier{}, nopDashboard{}, "http://localhost:5173")

	r := gin.New()
	r.POST("/book", NewBookingHandler(bookings).CreateBooking)
	return r
}

func postBook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingFirstAvailable(t *testing.T) {
	r := newBookingRouter(t, 2)

	w := postBook(r, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "voucherCode")
}

func TestCreateBookingFullLotReturnsNotFound(t *testing.T) {
	r := newBookingRouter(t, 1)

	require.Equal(t, http.StatusCreated, postBook(r, "").Code)

	w := postBook(r, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBookingTakenSlotReturnsConflict(t *testing.T) {
	r := newBookingRouter(t, 2)

	require.Equal(t, http.StatusCreated, postBook(r, `{"slotNumber":1}`).Code)

	w := postBook(r, `{"slotNumber":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
