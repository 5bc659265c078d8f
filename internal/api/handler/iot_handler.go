package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

// IoTHandler is the HTTP fallback for devices that cannot reach the broker.
// It mirrors the bus topics one to one.
type IoTHandler struct {
	gateService *service.GateService
	slotService *service.SlotService
	dash        service.Dashboard
}

func NewIoTHandler(gs *service.GateService, ss *service.SlotService, dash service.Dashboard) *IoTHandler {
	return &IoTHandler{gateService: gs, slotService: ss, dash: dash}
}

// POST /iot/validate
func (h *IoTHandler) ValidateVoucher(c *gin.Context) {
	var dto domain.ValidateVoucherDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.gateService.ValidateAndOpen(c.Request.Context(), dto)
	if err != nil {
		status := http.StatusUnprocessableEntity
		message := "Validation failed"
		switch {
		case errors.Is(err, service.ErrGateBusy):
			status, message = http.StatusConflict, "Gate is currently in use"
		case errors.Is(err, repository.ErrNotFound):
			status, message = http.StatusNotFound, "Voucher not found"
		case errors.Is(err, service.ErrVoucherNotUsable):
			message = "Voucher not usable"
		case errors.Is(err, service.ErrVoucherExpired):
			message = "Voucher expired"
		case errors.Is(err, service.ErrNotPaid):
			status, message = http.StatusPaymentRequired, "Voucher not paid"
		default:
			status = http.StatusInternalServerError
		}
		c.JSON(status, domain.VoucherValidateResponse{
			Code:    dto.Code,
			Valid:   false,
			Message: message,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /iot/sensor-update
func (h *IoTHandler) SensorUpdate(c *gin.Context) {
	var dto domain.SensorUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := service.NormalizeSensorValue(dto.Value)
	slot, changed, err := h.slotService.ApplySensorStatus(c.Request.Context(), dto.SlotNumber, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not apply sensor update"})
		return
	}
	if err := h.dash.UpdateSensorPin(c.Request.Context(), dto.SensorIndex, dto.Value); err != nil {
		log.Printf("sensor pin update: %v", err)
	}
	if err := h.gateService.OnSensorEvent(c.Request.Context(), dto.SlotNumber, status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not arbitrate sensor event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot, "changed": changed})
}

// POST /iot/servo-callback
func (h *IoTHandler) ServoCallback(c *gin.Context) {
	var dto domain.ServoCallbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.gateService.OnGateState(c.Request.Context(), dto.DeviceID, dto.ServoState)
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}
