package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

type SlotHandler struct {
	slotService    *service.SlotService
	voucherService *service.VoucherService
}

func NewSlotHandler(ss *service.SlotService, vs *service.VoucherService) *SlotHandler {
	return &SlotHandler{slotService: ss, voucherService: vs}
}

// GET /slots
func (h *SlotHandler) GetSlots(c *gin.Context) {
	slots, err := h.slotService.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch slots"})
		return
	}
	counts, err := h.slotService.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch slot counts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "summary": counts})
}

// GET /voucher/:code
func (h *SlotHandler) GetVoucher(c *gin.Context) {
	code := c.Param("code")
	detail, err := h.voucherService.GetByCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voucher not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch voucher"})
		return
	}
	c.JSON(http.StatusOK, detail)
}
