package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

type BookingHandler struct {
	bookingService *service.BookingService
}

func NewBookingHandler(bs *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bs}
}

// POST /book
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	// An empty body books the first available slot.
	var dto domain.CreateBookingDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.bookingService.Book(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLotFull):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrSlotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create booking"})
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}
