package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(ps *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// GET /payment/:id
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	detail, err := h.paymentService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch transaction"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GET /payment/token/:paymentToken
func (h *PaymentHandler) GetByToken(c *gin.Context) {
	detail, err := h.paymentService.GetByToken(c.Request.Context(), c.Param("paymentToken"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch transaction"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// POST /payment/:id/pay
func (h *PaymentHandler) Pay(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	detail, err := h.paymentService.Pay(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, service.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrReservationExpired):
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process payment"})
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

// POST /payment/token/:paymentToken/pay
func (h *PaymentHandler) PayByToken(c *gin.Context) {
	detail, err := h.paymentService.PayByToken(c.Request.Context(), c.Param("paymentToken"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, service.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrReservationExpired):
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process payment"})
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

// POST /payment/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	var dto domain.PaymentCallbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detail, err := h.paymentService.Callback(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, service.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrReservationExpired):
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process callback"})
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}
