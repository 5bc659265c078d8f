package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

type AdminHandler struct {
	authService     *service.AuthService
	slotService     *service.SlotService
	transactionRepo repository.TransactionRepository
	logRepo         repository.DeviceLogRepository
	commands        service.CommandPublisher
}

func NewAdminHandler(
	as *service.AuthService,
	ss *service.SlotService,
	transactionRepo repository.TransactionRepository,
	logRepo repository.DeviceLogRepository,
	commands service.CommandPublisher,
) *AdminHandler {
	return &AdminHandler{
		authService:     as,
		slotService:     ss,
		transactionRepo: transactionRepo,
		logRepo:         logRepo,
		commands:        commands,
	}
}

// POST /admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var dto domain.AdminLoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authService.Login(dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not log in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GET /admin/overview
func (h *AdminHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	slots, err := h.slotService.GetAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch slots"})
		return
	}
	counts, err := h.slotService.Counts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch slot counts"})
		return
	}
	transactions, err := h.transactionRepo.FindRecent(ctx, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch transactions"})
		return
	}
	logs, err := h.logRepo.FindRecent(ctx, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch device logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slots":        slots,
		"summary":      counts,
		"transactions": transactions,
		"deviceLogs":   logs,
	})
}

// POST /admin/reset-slot
func (h *AdminHandler) ResetSlot(c *gin.Context) {
	var dto domain.ResetSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.slotService.ResetSlot(c.Request.Context(), dto.SlotNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not reset slot"})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// POST /admin/servo-command
func (h *AdminHandler) ServoCommand(c *gin.Context) {
	var dto domain.ServoCommandDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.commands.SendGateCommand(c.Request.Context(), dto.Command, dto.SlotNumber); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not send gate command"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": dto.Command, "slotNumber": dto.SlotNumber})
}
