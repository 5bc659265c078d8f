package api

import (
	"github.com/gin-gonic/gin"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/api/handler"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/api/middleware"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

type RouterDeps struct {
	Slots        *service.SlotService
	Vouchers     *service.VoucherService
	Bookings     *service.BookingService
	Payments     *service.PaymentService
	Gate         *service.GateService
	Auth         *service.AuthService
	Dash         service.Dashboard
	Commands     service.CommandPublisher
	Transactions repository.TransactionRepository
	DeviceLogs   repository.DeviceLogRepository
	WSManager    *handler.WebSocketManager
	DeviceToken  string
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Device-Token")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	authMw := middleware.NewAuthMiddleware(deps.Auth, deps.DeviceToken)

	wsHandler := handler.NewWebSocketHandler(deps.WSManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	v1 := r.Group("/api/v1")
	{
		slotH := handler.NewSlotHandler(deps.Slots, deps.Vouchers)
		v1.GET("/slots", slotH.GetSlots)
		v1.GET("/voucher/:code", slotH.GetVoucher)

		bookingH := handler.NewBookingHandler(deps.Bookings)
		v1.POST("/book", bookingH.CreateBooking)

		paymentH := handler.NewPaymentHandler(deps.Payments)
		paymentRoutes := v1.Group("/payment")
		{
			paymentRoutes.GET("/:id", paymentH.GetByID)
			paymentRoutes.GET("/token/:paymentToken", paymentH.GetByToken)
			paymentRoutes.POST("/:id/pay", paymentH.Pay)
			paymentRoutes.POST("/token/:paymentToken/pay", paymentH.PayByToken)
			paymentRoutes.POST("/callback", paymentH.Callback)
		}

		iotH := handler.NewIoTHandler(deps.Gate, deps.Slots, deps.Dash)
		iotRoutes := v1.Group("/iot")
		iotRoutes.Use(authMw.AuthenticateDevice())
		{
			iotRoutes.POST("/validate", iotH.ValidateVoucher)
			iotRoutes.POST("/sensor-update", iotH.SensorUpdate)
			iotRoutes.POST("/servo-callback", iotH.ServoCallback)
		}

		adminH := handler.NewAdminHandler(deps.Auth, deps.Slots, deps.Transactions, deps.DeviceLogs, deps.Commands)
		adminRoutes := v1.Group("/admin")
		{
			adminRoutes.POST("/login", adminH.Login)

			protected := adminRoutes.Group("")
			protected.Use(authMw.Authenticate())
			{
				protected.GET("/overview", adminH.Overview)
				protected.POST("/reset-slot", adminH.ResetSlot)
				protected.POST("/servo-command", adminH.ServoCommand)
			}
		}
	}
	return r
}
