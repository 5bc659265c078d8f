package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/api"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/api/handler"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/blynk"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/config"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/iot"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/mqtt"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository/memory"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository/postgresql"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/service"
)

// devSlotCount seeds the in-memory store when no database is configured.
const devSlotCount = 6

type repos struct {
	slots        repository.SlotRepository
	vouchers     repository.VoucherRepository
	transactions repository.TransactionRepository
	sessions     repository.GateSessionRepository
	deviceLogs   repository.DeviceLogRepository
}

func main() {
	// 1. Load configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Storage: postgres when DB_HOST is set, in-memory dev mode otherwise
	var r repos
	if cfg.DBHost != "" {
		db, err := postgresql.NewDB(cfg)
		if err != nil {
			log.Fatalf("Could not connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Database connection established.")
		r = repos{
			slots:        postgresql.NewPgSlotRepository(db),
			vouchers:     postgresql.NewPgVoucherRepository(db),
			transactions: postgresql.NewPgTransactionRepository(db),
			sessions:     postgresql.NewPgGateSessionRepository(db),
			deviceLogs:   postgresql.NewPgDeviceLogRepository(db),
		}
	} else {
		log.Println("WARNING: DB_HOST is not set, using in-memory storage.")
		store := memory.NewStore()
		store.SeedSlots(devSlotCount)
		r = repos{
			slots:        store.Slots(),
			vouchers:     store.Vouchers(),
			transactions: store.Transactions(),
			sessions:     store.GateSessions(),
			deviceLogs:   store.DeviceLogs(),
		}
	}

	// 3. WebSocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket manager started.")

	// 4. Broker client and dashboard client
	var busClient mqtt.Client
	if cfg.MQTTHost != "" {
		busClient = mqtt.NewClient(mqtt.Options{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			ClientID: "parqeer-backend",
		})
	} else {
		log.Println("WARNING: MQTT_HOST is not set, bus commands will be dropped.")
		busClient = mqtt.NoopClient{}
	}
	dash := blynk.NewClient(cfg.BlynkBaseURL, cfg.BlynkToken)

	// 5. Bridge and services
	bridge := iot.NewBridge(busClient, dash, webSocketManager)

	slotService := service.NewSlotService(r.slots, r.vouchers, webSocketManager, dash)
	voucherService := service.NewVoucherService(r.vouchers, r.slots, cfg.VoucherTTL)
	bookingService := service.NewBookingService(r.slots, r.transactions, voucherService, slotService,
		webSocketManager, dash, cfg.PublicAppURL)
	paymentService := service.NewPaymentService(r.transactions, r.vouchers, r.slots, slotService,
		webSocketManager, bridge)
	gateService := service.NewGateService(r.sessions, r.vouchers, r.transactions, r.slots, r.deviceLogs,
		voucherService, webSocketManager, bridge)
	authService := service.NewAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.JWTExpirationHours)

	// 6. Connect the bridge
	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	if err := bridge.Start(startCtx, gateService, slotService); err != nil {
		cancelStart()
		log.Fatalf("Could not start IoT bridge: %v", err)
	}
	cancelStart()
	defer bridge.Stop()
	log.Println("IoT bridge started.")

	// 7. Reservation sweeper
	sweeper := service.NewSweeper(r.vouchers, r.slots, r.transactions, r.sessions, slotService,
		webSocketManager, bridge, cfg.SweepInterval, cfg.GateSessionTimeout)

	var wg sync.WaitGroup
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(sweepCtx)
	}()

	// 8. HTTP router and server
	router := api.SetupRouter(api.RouterDeps{
		Slots:        slotService,
		Vouchers:     voucherService,
		Bookings:     bookingService,
		Payments:     paymentService,
		Gate:         gateService,
		Auth:         authService,
		Dash:         dash,
		Commands:     bridge,
		Transactions: r.transactions,
		DeviceLogs:   r.deviceLogs,
		WSManager:    webSocketManager,
		DeviceToken:  cfg.DeviceToken,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelSweep()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shut down: %v", err)
	}

	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
	case <-time.After(5 * time.Second):
		log.Println("Sweeper did not stop within the grace period.")
	}

	log.Println("Server stopped.")
}
