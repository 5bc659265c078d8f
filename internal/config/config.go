package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	MQTTHost     string
	MQTTPort     string
	MQTTUsername string
	MQTTPassword string

	DeviceToken string

	BlynkBaseURL string
	BlynkToken   string

	PublicAppURL string

	AdminUsername string
	AdminPassword string

	JWTSecret          string
	JWTExpirationHours time.Duration

	VoucherTTL         time.Duration
	SweepInterval      time.Duration
	GateSessionTimeout time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "12"))
	voucherTTLMin, _ := strconv.Atoi(getEnv("VOUCHER_TTL_MINUTES", "5"))
	sweepIntervalMs, _ := strconv.Atoi(getEnv("RESERVATION_SWEEP_INTERVAL_MS", "30000"))
	gateTimeoutMin, _ := strconv.Atoi(getEnv("GATE_SESSION_TIMEOUT_MINUTES", "3"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parqeer"),
		DBPassword: getEnv("DB_PASSWORD", "parqeer"),
		DBName:     getEnv("DB_NAME", "parqeer_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		MQTTHost:     getEnv("MQTT_HOST", ""),
		MQTTPort:     getEnv("MQTT_PORT", "1883"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		DeviceToken: getEnv("DEVICE_TOKEN", ""),

		BlynkBaseURL: getEnv("BLYNK_BASE_URL", ""),
		BlynkToken:   getEnv("BLYNK_TOKEN", ""),

		PublicAppURL: getEnv("PUBLIC_APP_URL", "http://localhost:5173"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		VoucherTTL:         time.Duration(voucherTTLMin) * time.Minute,
		SweepInterval:      time.Duration(sweepIntervalMs) * time.Millisecond,
		GateSessionTimeout: time.Duration(gateTimeoutMin) * time.Minute,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
