package domain

import "time"

// DTOs bound by the gin handlers.

type CreateBookingDTO struct {
	SlotNumber int `json:"slotNumber" binding:"omitempty,min=1"`
}

type BookingResult struct {
	VoucherCode   string    `json:"voucherCode"`
	TransactionID int       `json:"transactionId"`
	PaymentToken  string    `json:"paymentToken"`
	ExpiresAt     time.Time `json:"expiresAt"`
	PaymentURL    string    `json:"paymentUrl"`
}

type ValidateVoucherDTO struct {
	Code     string `json:"code" binding:"required,len=6,numeric"`
	DeviceID string `json:"deviceId"`
}

type SensorUpdateDTO struct {
	DeviceID    string `json:"deviceId"`
	SlotNumber  int    `json:"slotNumber" binding:"required,min=1"`
	SensorIndex int    `json:"sensorIndex" binding:"min=0"`
	Value       string `json:"value" binding:"required,oneof=occupied available reserved empty"`
}

type ServoCallbackDTO struct {
	DeviceID   string `json:"deviceId"`
	ServoState string `json:"servoState" binding:"required"`
}

type PaymentCallbackDTO struct {
	TransactionID int    `json:"transactionId" binding:"required,min=1"`
	Status        string `json:"status" binding:"required"`
}

type AdminLoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ResetSlotDTO struct {
	SlotNumber int `json:"slotNumber" binding:"required,min=1"`
}

type ServoCommandDTO struct {
	SlotNumber int    `json:"slotNumber" binding:"required,min=1"`
	Command    string `json:"command" binding:"required,oneof=open close"`
}

// VoucherValidateResponse is published on parking/voucher/validateResponse
// and mirrored in the HTTP validate response.
type VoucherValidateResponse struct {
	Code       string `json:"code"`
	Valid      bool   `json:"valid"`
	SlotNumber int    `json:"slotNumber,omitempty"`
	Action     string `json:"action,omitempty"`
	Message    string `json:"message,omitempty"`
}
