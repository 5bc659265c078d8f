package domain

import (
	"encoding/json"
	"time"
)

// DeviceLog is a best-effort audit record of device traffic (voucher
// validations, sensor updates, gate state reports, cloud errors). Writes are
// never allowed to fail a request.
type DeviceLog struct {
	ID        int64           `json:"id"`
	DeviceID  string          `json:"deviceId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}
