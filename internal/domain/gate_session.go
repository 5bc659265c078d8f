package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type GateSessionStatus string

const (
	GateSessionEntering GateSessionStatus = "entering"
	GateSessionParked   GateSessionStatus = "parked"
	GateSessionAborted  GateSessionStatus = "aborted"
)

// GateSession is one vehicle's passage through the single shared gate, from
// voucher validation until the vehicle is confirmed in its slot or the
// session times out. At most one session is "entering" at any instant.
//
// BuzzerActive is level-triggered: it mirrors whether the wrong-slot alarm is
// currently sounding, so the coordinator never re-issues a buzzer command for
// a state the device is already in.
type GateSession struct {
	ID           int               `json:"id"`
	VoucherID    int               `json:"voucher_id"`
	SlotID       int               `json:"slot_id"`
	SlotNumber   int               `json:"slotNumber"`
	Status       GateSessionStatus `json:"status"`
	BuzzerActive bool              `json:"buzzerActive"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  null.Time         `json:"completedAt"`
}
