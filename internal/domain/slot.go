package domain

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	SlotOccupied  SlotStatus = "occupied"
)

// ValidSlotStatus reports whether s is one of the three slot states.
func ValidSlotStatus(s SlotStatus) bool {
	return s == SlotAvailable || s == SlotReserved || s == SlotOccupied
}

type Slot struct {
	ID         int        `json:"id"`
	SlotNumber int        `json:"slotNumber"`
	Status     SlotStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SlotCounts is the per-status summary pushed to the message bus and the
// Blynk dashboard pins.
type SlotCounts struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Occupied  int `json:"occupied"`
}
