package domain

import "time"

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionExpired TransactionStatus = "expired"
)

func ValidTransactionStatus(s TransactionStatus) bool {
	return s == TransactionPending || s == TransactionPaid || s == TransactionExpired
}

// Transaction tracks payment for exactly one voucher. PaymentToken is the
// opaque handle the payment simulator uses; the numeric id is never exposed
// to it.
type Transaction struct {
	ID           int               `json:"id"`
	VoucherID    int               `json:"voucher_id"`
	Amount       float64           `json:"amount"`
	Status       TransactionStatus `json:"status"`
	PaymentToken string            `json:"paymentToken"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TransactionDetail joins a transaction with its voucher and slot, the shape
// the payment endpoints and the sweeper reason about.
type TransactionDetail struct {
	Transaction
	VoucherCode      string        `json:"voucherCode"`
	VoucherStatus    VoucherStatus `json:"voucherStatus"`
	VoucherSlotID    int           `json:"voucherSlotId"`
	VoucherExpiresAt time.Time     `json:"voucherExpiresAt"`
	SlotNumber       int           `json:"slotNumber"`
}
