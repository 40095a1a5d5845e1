package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice payment statuses.
const (
	PaymentUnpaid        = "UNPAID"
	PaymentPartiallyPaid = "PARTIALLY_PAID"
	PaymentPaid          = "PAID"
)

// Invoice groups a patient's uninvoiced sessions into a billing
// document. Outstanding amount is TotalAmount - PaidAmount - CreditApplied.
type Invoice struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	PatientID     uuid.UUID   `db:"patient_id" json:"patient_id"`
	Number        string      `db:"number" json:"number"`
	TotalAmount   float64     `db:"total_amount" json:"total_amount"`
	PaidAmount    float64     `db:"paid_amount" json:"paid_amount"`
	CreditApplied float64     `db:"credit_applied" json:"credit_applied"`
	PaymentStatus string      `db:"payment_status" json:"payment_status"`
	Items         []*LineItem `db:"-" json:"line_items,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// Outstanding returns the amount still owed on the invoice.
func (i *Invoice) Outstanding() float64 {
	return round2(i.TotalAmount - i.PaidAmount - i.CreditApplied)
}

// LineItem ties one session's charge to an invoice. Reversed marks the
// charge as undone by a cancellation; a line is reversed at most once.
type LineItem struct {
	ID        uuid.UUID `db:"id" json:"id"`
	InvoiceID uuid.UUID `db:"invoice_id" json:"invoice_id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Reversed  bool      `db:"reversed" json:"reversed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Payment records one confirmation against an invoice: cash/transfer amount
// plus any prepaid credit applied.
type Payment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	InvoiceID  uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Amount     float64   `db:"amount" json:"amount"`
	CreditUsed float64   `db:"credit_used" json:"credit_used"`
	Method     *string   `db:"method" json:"method,omitempty"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Ledger amounts are currency values; keep them at cent precision.
func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
