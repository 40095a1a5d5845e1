package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type InvoiceRepository interface {
	// NextNumber draws the next invoice sequence value for the tenant.
	NextNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, inv *Invoice, items []*LineItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// GetForUpdate row-locks the invoice inside the surrounding transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// UpdateAmounts persists TotalAmount, PaidAmount, CreditApplied and
	// PaymentStatus.
	UpdateAmounts(ctx context.Context, inv *Invoice) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	// UnreversedLineBySession returns the session's active line item,
	// row-locked, or nil when the session was never invoiced or its line
	// is already reversed.
	UnreversedLineBySession(ctx context.Context, sessionID uuid.UUID) (*LineItem, error)
	MarkLineReversed(ctx context.Context, lineID uuid.UUID) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
}

// BillableSession is the slice of session state billing needs.
type BillableSession struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Cost          float64   `json:"cost"`
}

// SessionSource exposes the scheduling data billing consumes: non-cancelled
// sessions awaiting invoicing. Implemented by an adapter over the scheduling
// service so the two packages stay decoupled.
type SessionSource interface {
	ListUninvoiced(ctx context.Context, patientID uuid.UUID) ([]BillableSession, error)
	MarkInvoiced(ctx context.Context, sessionIDs []uuid.UUID) error
}
