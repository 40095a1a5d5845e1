package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/therapyhub/therapyhub/internal/domain/identity"
	"github.com/therapyhub/therapyhub/internal/platform/apperr"
	"github.com/therapyhub/therapyhub/internal/platform/db"
)

// PatientLedger is the slice of the patient repository billing mutates.
// Satisfied by identity.PatientRepository.
type PatientLedger interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	UpdateLedger(ctx context.Context, id uuid.UUID, creditBalance, outstandingDues float64) error
}

type Service struct {
	invoices InvoiceRepository
	payments PaymentRepository
	sessions SessionSource
	patients PatientLedger
	runTx    db.TxRunner
}

func NewService(invoices InvoiceRepository, payments PaymentRepository,
	sessions SessionSource, patients PatientLedger, runTx db.TxRunner) *Service {
	return &Service{
		invoices: invoices,
		payments: payments,
		sessions: sessions,
		patients: patients,
		runTx:    runTx,
	}
}

// CreateInvoice groups the patient's uninvoiced sessions into a
// new invoice. With sessionIDs given, only those sessions are billed; they
// must all be billable. The patient's outstanding dues rise by the invoice
// total in the same transaction.
func (s *Service) CreateInvoice(ctx context.Context, patientID uuid.UUID, sessionIDs []uuid.UUID) (*Invoice, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}

	var out *Invoice
	err := s.runTx(ctx, func(ctx context.Context) error {
		patient, err := s.patients.GetForUpdate(ctx, patientID)
		if err != nil {
			return err
		}

		billable, err := s.sessions.ListUninvoiced(ctx, patientID)
		if err != nil {
			return err
		}

		selected := billable
		if len(sessionIDs) > 0 {
			byID := make(map[uuid.UUID]BillableSession, len(billable))
			for _, b := range billable {
				byID[b.ID] = b
			}
			selected = selected[:0]
			for _, id := range sessionIDs {
				b, ok := byID[id]
				if !ok {
					return apperr.Validation(fmt.Sprintf("session %s is not billable", id))
				}
				selected = append(selected, b)
			}
		}
		if len(selected) == 0 {
			return apperr.Validation("patient has no uninvoiced sessions")
		}

		var total float64
		items := make([]*LineItem, 0, len(selected))
		ids := make([]uuid.UUID, 0, len(selected))
		for _, b := range selected {
			total += b.Cost
			items = append(items, &LineItem{SessionID: b.ID, Amount: round2(b.Cost)})
			ids = append(ids, b.ID)
		}
		total = round2(total)

		number, err := s.invoices.NextNumber(ctx)
		if err != nil {
			return err
		}

		inv := &Invoice{
			PatientID:     patientID,
			Number:        fmt.Sprintf("INV-%06d", number),
			TotalAmount:   total,
			PaymentStatus: PaymentUnpaid,
		}
		if err := s.invoices.Create(ctx, inv, items); err != nil {
			return err
		}
		if err := s.sessions.MarkInvoiced(ctx, ids); err != nil {
			return err
		}
		if err := s.patients.UpdateLedger(ctx, patientID,
			patient.CreditBalance, round2(patient.TotalOutstandingDues+total)); err != nil {
			return err
		}

		out = inv
		return nil
	})
	return out, err
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	return s.payments.ListByInvoice(ctx, invoiceID)
}

// ConfirmPayment applies a payment of paidAmount cash plus useCreditAmount
// prepaid credit to the invoice. Outstanding dues fall by the full applied
// amount; the credit balance falls by the credit used. Fails without effect
// when credit exceeds the balance or the applied amount exceeds what is
// outstanding.
func (s *Service) ConfirmPayment(ctx context.Context, invoiceID uuid.UUID,
	paidAmount, useCreditAmount float64, method *string) (*Invoice, error) {

	if paidAmount < 0 || useCreditAmount < 0 {
		return nil, apperr.Validation("payment amounts cannot be negative")
	}
	applied := round2(paidAmount + useCreditAmount)
	if applied <= 0 {
		return nil, apperr.Validation("payment must apply a positive amount")
	}

	var out *Invoice
	err := s.runTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.PaymentStatus == PaymentPaid {
			return apperr.InvalidTransition("invoice %s is already paid", inv.Number)
		}
		if applied > inv.Outstanding() {
			return apperr.Validation("payment exceeds the outstanding amount")
		}

		patient, err := s.patients.GetForUpdate(ctx, inv.PatientID)
		if err != nil {
			return err
		}
		if useCreditAmount > patient.CreditBalance {
			return apperr.InsufficientCredit(useCreditAmount, patient.CreditBalance)
		}

		inv.PaidAmount = round2(inv.PaidAmount + paidAmount)
		inv.CreditApplied = round2(inv.CreditApplied + useCreditAmount)
		if inv.Outstanding() <= 0 {
			inv.PaymentStatus = PaymentPaid
		} else {
			inv.PaymentStatus = PaymentPartiallyPaid
		}
		if err := s.invoices.UpdateAmounts(ctx, inv); err != nil {
			return err
		}

		if err := s.patients.UpdateLedger(ctx, inv.PatientID,
			round2(patient.CreditBalance-useCreditAmount),
			round2(patient.TotalOutstandingDues-applied)); err != nil {
			return err
		}

		payment := &Payment{
			InvoiceID:  inv.ID,
			Amount:     round2(paidAmount),
			CreditUsed: round2(useCreditAmount),
			Method:     method,
			ReceivedAt: time.Now().UTC(),
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}

		out = inv
		return nil
	})
	return out, err
}

// ReverseSession undoes a cancelled session's financial effect. The paid
// share of the session's line item (cash and credit alike, split
// proportionally to how much of the invoice is settled) returns to the
// patient's credit balance; the unpaid share comes off outstanding dues.
// Sessions never invoiced, or lines already reversed, are a no-op, which
// makes the reversal idempotent per session.
func (s *Service) ReverseSession(ctx context.Context, sessionID, patientID uuid.UUID) error {
	return s.runTx(ctx, func(ctx context.Context) error {
		line, err := s.invoices.UnreversedLineBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		if line == nil {
			return nil
		}

		inv, err := s.invoices.GetForUpdate(ctx, line.InvoiceID)
		if err != nil {
			return err
		}
		patient, err := s.patients.GetForUpdate(ctx, patientID)
		if err != nil {
			return err
		}

		var paidRefund, creditRefund float64
		if inv.TotalAmount > 0 {
			paidRefund = round2(line.Amount * inv.PaidAmount / inv.TotalAmount)
			creditRefund = round2(line.Amount * inv.CreditApplied / inv.TotalAmount)
		}
		refund := round2(paidRefund + creditRefund)
		if refund > line.Amount {
			refund = line.Amount
		}
		duesRelief := round2(line.Amount - refund)

		if err := s.invoices.MarkLineReversed(ctx, line.ID); err != nil {
			return err
		}

		inv.TotalAmount = round2(inv.TotalAmount - line.Amount)
		inv.PaidAmount = round2(inv.PaidAmount - paidRefund)
		inv.CreditApplied = round2(inv.CreditApplied - creditRefund)
		switch {
		case inv.TotalAmount <= 0 || inv.Outstanding() <= 0:
			inv.PaymentStatus = PaymentPaid
		case inv.PaidAmount+inv.CreditApplied > 0:
			inv.PaymentStatus = PaymentPartiallyPaid
		default:
			inv.PaymentStatus = PaymentUnpaid
		}
		if err := s.invoices.UpdateAmounts(ctx, inv); err != nil {
			return err
		}

		dues := round2(patient.TotalOutstandingDues - duesRelief)
		if dues < 0 {
			dues = 0
		}
		return s.patients.UpdateLedger(ctx, patientID,
			round2(patient.CreditBalance+refund), dues)
	})
}
