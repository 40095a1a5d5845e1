package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/therapyhub/therapyhub/internal/domain/identity"
	"github.com/therapyhub/therapyhub/internal/platform/apperr"
)

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockInvoiceRepo struct {
	invoices map[uuid.UUID]*Invoice
	lines    map[uuid.UUID]*LineItem
	next     int64
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		lines:    make(map[uuid.UUID]*LineItem),
	}
}

func (m *mockInvoiceRepo) NextNumber(ctx context.Context) (int64, error) {
	m.next++
	return m.next, nil
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *Invoice, items []*LineItem) error {
	inv.ID = uuid.New()
	for _, it := range items {
		it.ID = uuid.New()
		it.InvoiceID = inv.ID
		dup := *it
		m.lines[it.ID] = &dup
	}
	inv.Items = items
	dup := *inv
	m.invoices[inv.ID] = &dup
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	dup := *inv
	return &dup, nil
}

func (m *mockInvoiceRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return m.GetByID(ctx, id)
}

func (m *mockInvoiceRepo) UpdateAmounts(ctx context.Context, inv *Invoice) error {
	stored, ok := m.invoices[inv.ID]
	if !ok {
		return apperr.NotFound("invoice not found")
	}
	stored.TotalAmount = inv.TotalAmount
	stored.PaidAmount = inv.PaidAmount
	stored.CreditApplied = inv.CreditApplied
	stored.PaymentStatus = inv.PaymentStatus
	return nil
}

func (m *mockInvoiceRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if inv.PatientID == patientID {
			dup := *inv
			out = append(out, &dup)
		}
	}
	return out, len(out), nil
}

func (m *mockInvoiceRepo) UnreversedLineBySession(ctx context.Context, sessionID uuid.UUID) (*LineItem, error) {
	for _, l := range m.lines {
		if l.SessionID == sessionID && !l.Reversed {
			dup := *l
			return &dup, nil
		}
	}
	return nil, nil
}

func (m *mockInvoiceRepo) MarkLineReversed(ctx context.Context, lineID uuid.UUID) error {
	l, ok := m.lines[lineID]
	if !ok || l.Reversed {
		return apperr.InvalidTransition("line item already reversed")
	}
	l.Reversed = true
	return nil
}

type mockPaymentRepo struct {
	payments []*Payment
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	dup := *p
	m.payments = append(m.payments, &dup)
	return nil
}

func (m *mockPaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			dup := *p
			out = append(out, &dup)
		}
	}
	return out, nil
}

type fakeSessionSource struct {
	billable []BillableSession
	invoiced map[uuid.UUID]bool
}

func newFakeSessionSource(sessions ...BillableSession) *fakeSessionSource {
	return &fakeSessionSource{billable: sessions, invoiced: make(map[uuid.UUID]bool)}
}

func (f *fakeSessionSource) ListUninvoiced(ctx context.Context, patientID uuid.UUID) ([]BillableSession, error) {
	var out []BillableSession
	for _, b := range f.billable {
		if b.PatientID == patientID && !f.invoiced[b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSessionSource) MarkInvoiced(ctx context.Context, sessionIDs []uuid.UUID) error {
	for _, id := range sessionIDs {
		f.invoiced[id] = true
	}
	return nil
}

type mockLedger struct {
	patients map[uuid.UUID]*identity.Patient
}

func newMockLedger(patients ...*identity.Patient) *mockLedger {
	m := &mockLedger{patients: make(map[uuid.UUID]*identity.Patient)}
	for _, p := range patients {
		m.patients[p.ID] = p
	}
	return m
}

func (m *mockLedger) GetForUpdate(ctx context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	dup := *p
	return &dup, nil
}

func (m *mockLedger) UpdateLedger(ctx context.Context, id uuid.UUID, creditBalance, outstandingDues float64) error {
	p, ok := m.patients[id]
	if !ok {
		return apperr.NotFound("patient not found")
	}
	p.CreditBalance = creditBalance
	p.TotalOutstandingDues = outstandingDues
	return nil
}

type fixture struct {
	svc      *Service
	invoices *mockInvoiceRepo
	payments *mockPaymentRepo
	sessions *fakeSessionSource
	ledger   *mockLedger
}

func newFixture(patient *identity.Patient, sessions ...BillableSession) *fixture {
	f := &fixture{
		invoices: newMockInvoiceRepo(),
		payments: &mockPaymentRepo{},
		sessions: newFakeSessionSource(sessions...),
		ledger:   newMockLedger(patient),
	}
	f.svc = NewService(f.invoices, f.payments, f.sessions, f.ledger, passthroughTx)
	return f
}

func testPatient() *identity.Patient {
	return &identity.Patient{ID: uuid.New(), FirstName: "Asha", LastName: "Rao"}
}

func billableOn(patientID uuid.UUID, cost float64) BillableSession {
	return BillableSession{
		ID:            uuid.New(),
		PatientID:     patientID,
		ScheduledDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		Cost:          cost,
	}
}

func TestCreateInvoiceSumsUninvoicedSessions(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	s1 := billableOn(patient.ID, 45)
	s2 := billableOn(patient.ID, 60)
	f := newFixture(patient, s1, s2)

	inv, err := f.svc.CreateInvoice(ctx, patient.ID, nil)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if inv.TotalAmount != 105 {
		t.Errorf("total = %v, want 105", inv.TotalAmount)
	}
	if inv.PaymentStatus != PaymentUnpaid {
		t.Errorf("status = %s, want %s", inv.PaymentStatus, PaymentUnpaid)
	}
	if inv.Number != "INV-000001" {
		t.Errorf("number = %s, want INV-000001", inv.Number)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("line items = %d, want 2", len(inv.Items))
	}
	if !f.sessions.invoiced[s1.ID] || !f.sessions.invoiced[s2.ID] {
		t.Error("sessions not marked invoiced")
	}
	if got := f.ledger.patients[patient.ID].TotalOutstandingDues; got != 105 {
		t.Errorf("outstanding dues = %v, want 105", got)
	}
}

func TestCreateInvoiceSelectedSessions(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	s1 := billableOn(patient.ID, 45)
	s2 := billableOn(patient.ID, 60)
	f := newFixture(patient, s1, s2)

	inv, err := f.svc.CreateInvoice(ctx, patient.ID, []uuid.UUID{s2.ID})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if inv.TotalAmount != 60 {
		t.Errorf("total = %v, want 60", inv.TotalAmount)
	}
	if f.sessions.invoiced[s1.ID] {
		t.Error("unselected session marked invoiced")
	}
}

func TestCreateInvoiceRejectsUnbillableSelection(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	f := newFixture(patient, billableOn(patient.ID, 45))

	_, err := f.svc.CreateInvoice(ctx, patient.ID, []uuid.UUID{uuid.New()})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCreateInvoiceNothingToBill(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	f := newFixture(patient)

	_, err := f.svc.CreateInvoice(ctx, patient.ID, nil)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
	if got := f.ledger.patients[patient.ID].TotalOutstandingDues; got != 0 {
		t.Errorf("dues changed to %v on failed invoice", got)
	}
}

func invoiceFor(t *testing.T, f *fixture, patientID uuid.UUID) *Invoice {
	t.Helper()
	inv, err := f.svc.CreateInvoice(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func TestConfirmPaymentPartial(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	patient.CreditBalance = 20
	f := newFixture(patient, billableOn(patient.ID, 100))
	inv := invoiceFor(t, f, patient.ID)

	got, err := f.svc.ConfirmPayment(ctx, inv.ID, 30, 10, nil)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if got.PaymentStatus != PaymentPartiallyPaid {
		t.Errorf("status = %s, want %s", got.PaymentStatus, PaymentPartiallyPaid)
	}
	if got.Outstanding() != 60 {
		t.Errorf("outstanding = %v, want 60", got.Outstanding())
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 10 {
		t.Errorf("credit balance = %v, want 10", p.CreditBalance)
	}
	if p.TotalOutstandingDues != 60 {
		t.Errorf("dues = %v, want 60", p.TotalOutstandingDues)
	}
	if len(f.payments.payments) != 1 {
		t.Fatalf("payments recorded = %d, want 1", len(f.payments.payments))
	}
	if rec := f.payments.payments[0]; rec.Amount != 30 || rec.CreditUsed != 10 {
		t.Errorf("payment record = %v/%v, want 30/10", rec.Amount, rec.CreditUsed)
	}
}

func TestConfirmPaymentSettlesInvoice(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	f := newFixture(patient, billableOn(patient.ID, 100))
	inv := invoiceFor(t, f, patient.ID)

	got, err := f.svc.ConfirmPayment(ctx, inv.ID, 100, 0, nil)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if got.PaymentStatus != PaymentPaid {
		t.Errorf("status = %s, want %s", got.PaymentStatus, PaymentPaid)
	}
	if p := f.ledger.patients[patient.ID]; p.TotalOutstandingDues != 0 {
		t.Errorf("dues = %v, want 0", p.TotalOutstandingDues)
	}

	_, err = f.svc.ConfirmPayment(ctx, inv.ID, 10, 0, nil)
	if apperr.KindOf(err) != apperr.KindInvalidStateTransition {
		t.Fatalf("paying settled invoice: err = %v, want invalid transition", err)
	}
}

func TestConfirmPaymentOverCredit(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	patient.CreditBalance = 5
	f := newFixture(patient, billableOn(patient.ID, 100))
	inv := invoiceFor(t, f, patient.ID)

	_, err := f.svc.ConfirmPayment(ctx, inv.ID, 0, 10, nil)
	if apperr.KindOf(err) != apperr.KindInsufficientCredit {
		t.Fatalf("err = %v, want insufficient credit", err)
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 5 || p.TotalOutstandingDues != 100 {
		t.Errorf("ledger changed on failed payment: credit=%v dues=%v", p.CreditBalance, p.TotalOutstandingDues)
	}
	stored, _ := f.invoices.GetByID(ctx, inv.ID)
	if stored.PaidAmount != 0 || stored.CreditApplied != 0 {
		t.Errorf("invoice changed on failed payment: %+v", stored)
	}
}

func TestConfirmPaymentExceedsOutstanding(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	f := newFixture(patient, billableOn(patient.ID, 100))
	inv := invoiceFor(t, f, patient.ID)

	_, err := f.svc.ConfirmPayment(ctx, inv.ID, 150, 0, nil)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestConfirmPaymentValidation(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	f := newFixture(patient, billableOn(patient.ID, 100))
	inv := invoiceFor(t, f, patient.ID)

	cases := []struct {
		name   string
		paid   float64
		credit float64
	}{
		{"negative paid", -10, 0},
		{"negative credit", 0, -5},
		{"zero total", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.ConfirmPayment(ctx, inv.ID, tc.paid, tc.credit, nil)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
}

func TestReverseSessionUninvoicedIsNoop(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	patient.TotalOutstandingDues = 40
	f := newFixture(patient)

	if err := f.svc.ReverseSession(ctx, uuid.New(), patient.ID); err != nil {
		t.Fatalf("ReverseSession: %v", err)
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 0 || p.TotalOutstandingDues != 40 {
		t.Errorf("ledger changed: credit=%v dues=%v", p.CreditBalance, p.TotalOutstandingDues)
	}
}

func TestReverseSessionUnpaidReducesDues(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	sess := billableOn(patient.ID, 45)
	f := newFixture(patient, sess, billableOn(patient.ID, 60))
	inv := invoiceFor(t, f, patient.ID)

	if err := f.svc.ReverseSession(ctx, sess.ID, patient.ID); err != nil {
		t.Fatalf("ReverseSession: %v", err)
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 0 {
		t.Errorf("credit = %v, want 0", p.CreditBalance)
	}
	if p.TotalOutstandingDues != 60 {
		t.Errorf("dues = %v, want 60", p.TotalOutstandingDues)
	}
	stored, _ := f.invoices.GetByID(ctx, inv.ID)
	if stored.TotalAmount != 60 {
		t.Errorf("invoice total = %v, want 60", stored.TotalAmount)
	}
}

func TestReverseSessionFullyPaidCreditsPatient(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	sess := billableOn(patient.ID, 45)
	f := newFixture(patient, sess)
	inv := invoiceFor(t, f, patient.ID)
	if _, err := f.svc.ConfirmPayment(ctx, inv.ID, 45, 0, nil); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	if err := f.svc.ReverseSession(ctx, sess.ID, patient.ID); err != nil {
		t.Fatalf("ReverseSession: %v", err)
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 45 {
		t.Errorf("credit = %v, want 45", p.CreditBalance)
	}
	if p.TotalOutstandingDues != 0 {
		t.Errorf("dues = %v, want 0", p.TotalOutstandingDues)
	}
}

func TestReverseSessionPartiallyPaidSplitsProportionally(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	s1 := billableOn(patient.ID, 50)
	s2 := billableOn(patient.ID, 50)
	f := newFixture(patient, s1, s2)
	inv := invoiceFor(t, f, patient.ID)
	if _, err := f.svc.ConfirmPayment(ctx, inv.ID, 40, 0, nil); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	// 40 of 100 settled: the 50 line reverses as 20 paid, 30 unpaid.
	if err := f.svc.ReverseSession(ctx, s1.ID, patient.ID); err != nil {
		t.Fatalf("ReverseSession: %v", err)
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 20 {
		t.Errorf("credit = %v, want 20", p.CreditBalance)
	}
	if p.TotalOutstandingDues != 30 {
		t.Errorf("dues = %v, want 30", p.TotalOutstandingDues)
	}
	stored, _ := f.invoices.GetByID(ctx, inv.ID)
	if stored.TotalAmount != 50 || stored.PaidAmount != 20 {
		t.Errorf("invoice = total %v paid %v, want 50/20", stored.TotalAmount, stored.PaidAmount)
	}
	if stored.PaymentStatus != PaymentPartiallyPaid {
		t.Errorf("status = %s, want %s", stored.PaymentStatus, PaymentPartiallyPaid)
	}
}

func TestReverseSessionIdempotent(t *testing.T) {
	ctx := context.Background()
	patient := testPatient()
	sess := billableOn(patient.ID, 45)
	f := newFixture(patient, sess)
	invoiceFor(t, f, patient.ID)

	if err := f.svc.ReverseSession(ctx, sess.ID, patient.ID); err != nil {
		t.Fatalf("first reversal: %v", err)
	}
	if err := f.svc.ReverseSession(ctx, sess.ID, patient.ID); err != nil {
		t.Fatalf("second reversal: %v", err)
	}
	p := f.ledger.patients[patient.ID]
	if p.CreditBalance != 0 || p.TotalOutstandingDues != 0 {
		t.Errorf("reversal applied twice: credit=%v dues=%v", p.CreditBalance, p.TotalOutstandingDues)
	}
}
