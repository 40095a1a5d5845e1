package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapyhub/therapyhub/internal/platform/apperr"
	"github.com/therapyhub/therapyhub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

const invoiceCols = `id, patient_id, number, total_amount, paid_amount, credit_applied, payment_status, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.Number, &inv.TotalAmount, &inv.PaidAmount,
		&inv.CreditApplied, &inv.PaymentStatus, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice not found")
	}
	return &inv, err
}

func (r *invoiceRepoPG) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n)
	return n, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice, items []*LineItem) error {
	inv.ID = uuid.New()
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO invoices (id, patient_id, number, total_amount, paid_amount, credit_applied, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		inv.ID, inv.PatientID, inv.Number, inv.TotalAmount, inv.PaidAmount, inv.CreditApplied, inv.PaymentStatus)
	if err != nil {
		return err
	}
	for _, item := range items {
		item.ID = uuid.New()
		item.InvoiceID = inv.ID
		_, err := q.Exec(ctx, `
			INSERT INTO invoice_line_items (id, invoice_id, session_id, amount, reversed)
			VALUES ($1,$2,$3,$4,$5)`,
			item.ID, item.InvoiceID, item.SessionID, item.Amount, item.Reversed)
		if err != nil {
			return err
		}
	}
	inv.Items = items
	return nil
}

func (r *invoiceRepoPG) loadItems(ctx context.Context, inv *Invoice) error {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, invoice_id, session_id, amount, reversed, created_at
		FROM invoice_line_items WHERE invoice_id = $1 ORDER BY created_at`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.SessionID, &item.Amount,
			&item.Reversed, &item.CreatedAt); err != nil {
			return err
		}
		inv.Items = append(inv.Items, &item)
	}
	return rows.Err()
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepoPG) UpdateAmounts(ctx context.Context, inv *Invoice) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE invoices SET total_amount=$2, paid_amount=$3, credit_applied=$4,
			payment_status=$5, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.TotalAmount, inv.PaidAmount, inv.CreditApplied, inv.PaymentStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice not found")
	}
	return nil
}

func (r *invoiceRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *invoiceRepoPG) UnreversedLineBySession(ctx context.Context, sessionID uuid.UUID) (*LineItem, error) {
	var item LineItem
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, invoice_id, session_id, amount, reversed, created_at
		FROM invoice_line_items
		WHERE session_id = $1 AND reversed = FALSE
		FOR UPDATE`, sessionID).
		Scan(&item.ID, &item.InvoiceID, &item.SessionID, &item.Amount, &item.Reversed, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *invoiceRepoPG) MarkLineReversed(ctx context.Context, lineID uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE invoice_line_items SET reversed = TRUE WHERE id = $1 AND reversed = FALSE`, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidTransition("line item already reversed")
	}
	return nil
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payments (id, invoice_id, amount, credit_used, method, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.InvoiceID, p.Amount, p.CreditUsed, p.Method, p.ReceivedAt)
	return err
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, invoice_id, amount, credit_used, method, received_at, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY received_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.CreditUsed, &p.Method,
			&p.ReceivedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}
