package therapy

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

// =========== TherapyType Repository ===========

type typeRepoPG struct{ pool *pgxpool.Pool }

func NewTypeRepoPG(pool *pgxpool.Pool) TypeRepository { return &typeRepoPG{pool: pool} }

const typeCols = `id, name, description, default_cost, default_duration_minutes, active, created_at, updated_at`

func scanType(row pgx.Row) (*TherapyType, error) {
	var t TherapyType
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DefaultCost, &t.DefaultDurationMinutes,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("therapy type not found")
	}
	return &t, err
}

func (r *typeRepoPG) Create(ctx context.Context, t *TherapyType) error {
	t.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO therapy_types (id, name, description, default_cost, default_duration_minutes, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Name, t.Description, t.DefaultCost, t.DefaultDurationMinutes, t.Active)
	return err
}

func (r *typeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TherapyType, error) {
	return scanType(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+typeCols+` FROM therapy_types WHERE id = $1`, id))
}

func (r *typeRepoPG) Update(ctx context.Context, t *TherapyType) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE therapy_types SET name=$2, description=$3, default_cost=$4,
			default_duration_minutes=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.DefaultCost, t.DefaultDurationMinutes, t.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("therapy type not found")
	}
	return nil
}

func (r *typeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM therapy_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("therapy type not found")
	}
	return nil
}

func (r *typeRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*TherapyType, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active = TRUE`
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM therapy_types`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+typeCols+` FROM therapy_types`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*TherapyType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

// =========== Pricing Repository ===========

type pricingRepoPG struct{ pool *pgxpool.Pool }

func NewPricingRepoPG(pool *pgxpool.Pool) PricingRepository { return &pricingRepoPG{pool: pool} }

const pricingCols = `id, therapist_id, therapy_type_id, session_cost, session_duration_minutes, active, created_at, updated_at`

func scanPricing(row pgx.Row) (*Pricing, error) {
	var p Pricing
	err := row.Scan(&p.ID, &p.TherapistID, &p.TherapyTypeID, &p.SessionCost,
		&p.SessionDurationMinutes, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *pricingRepoPG) Upsert(ctx context.Context, p *Pricing) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO therapist_pricing (id, therapist_id, therapy_type_id, session_cost, session_duration_minutes, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (therapist_id, therapy_type_id) DO UPDATE SET
			session_cost = EXCLUDED.session_cost,
			session_duration_minutes = EXCLUDED.session_duration_minutes,
			active = EXCLUDED.active,
			updated_at = NOW()`,
		p.ID, p.TherapistID, p.TherapyTypeID, p.SessionCost, p.SessionDurationMinutes, p.Active)
	return err
}

func (r *pricingRepoPG) GetActive(ctx context.Context, therapistID, therapyTypeID uuid.UUID) (*Pricing, error) {
	p, err := scanPricing(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+pricingCols+` FROM therapist_pricing
		 WHERE therapist_id = $1 AND therapy_type_id = $2 AND active = TRUE`,
		therapistID, therapyTypeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pricingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM therapist_pricing WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pricing override not found")
	}
	return nil
}

func (r *pricingRepoPG) ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Pricing, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM therapist_pricing WHERE therapist_id = $1`, therapistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+pricingCols+` FROM therapist_pricing WHERE therapist_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		therapistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Pricing
	for rows.Next() {
		p, err := scanPricing(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
