package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// =========== Availability Repository ===========

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

const availabilityCols = `id, therapist_id, therapy_type_id, day_of_week, start_time, end_time, active, created_at, updated_at`

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	err := row.Scan(&a.ID, &a.TherapistID, &a.TherapyTypeID, &a.DayOfWeek,
		&a.StartTime, &a.EndTime, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("availability window not found")
	}
	return &a, err
}

func (r *availabilityRepoPG) Create(ctx context.Context, a *Availability) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO therapist_availability (id, therapist_id, therapy_type_id, day_of_week, start_time, end_time, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.TherapistID, a.TherapyTypeID, a.DayOfWeek, a.StartTime, a.EndTime, a.Active)
	return err
}

func (r *availabilityRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	return scanAvailability(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+availabilityCols+` FROM therapist_availability WHERE id = $1`, id))
}

func (r *availabilityRepoPG) Update(ctx context.Context, a *Availability) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE therapist_availability SET therapy_type_id=$2, day_of_week=$3,
			start_time=$4, end_time=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.TherapyTypeID, a.DayOfWeek, a.StartTime, a.EndTime, a.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("availability window not found")
	}
	return nil
}

func (r *availabilityRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM therapist_availability WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("availability window not found")
	}
	return nil
}

func (r *availabilityRepoPG) ListForDay(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, therapyTypeID *uuid.UUID) ([]*Availability, error) {
	query := `SELECT ` + availabilityCols + ` FROM therapist_availability
		WHERE therapist_id = $1 AND day_of_week = $2 AND active = TRUE`
	args := []interface{}{therapistID, dayOfWeek}
	if therapyTypeID != nil {
		query += ` AND therapy_type_id = $3`
		args = append(args, *therapyTypeID)
	}
	query += ` ORDER BY start_time`

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *availabilityRepoPG) ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Availability, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM therapist_availability WHERE therapist_id = $1`, therapistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+availabilityCols+` FROM therapist_availability
		 WHERE therapist_id = $1 ORDER BY day_of_week, start_time LIMIT $2 OFFSET $3`,
		therapistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository { return &sessionRepoPG{pool: pool} }

const sessionCols = `id, patient_id, therapist_id, therapy_type_id, scheduled_date,
	start_time, end_time, cost, status, cancel_reason, invoiced, notes, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.PatientID, &s.TherapistID, &s.TherapyTypeID, &s.ScheduledDate,
		&s.StartTime, &s.EndTime, &s.Cost, &s.Status, &s.CancelReason, &s.Invoiced, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("session not found")
	}
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO sessions (id, patient_id, therapist_id, therapy_type_id, scheduled_date,
			start_time, end_time, cost, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.PatientID, s.TherapistID, s.TherapyTypeID, s.ScheduledDate,
		s.StartTime, s.EndTime, s.Cost, s.Status, s.Notes)
	if isUniqueViolation(err) {
		return apperr.Conflict(apperr.CodeTherapistConflict, "therapist already booked at this time")
	}
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return scanSession(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE sessions SET therapist_id=$2, therapy_type_id=$3, scheduled_date=$4,
			start_time=$5, end_time=$6, cost=$7, notes=$8, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.TherapistID, s.TherapyTypeID, s.ScheduledDate,
		s.StartTime, s.EndTime, s.Cost, s.Notes)
	if isUniqueViolation(err) {
		return apperr.Conflict(apperr.CodeTherapistConflict, "therapist already booked at this time")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("session not found")
	}
	return nil
}

func (r *sessionRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, cancelReason *string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE sessions SET status=$2, cancel_reason=$3, updated_at=NOW() WHERE id = $1`,
		id, status, cancelReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("session not found")
	}
	return nil
}

func (r *sessionRepoPG) ListForConflictCheck(ctx context.Context, therapistID, patientID uuid.UUID, date time.Time) ([]*Session, error) {
	// FOR UPDATE serializes concurrent bookings touching the same therapist
	// or patient on the same date; the unique index on
	// (therapist_id, scheduled_date, start_time) is the storage backstop.
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+sessionCols+` FROM sessions
		WHERE scheduled_date = $1
		  AND (therapist_id = $2 OR patient_id = $3)
		  AND status <> 'CANCELLED'
		ORDER BY start_time
		FOR UPDATE`,
		date, therapistID, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *sessionRepoPG) ListByTherapistOnDate(ctx context.Context, therapistID uuid.UUID, date time.Time) ([]*Session, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+sessionCols+` FROM sessions
		WHERE therapist_id = $1 AND scheduled_date = $2 AND status <> 'CANCELLED'
		ORDER BY start_time`,
		therapistID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *sessionRepoPG) Search(ctx context.Context, params SessionSearch, limit, offset int) ([]*Session, int, error) {
	query := `SELECT ` + sessionCols + ` FROM sessions WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sessions WHERE 1=1`
	var args []interface{}
	idx := 1

	addFilter := func(clause string, value interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, value)
		idx++
	}

	if params.PatientID != uuid.Nil {
		addFilter(` AND patient_id = $%d`, params.PatientID)
	}
	if params.TherapistID != uuid.Nil {
		addFilter(` AND therapist_id = $%d`, params.TherapistID)
	}
	if params.Date != nil {
		addFilter(` AND scheduled_date = $%d`, *params.Date)
	}
	if params.Status != "" {
		addFilter(` AND status = $%d`, params.Status)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY scheduled_date DESC, start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *sessionRepoPG) ListUninvoiced(ctx context.Context, patientID uuid.UUID) ([]*Session, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+sessionCols+` FROM sessions
		WHERE patient_id = $1 AND status <> 'CANCELLED' AND invoiced = FALSE
		ORDER BY scheduled_date, start_time
		FOR UPDATE`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *sessionRepoPG) MarkInvoiced(ctx context.Context, sessionIDs []uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE sessions SET invoiced = TRUE, updated_at = NOW() WHERE id = ANY($1)`, sessionIDs)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
