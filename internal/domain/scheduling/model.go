package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Days of week use time.Weekday numbering (Sunday = 0).

// Availability is a recurring weekly window in which a therapist can be
// booked for a therapy type. Times are "HH:MM", start strictly before end.
type Availability struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TherapistID   uuid.UUID `db:"therapist_id" json:"therapist_id"`
	TherapyTypeID uuid.UUID `db:"therapy_type_id" json:"therapy_type_id"`
	DayOfWeek     int       `db:"day_of_week" json:"day_of_week"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Session statuses. SCHEDULED is the only non-terminal state.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// Session is a booked appointment between a patient and a therapist.
type Session struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	TherapistID   uuid.UUID `db:"therapist_id" json:"therapist_id"`
	TherapyTypeID uuid.UUID `db:"therapy_type_id" json:"therapy_type_id"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	Cost          float64   `db:"cost" json:"cost"`
	Status        string    `db:"status" json:"status"`
	CancelReason  *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Invoiced      bool      `db:"invoiced" json:"invoiced"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Slot is a bookable interval derived from an availability window.
type Slot struct {
	StartTime        string     `json:"start_time"`
	EndTime          string     `json:"end_time"`
	IsAvailable      bool       `json:"is_available"`
	OccupyingSession *uuid.UUID `json:"occupying_session,omitempty"`
}

// ConflictResult reports which party already has an overlapping session.
type ConflictResult struct {
	TherapistConflict bool `json:"therapist_conflict"`
	PatientConflict   bool `json:"patient_conflict"`
}
