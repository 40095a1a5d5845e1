package therapy

import (
	"time"

	"github.com/google/uuid"
)

// TherapyType is a service category (e.g. Speech Therapy) carrying the
// default cost and duration used when no therapist override exists.
type TherapyType struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	Name                   string    `db:"name" json:"name"`
	Description            *string   `db:"description" json:"description,omitempty"`
	DefaultCost            float64   `db:"default_cost" json:"default_cost"`
	DefaultDurationMinutes int       `db:"default_duration_minutes" json:"default_duration_minutes"`
	Active                 bool      `db:"active" json:"active"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// Pricing is a per-(therapist, therapy type) override of cost and duration.
type Pricing struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	TherapistID            uuid.UUID `db:"therapist_id" json:"therapist_id"`
	TherapyTypeID          uuid.UUID `db:"therapy_type_id" json:"therapy_type_id"`
	SessionCost            float64   `db:"session_cost" json:"session_cost"`
	SessionDurationMinutes int       `db:"session_duration_minutes" json:"session_duration_minutes"`
	Active                 bool      `db:"active" json:"active"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// ResolvedPricing is the effective cost and duration for booking a session.
type ResolvedPricing struct {
	Cost            float64 `json:"cost"`
	DurationMinutes int     `json:"duration_minutes"`
	IsCustomPricing bool    `json:"is_custom_pricing"`
}
