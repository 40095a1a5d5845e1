package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a person receiving therapy at a center. CreditBalance and
// TotalOutstandingDues form the patient's ledger; both stay non-negative and
// are mutated only by billing operations, never edited directly.
type Patient struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	FirstName            string     `db:"first_name" json:"first_name"`
	LastName             string     `db:"last_name" json:"last_name"`
	Email                *string    `db:"email" json:"email,omitempty"`
	Phone                *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth          *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender               *string    `db:"gender" json:"gender,omitempty"`
	Address              *string    `db:"address" json:"address,omitempty"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	Active               bool       `db:"active" json:"active"`
	CreditBalance        float64    `db:"credit_balance" json:"credit_balance"`
	TotalOutstandingDues float64    `db:"total_outstanding_dues" json:"total_outstanding_dues"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Ledger is the read-model for a patient's financial position.
type Ledger struct {
	PatientID            uuid.UUID `json:"patient_id"`
	CreditBalance        float64   `json:"credit_balance"`
	TotalOutstandingDues float64   `json:"total_outstanding_dues"`
}

// Therapist is a member of staff who delivers sessions.
type Therapist struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
