package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AvailabilityRepository interface {
	Create(ctx context.Context, a *Availability) error
	GetByID(ctx context.Context, id uuid.UUID) (*Availability, error)
	Update(ctx context.Context, a *Availability) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListForDay returns windows for (therapist, day), optionally narrowed
	// to a therapy type when therapyTypeID is non-nil.
	ListForDay(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, therapyTypeID *uuid.UUID) ([]*Availability, error)
	ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Availability, int, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, cancelReason *string) error
	// ListForConflictCheck returns non-cancelled sessions on the date for the
	// therapist or the patient, row-locked so concurrent bookings serialize.
	ListForConflictCheck(ctx context.Context, therapistID, patientID uuid.UUID, date time.Time) ([]*Session, error)
	ListByTherapistOnDate(ctx context.Context, therapistID uuid.UUID, date time.Time) ([]*Session, error)
	Search(ctx context.Context, params SessionSearch, limit, offset int) ([]*Session, int, error)
	// ListUninvoiced returns the patient's non-cancelled sessions not yet
	// attached to an invoice line item, row-locked for invoicing.
	ListUninvoiced(ctx context.Context, patientID uuid.UUID) ([]*Session, error)
	MarkInvoiced(ctx context.Context, sessionIDs []uuid.UUID) error
}

// SessionSearch narrows Search results; zero values mean no filter.
type SessionSearch struct {
	PatientID   uuid.UUID
	TherapistID uuid.UUID
	Date        *time.Time
	Status      string
}
