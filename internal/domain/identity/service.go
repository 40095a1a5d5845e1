package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/therapyhub/therapyhub/internal/platform/apperr"
)

type Service struct {
	patients   PatientRepository
	therapists TherapistRepository
}

func NewService(patients PatientRepository, therapists TherapistRepository) *Service {
	return &Service{patients: patients, therapists: therapists}
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" {
		return apperr.Validation("first_name is required")
	}
	if p.LastName == "" {
		return apperr.Validation("last_name is required")
	}
	if p.CreditBalance != 0 || p.TotalOutstandingDues != 0 {
		return apperr.Validation("ledger fields cannot be set directly")
	}
	p.Active = true
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" {
		return apperr.Validation("first_name is required")
	}
	if p.LastName == "" {
		return apperr.Validation("last_name is required")
	}
	// Ledger fields are owned by billing; the update statement never
	// touches them regardless of what the caller sent.
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, search, limit, offset)
}

// GetLedger returns the patient's current financial position.
func (s *Service) GetLedger(ctx context.Context, id uuid.UUID) (*Ledger, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		PatientID:            p.ID,
		CreditBalance:        p.CreditBalance,
		TotalOutstandingDues: p.TotalOutstandingDues,
	}, nil
}

// -- Therapists --

func (s *Service) CreateTherapist(ctx context.Context, t *Therapist) error {
	if t.FirstName == "" {
		return apperr.Validation("first_name is required")
	}
	if t.LastName == "" {
		return apperr.Validation("last_name is required")
	}
	t.Active = true
	return s.therapists.Create(ctx, t)
}

func (s *Service) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	return s.therapists.GetByID(ctx, id)
}

func (s *Service) UpdateTherapist(ctx context.Context, t *Therapist) error {
	if t.FirstName == "" {
		return apperr.Validation("first_name is required")
	}
	if t.LastName == "" {
		return apperr.Validation("last_name is required")
	}
	return s.therapists.Update(ctx, t)
}

func (s *Service) DeleteTherapist(ctx context.Context, id uuid.UUID) error {
	return s.therapists.Delete(ctx, id)
}

func (s *Service) ListTherapists(ctx context.Context, activeOnly bool, limit, offset int) ([]*Therapist, int, error) {
	return s.therapists.List(ctx, activeOnly, limit, offset)
}
