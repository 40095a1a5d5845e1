package therapy

import (
	"context"

	"github.com/google/uuid"

	"github.com/therapyhub/therapyhub/internal/platform/apperr"
)

type Service struct {
	types   TypeRepository
	pricing PricingRepository
}

func NewService(types TypeRepository, pricing PricingRepository) *Service {
	return &Service{types: types, pricing: pricing}
}

// -- Therapy types --

func (s *Service) CreateType(ctx context.Context, t *TherapyType) error {
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if t.DefaultCost < 0 {
		return apperr.Validation("default_cost cannot be negative")
	}
	if t.DefaultDurationMinutes <= 0 {
		return apperr.Validation("default_duration_minutes must be positive")
	}
	t.Active = true
	return s.types.Create(ctx, t)
}

func (s *Service) GetType(ctx context.Context, id uuid.UUID) (*TherapyType, error) {
	return s.types.GetByID(ctx, id)
}

func (s *Service) UpdateType(ctx context.Context, t *TherapyType) error {
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if t.DefaultCost < 0 {
		return apperr.Validation("default_cost cannot be negative")
	}
	if t.DefaultDurationMinutes <= 0 {
		return apperr.Validation("default_duration_minutes must be positive")
	}
	return s.types.Update(ctx, t)
}

func (s *Service) DeleteType(ctx context.Context, id uuid.UUID) error {
	return s.types.Delete(ctx, id)
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool, limit, offset int) ([]*TherapyType, int, error) {
	return s.types.List(ctx, activeOnly, limit, offset)
}

// -- Pricing overrides --

func (s *Service) UpsertPricing(ctx context.Context, p *Pricing) error {
	if p.TherapistID == uuid.Nil {
		return apperr.Validation("therapist_id is required")
	}
	if p.TherapyTypeID == uuid.Nil {
		return apperr.Validation("therapy_type_id is required")
	}
	if p.SessionCost < 0 {
		return apperr.Validation("session_cost cannot be negative")
	}
	if p.SessionDurationMinutes <= 0 {
		return apperr.Validation("session_duration_minutes must be positive")
	}
	if _, err := s.types.GetByID(ctx, p.TherapyTypeID); err != nil {
		return err
	}
	return s.pricing.Upsert(ctx, p)
}

func (s *Service) DeletePricing(ctx context.Context, id uuid.UUID) error {
	return s.pricing.Delete(ctx, id)
}

func (s *Service) ListPricingByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Pricing, int, error) {
	return s.pricing.ListByTherapist(ctx, therapistID, limit, offset)
}

// ResolvePricing returns the effective cost and duration for booking a
// (therapist, therapy type) pair: the active override when one exists,
// otherwise the therapy type defaults. A missing override is not an error;
// only a missing therapy type is.
func (s *Service) ResolvePricing(ctx context.Context, therapistID, therapyTypeID uuid.UUID) (*ResolvedPricing, error) {
	tt, err := s.types.GetByID(ctx, therapyTypeID)
	if err != nil {
		return nil, err
	}

	override, err := s.pricing.GetActive(ctx, therapistID, therapyTypeID)
	if err != nil {
		return nil, err
	}
	if override != nil {
		return &ResolvedPricing{
			Cost:            override.SessionCost,
			DurationMinutes: override.SessionDurationMinutes,
			IsCustomPricing: true,
		}, nil
	}

	return &ResolvedPricing{
		Cost:            tt.DefaultCost,
		DurationMinutes: tt.DefaultDurationMinutes,
		IsCustomPricing: false,
	}, nil
}
