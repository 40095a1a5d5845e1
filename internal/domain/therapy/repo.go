package therapy

import (
	"context"

	"github.com/google/uuid"
)

type TypeRepository interface {
	Create(ctx context.Context, t *TherapyType) error
	GetByID(ctx context.Context, id uuid.UUID) (*TherapyType, error)
	Update(ctx context.Context, t *TherapyType) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*TherapyType, int, error)
}

type PricingRepository interface {
	// Upsert inserts or replaces the override for (therapist, therapy type).
	Upsert(ctx context.Context, p *Pricing) error
	// GetActive returns the active override for the pair, or nil when none.
	GetActive(ctx context.Context, therapistID, therapyTypeID uuid.UUID) (*Pricing, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Pricing, int, error)
}
