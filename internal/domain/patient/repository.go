package patient

import (
	"context"
)

// Repository defines the interface for patient registry lookups
type Repository interface {
	// Get retrieves a patient by ID
	Get(ctx context.Context, id string) (*Patient, error)

	// GetByUserID retrieves a patient by the portal user account it belongs to
	GetByUserID(ctx context.Context, userID string) (*Patient, error)
}
