package catalog

import (
	"context"
)

// Repository defines the interface for service catalog lookups
type Repository interface {
	// Get retrieves a catalog service by ID
	Get(ctx context.Context, id string) (*Service, error)

	// List retrieves all published catalog services
	List(ctx context.Context) ([]*Service, error)
}
