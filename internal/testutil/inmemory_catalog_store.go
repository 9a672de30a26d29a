package testutil

import (
	"context"
	"sort"

	"github.com/wellcare/billing/internal/domain/catalog"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// InMemoryCatalogStore implements catalog.Repository
type InMemoryCatalogStore struct {
	*InMemoryStore[*catalog.Service]
}

// NewInMemoryCatalogStore creates a new in-memory catalog repository
func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{
		InMemoryStore: NewInMemoryStore[*catalog.Service](),
	}
}

// Add seeds a catalog service
func (s *InMemoryCatalogStore) Add(ctx context.Context, svc *catalog.Service) error {
	return s.InMemoryStore.Create(ctx, svc.ID, svc)
}

func (s *InMemoryCatalogStore) Get(ctx context.Context, id string) (*catalog.Service, error) {
	svc, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("service not found").
			WithHintf("Catalog service with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return svc, nil
}

func (s *InMemoryCatalogStore) List(ctx context.Context) ([]*catalog.Service, error) {
	services, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, svc *catalog.Service, filter interface{}) bool {
		return svc.Status == types.StatusPublished
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Code < services[j].Code
	})
	return services, nil
}
