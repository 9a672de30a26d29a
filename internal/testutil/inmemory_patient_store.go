package testutil

import (
	"context"

	"github.com/wellcare/billing/internal/domain/patient"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// InMemoryPatientStore implements patient.Repository
type InMemoryPatientStore struct {
	*InMemoryStore[*patient.Patient]
}

// NewInMemoryPatientStore creates a new in-memory patient repository
func NewInMemoryPatientStore() *InMemoryPatientStore {
	return &InMemoryPatientStore{
		InMemoryStore: NewInMemoryStore[*patient.Patient](),
	}
}

// Add seeds a patient record
func (s *InMemoryPatientStore) Add(ctx context.Context, p *patient.Patient) error {
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPatientStore) Get(ctx context.Context, id string) (*patient.Patient, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("patient not found").
			WithHintf("Patient with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPatientStore) GetByUserID(ctx context.Context, userID string) (*patient.Patient, error) {
	patients, err := s.InMemoryStore.List(ctx, userID, func(ctx context.Context, p *patient.Patient, filter interface{}) bool {
		return p.UserID == filter.(string) && p.Status == types.StatusPublished
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return nil, ierr.NewError("patient not found").
			WithHint("No patient record is linked to this user").
			Mark(ierr.ErrNotFound)
	}
	return patients[0], nil
}
