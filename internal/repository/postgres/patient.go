package postgres

import (
	"context"
	"database/sql"

	"github.com/wellcare/billing/internal/domain/patient"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	"github.com/wellcare/billing/internal/types"
)

type patientRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPatientRepository(client postgres.IClient, logger *logger.Logger) patient.Repository {
	return &patientRepository{client: client, logger: logger}
}

const patientColumns = `
	id, user_id, first_name, last_name, date_of_birth, phone,
	status, created_at, updated_at, created_by, updated_by
`

func (r *patientRepository) Get(ctx context.Context, id string) (*patient.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND status = $2`

	var p patient.Patient
	q := r.client.Querier(ctx)
	err := q.GetContext(ctx, &p, query, id, types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("patient not found").
				WithHintf("Patient with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"patient_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get patient").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID string) (*patient.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE user_id = $1 AND status = $2`

	var p patient.Patient
	q := r.client.Querier(ctx)
	err := q.GetContext(ctx, &p, query, userID, types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("patient not found").
				WithHint("No patient record is linked to this user").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get patient by user").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}
