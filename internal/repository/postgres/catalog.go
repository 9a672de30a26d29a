package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/wellcare/billing/internal/cache"
	"github.com/wellcare/billing/internal/domain/catalog"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	"github.com/wellcare/billing/internal/types"
)

type catalogRepository struct {
	client postgres.IClient
	logger *logger.Logger
	cache  cache.Cache
}

func NewCatalogRepository(client postgres.IClient, logger *logger.Logger, c cache.Cache) catalog.Repository {
	return &catalogRepository{client: client, logger: logger, cache: c}
}

const serviceColumns = `
	id, code, name, description, price,
	status, created_at, updated_at, created_by, updated_by
`

const serviceCacheExpiry = 5 * time.Minute

func (r *catalogRepository) Get(ctx context.Context, id string) (*catalog.Service, error) {
	key := cache.GenerateKey(cache.PrefixService, id)
	if cached, found := r.cache.Get(ctx, key); found {
		if svc, ok := cached.(*catalog.Service); ok {
			return svc, nil
		}
	}

	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND status = $2`

	var svc catalog.Service
	q := r.client.Querier(ctx)
	err := q.GetContext(ctx, &svc, query, id, types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("service not found").
				WithHintf("Catalog service with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"service_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get catalog service").
			Mark(ierr.ErrDatabase)
	}

	r.cache.Set(ctx, key, &svc, serviceCacheExpiry)
	return &svc, nil
}

func (r *catalogRepository) List(ctx context.Context) ([]*catalog.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE status = $1 ORDER BY code ASC`

	var services []*catalog.Service
	q := r.client.Querier(ctx)
	if err := q.SelectContext(ctx, &services, query, types.StatusPublished); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list catalog services").
			Mark(ierr.ErrDatabase)
	}
	return services, nil
}
