package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/database"
	"github.com/iduprojects/insert-services/pkg/models"
)

// ServiceTypeRepository provides data access for city service types.
type ServiceTypeRepository interface {
	GetByNameOrCode(ctx context.Context, nameOrCode string) (*models.ServiceType, error)
}

type serviceTypeRepository struct {
	db database.Querier
}

// NewServiceTypeRepository creates a new ServiceTypeRepository.
func NewServiceTypeRepository(db database.Querier) ServiceTypeRepository {
	return &serviceTypeRepository{db: db}
}

var _ ServiceTypeRepository = (*serviceTypeRepository)(nil)

func (r *serviceTypeRepository) GetByNameOrCode(ctx context.Context, nameOrCode string) (*models.ServiceType, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id, name, code, city_function_id,
		       capacity_min, capacity_max, status_min, status_max, is_building
		FROM city_service_types
		WHERE name = $1 OR code = $1`

	st := &models.ServiceType{}
	err := q.QueryRow(ctx, query, nameOrCode).Scan(
		&st.ID, &st.Name, &st.Code, &st.CityFunctionID,
		&st.CapacityMin, &st.CapacityMax, &st.StatusMin, &st.StatusMax, &st.IsBuilding,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceTypeNotFound
		}
		return nil, fmt.Errorf("failed to query service type %q: %w", nameOrCode, err)
	}

	return st, nil
}
