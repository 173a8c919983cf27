// Package repositories provides pgx data access for the city model.
// Every repository resolves its Querier from the context, so the same
// code serves autocommit reads and statements inside a batch transaction.
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

// CityRepository provides data access for cities.
type CityRepository interface {
	GetByNameOrCode(ctx context.Context, name string) (*models.City, error)
}

type cityRepository struct {
	db database.Querier
}

// NewCityRepository creates a new CityRepository running on db unless the
// context carries a transaction.
func NewCityRepository(db database.Querier) CityRepository {
	return &cityRepository{db: db}
}

var _ CityRepository = (*cityRepository)(nil)

func (r *cityRepository) GetByNameOrCode(ctx context.Context, name string) (*models.City, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id, name, code, city_division_type, created_at, updated_at
		FROM cities
		WHERE name = $1 OR code = $1`

	city := &models.City{}
	err := q.QueryRow(ctx, query, name).Scan(
		&city.ID, &city.Name, &city.Code, &city.DivisionType,
		&city.CreatedAt, &city.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCityNotFound
		}
		return nil, fmt.Errorf("failed to query city %q: %w", name, err)
	}

	return city, nil
}
