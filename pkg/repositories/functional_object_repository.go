package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/database"
	"github.com/iduprojects/insert-services/pkg/models"
)

// FunctionalObjectRepository provides data access for services located at
// physical objects.
type FunctionalObjectRepository interface {
	GetByID(ctx context.Context, id int64) (*models.FunctionalObject, error)
	// GetByTypeAndObject returns the service of the given type at the given
	// physical object, or apperrors.ErrNotFound.
	GetByTypeAndObject(ctx context.Context, physicalObjectID, serviceTypeID int64) (*models.FunctionalObject, error)
	Insert(ctx context.Context, fo *models.FunctionalObject) error
	// Update applies the mutable attributes of fo and merges its properties
	// over the stored ones. It reports false when the statement would not
	// change any column, which the loader maps to the unchanged outcome.
	Update(ctx context.Context, fo *models.FunctionalObject) (changed bool, err error)
	Delete(ctx context.Context, id int64) error
	// DeleteAtPhysicalObject removes every service at the physical object
	// and returns how many were removed.
	DeleteAtPhysicalObject(ctx context.Context, physicalObjectID int64) (int64, error)
	CountAtPhysicalObject(ctx context.Context, physicalObjectID int64) (int, error)
}

type functionalObjectRepository struct {
	db database.Querier
}

// NewFunctionalObjectRepository creates a new FunctionalObjectRepository.
func NewFunctionalObjectRepository(db database.Querier) FunctionalObjectRepository {
	return &functionalObjectRepository{db: db}
}

var _ FunctionalObjectRepository = (*functionalObjectRepository)(nil)

const functionalObjectColumns = `
	id, physical_object_id, city_service_type_id, name, opening_hours,
	website, phone, capacity, is_capacity_real, properties,
	created_at, updated_at`

func (r *functionalObjectRepository) GetByID(ctx context.Context, id int64) (*models.FunctionalObject, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `SELECT` + functionalObjectColumns + `
		FROM functional_objects
		WHERE id = $1`

	fo, err := scanFunctionalObject(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query functional object %d: %w", id, err)
	}

	return fo, nil
}

func (r *functionalObjectRepository) GetByTypeAndObject(ctx context.Context, physicalObjectID, serviceTypeID int64) (*models.FunctionalObject, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `SELECT` + functionalObjectColumns + `
		FROM functional_objects
		WHERE physical_object_id = $1 AND city_service_type_id = $2
		ORDER BY id
		LIMIT 1`

	fo, err := scanFunctionalObject(q.QueryRow(ctx, query, physicalObjectID, serviceTypeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query functional object at physical object %d: %w", physicalObjectID, err)
	}

	return fo, nil
}

func (r *functionalObjectRepository) Insert(ctx context.Context, fo *models.FunctionalObject) error {
	q := database.QuerierFrom(ctx, r.db)

	now := time.Now()

	query := `
		INSERT INTO functional_objects (
			physical_object_id, city_service_type_id, name, opening_hours,
			website, phone, capacity, is_capacity_real, properties,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := q.QueryRow(ctx, query,
		fo.PhysicalObjectID,
		fo.ServiceTypeID,
		fo.Name,
		fo.OpeningHours,
		fo.Website,
		fo.Phone,
		fo.Capacity,
		fo.IsCapacityReal,
		fo.Properties,
		now,
		now,
	).Scan(&fo.ID, &fo.CreatedAt, &fo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert functional object: %w", err)
	}

	return nil
}

func (r *functionalObjectRepository) Update(ctx context.Context, fo *models.FunctionalObject) (bool, error) {
	q := database.QuerierFrom(ctx, r.db)

	// The WHERE guard makes a no-op update report zero affected rows, so
	// re-running the same document yields unchanged instead of updated.
	query := `
		UPDATE functional_objects
		SET name = $2, opening_hours = $3, website = $4, phone = $5,
		    capacity = $6, is_capacity_real = $7,
		    properties = properties || $8::jsonb,
		    updated_at = now()
		WHERE id = $1
		  AND (name IS DISTINCT FROM $2
		    OR opening_hours IS DISTINCT FROM $3
		    OR website IS DISTINCT FROM $4
		    OR phone IS DISTINCT FROM $5
		    OR capacity IS DISTINCT FROM $6
		    OR is_capacity_real IS DISTINCT FROM $7
		    OR properties IS DISTINCT FROM properties || $8::jsonb)`

	result, err := q.Exec(ctx, query,
		fo.ID,
		fo.Name,
		fo.OpeningHours,
		fo.Website,
		fo.Phone,
		fo.Capacity,
		fo.IsCapacityReal,
		fo.Properties,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update functional object %d: %w", fo.ID, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *functionalObjectRepository) Delete(ctx context.Context, id int64) error {
	q := database.QuerierFrom(ctx, r.db)

	result, err := q.Exec(ctx, "DELETE FROM functional_objects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete functional object %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *functionalObjectRepository) DeleteAtPhysicalObject(ctx context.Context, physicalObjectID int64) (int64, error) {
	q := database.QuerierFrom(ctx, r.db)

	result, err := q.Exec(ctx, "DELETE FROM functional_objects WHERE physical_object_id = $1", physicalObjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete functional objects at physical object %d: %w", physicalObjectID, err)
	}

	return result.RowsAffected(), nil
}

func (r *functionalObjectRepository) CountAtPhysicalObject(ctx context.Context, physicalObjectID int64) (int, error) {
	q := database.QuerierFrom(ctx, r.db)

	var count int
	err := q.QueryRow(ctx,
		"SELECT count(*) FROM functional_objects WHERE physical_object_id = $1",
		physicalObjectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count functional objects at physical object %d: %w", physicalObjectID, err)
	}

	return count, nil
}

func scanFunctionalObject(row pgx.Row) (*models.FunctionalObject, error) {
	fo := &models.FunctionalObject{}
	err := row.Scan(
		&fo.ID, &fo.PhysicalObjectID, &fo.ServiceTypeID, &fo.Name, &fo.OpeningHours,
		&fo.Website, &fo.Phone, &fo.Capacity, &fo.IsCapacityReal, &fo.Properties,
		&fo.CreatedAt, &fo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fo, nil
}
