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

// BuildingRef pairs a building with its physical object, the shape the
// matcher needs when resolving a record by address.
type BuildingRef struct {
	BuildingID       int64
	PhysicalObjectID int64
}

// BuildingRepository provides data access for buildings.
type BuildingRepository interface {
	// FindByAddress returns all buildings in the city with exactly the
	// given normalized address, lowest building id first.
	FindByAddress(ctx context.Context, cityID int64, address string) ([]BuildingRef, error)
	GetByID(ctx context.Context, id int64) (*models.Building, error)
	GetByPhysicalObject(ctx context.Context, physicalObjectID int64) (*models.Building, error)
	Insert(ctx context.Context, b *models.Building) error
	UpdateAddress(ctx context.Context, id int64, address string) error
	Delete(ctx context.Context, id int64) error
}

type buildingRepository struct {
	db database.Querier
}

// NewBuildingRepository creates a new BuildingRepository.
func NewBuildingRepository(db database.Querier) BuildingRepository {
	return &buildingRepository{db: db}
}

var _ BuildingRepository = (*buildingRepository)(nil)

func (r *buildingRepository) FindByAddress(ctx context.Context, cityID int64, address string) ([]BuildingRef, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT b.id, b.physical_object_id
		FROM buildings b
		JOIN physical_objects p ON p.id = b.physical_object_id
		WHERE p.city_id = $1 AND b.address = $2
		ORDER BY b.id`

	rows, err := q.Query(ctx, query, cityID, address)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings by address: %w", err)
	}
	defer rows.Close()

	var refs []BuildingRef
	for rows.Next() {
		var ref BuildingRef
		if err := rows.Scan(&ref.BuildingID, &ref.PhysicalObjectID); err != nil {
			return nil, fmt.Errorf("failed to scan building ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buildings: %w", err)
	}

	return refs, nil
}

func (r *buildingRepository) GetByID(ctx context.Context, id int64) (*models.Building, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id, physical_object_id, address, building_area, living_area,
		       storeys_count, resident_number, is_living
		FROM buildings
		WHERE id = $1`

	b := &models.Building{}
	err := q.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.PhysicalObjectID, &b.Address, &b.BuildingArea, &b.LivingArea,
		&b.StoreysCount, &b.ResidentNumber, &b.IsLiving,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query building %d: %w", id, err)
	}

	return b, nil
}

func (r *buildingRepository) GetByPhysicalObject(ctx context.Context, physicalObjectID int64) (*models.Building, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id, physical_object_id, address, building_area, living_area,
		       storeys_count, resident_number, is_living
		FROM buildings
		WHERE physical_object_id = $1`

	b := &models.Building{}
	err := q.QueryRow(ctx, query, physicalObjectID).Scan(
		&b.ID, &b.PhysicalObjectID, &b.Address, &b.BuildingArea, &b.LivingArea,
		&b.StoreysCount, &b.ResidentNumber, &b.IsLiving,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query building of physical object %d: %w", physicalObjectID, err)
	}

	return b, nil
}

func (r *buildingRepository) Insert(ctx context.Context, b *models.Building) error {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		INSERT INTO buildings (
			physical_object_id, address, building_area, living_area,
			storeys_count, resident_number, is_living
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := q.QueryRow(ctx, query,
		b.PhysicalObjectID,
		b.Address,
		b.BuildingArea,
		b.LivingArea,
		b.StoreysCount,
		b.ResidentNumber,
		b.IsLiving,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("failed to insert building: %w", err)
	}

	return nil
}

func (r *buildingRepository) UpdateAddress(ctx context.Context, id int64, address string) error {
	q := database.QuerierFrom(ctx, r.db)

	result, err := q.Exec(ctx, "UPDATE buildings SET address = $2 WHERE id = $1", id, address)
	if err != nil {
		return fmt.Errorf("failed to update address of building %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *buildingRepository) Delete(ctx context.Context, id int64) error {
	q := database.QuerierFrom(ctx, r.db)

	result, err := q.Exec(ctx, "DELETE FROM buildings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete building %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
