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

// PhysicalObjectRepository provides data access for physical objects.
type PhysicalObjectRepository interface {
	// FindByGeometry returns the ids of all physical objects in the city
	// whose geometry is exactly equal to the given GeoJSON geometry,
	// lowest id first.
	FindByGeometry(ctx context.Context, cityID int64, geoJSON []byte) ([]int64, error)
	Insert(ctx context.Context, obj *models.PhysicalObject, geoJSON []byte) error
	// GeometryInfo reports whether the stored geometry is a bare point and
	// whether it equals the given GeoJSON geometry.
	GeometryInfo(ctx context.Context, id int64, geoJSON []byte) (isPoint, equal bool, err error)
	UpdateGeometry(ctx context.Context, id int64, geoJSON []byte) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type physicalObjectRepository struct {
	db database.Querier
}

// NewPhysicalObjectRepository creates a new PhysicalObjectRepository.
func NewPhysicalObjectRepository(db database.Querier) PhysicalObjectRepository {
	return &physicalObjectRepository{db: db}
}

var _ PhysicalObjectRepository = (*physicalObjectRepository)(nil)

func (r *physicalObjectRepository) FindByGeometry(ctx context.Context, cityID int64, geoJSON []byte) ([]int64, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id
		FROM physical_objects
		WHERE city_id = $1
		  AND ST_Equals(geometry, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))
		ORDER BY id`

	rows, err := q.Query(ctx, query, cityID, geoJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to query physical objects by geometry: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan physical object id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating physical objects: %w", err)
	}

	return ids, nil
}

func (r *physicalObjectRepository) Insert(ctx context.Context, obj *models.PhysicalObject, geoJSON []byte) error {
	q := database.QuerierFrom(ctx, r.db)

	now := time.Now()

	query := `
		INSERT INTO physical_objects (
			osm_id, city_id, geometry, center,
			administrative_unit_id, municipality_id, block_id,
			created_at, updated_at
		) VALUES (
			$1, $2,
			ST_SetSRID(ST_GeomFromGeoJSON($3), 4326),
			ST_Centroid(ST_SetSRID(ST_GeomFromGeoJSON($3), 4326)),
			$4, $5, $6, $7, $8
		)
		RETURNING id, created_at, updated_at`

	err := q.QueryRow(ctx, query,
		obj.OSMID,
		obj.CityID,
		geoJSON,
		obj.AdministrativeUnitID,
		obj.MunicipalityID,
		obj.BlockID,
		now,
		now,
	).Scan(&obj.ID, &obj.CreatedAt, &obj.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert physical object: %w", err)
	}

	return nil
}

func (r *physicalObjectRepository) GeometryInfo(ctx context.Context, id int64, geoJSON []byte) (bool, bool, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT GeometryType(geometry) = 'POINT',
		       ST_Equals(geometry, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))
		FROM physical_objects
		WHERE id = $1`

	var isPoint, equal bool
	err := q.QueryRow(ctx, query, id, geoJSON).Scan(&isPoint, &equal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, apperrors.ErrNotFound
		}
		return false, false, fmt.Errorf("failed to query geometry info for physical object %d: %w", id, err)
	}

	return isPoint, equal, nil
}

func (r *physicalObjectRepository) UpdateGeometry(ctx context.Context, id int64, geoJSON []byte) error {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		UPDATE physical_objects
		SET geometry = ST_SetSRID(ST_GeomFromGeoJSON($2), 4326),
		    center = ST_Centroid(ST_SetSRID(ST_GeomFromGeoJSON($2), 4326)),
		    updated_at = now()
		WHERE id = $1`

	result, err := q.Exec(ctx, query, id, geoJSON)
	if err != nil {
		return fmt.Errorf("failed to update geometry of physical object %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *physicalObjectRepository) Touch(ctx context.Context, id int64) error {
	q := database.QuerierFrom(ctx, r.db)

	if _, err := q.Exec(ctx, "UPDATE physical_objects SET updated_at = now() WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to touch physical object %d: %w", id, err)
	}
	return nil
}

func (r *physicalObjectRepository) Delete(ctx context.Context, id int64) error {
	q := database.QuerierFrom(ctx, r.db)

	result, err := q.Exec(ctx, "DELETE FROM physical_objects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete physical object %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
