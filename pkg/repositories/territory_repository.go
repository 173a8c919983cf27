package repositories

import (
	"context"
	"fmt"

	"github.com/iduprojects/insert-services/pkg/database"
)

// ObjectKind names the table whose rows receive hierarchy references.
type ObjectKind string

const (
	KindPhysicalObject ObjectKind = "physical_objects"
	KindBlock          ObjectKind = "blocks"
)

// HierarchyLevel names a spatial partition that can serve as an assignment
// candidate.
type HierarchyLevel string

const (
	LevelAdministrativeUnit HierarchyLevel = "administrative_unit"
	LevelMunicipality       HierarchyLevel = "municipality"
	LevelBlock              HierarchyLevel = "block"
)

// candidate tables and foreign key columns per level. Identifiers are
// interpolated into SQL, so they only ever come from these fixed maps.
var (
	levelTables = map[HierarchyLevel]string{
		LevelAdministrativeUnit: "administrative_units",
		LevelMunicipality:       "municipalities",
		LevelBlock:              "blocks",
	}
	levelColumns = map[HierarchyLevel]string{
		LevelAdministrativeUnit: "administrative_unit_id",
		LevelMunicipality:       "municipality_id",
		LevelBlock:              "block_id",
	}
)

// ObjectGaps lists which hierarchy references an object is missing.
type ObjectGaps struct {
	ID                      int64
	NeedsAdministrativeUnit bool
	NeedsMunicipality       bool
	NeedsBlock              bool
}

// TerritoryRepository runs the spatial queries behind location assignment
// and the post-batch maintenance updates.
type TerritoryRepository interface {
	ListObjectsMissingHierarchy(ctx context.Context, cityID int64) ([]ObjectGaps, error)
	ListBlocksMissingHierarchy(ctx context.Context, cityID int64) ([]ObjectGaps, error)
	// FindByCenter returns the candidate of the given level whose geometry
	// covers the object's center, lowest candidate id winning ties.
	FindByCenter(ctx context.Context, kind ObjectKind, level HierarchyLevel, cityID, objectID int64) (int64, bool, error)
	// FindByOverlap returns the candidate whose intersection with the
	// object's own geometry exceeds threshold of the object's area,
	// preferring the largest overlap and then the lowest id.
	FindByOverlap(ctx context.Context, kind ObjectKind, level HierarchyLevel, cityID, objectID int64, threshold float64) (int64, bool, error)
	// AssignIfNull fills the level reference of the object only when it is
	// currently null, reporting whether a write happened.
	AssignIfNull(ctx context.Context, kind ObjectKind, level HierarchyLevel, objectID, candidateID int64) (bool, error)
	UpdateBlockPopulations(ctx context.Context, cityID int64) (int64, error)
	FillMissingBuildingAreas(ctx context.Context, cityID int64) (int64, error)
}

type territoryRepository struct {
	db database.Querier
}

// NewTerritoryRepository creates a new TerritoryRepository.
func NewTerritoryRepository(db database.Querier) TerritoryRepository {
	return &territoryRepository{db: db}
}

var _ TerritoryRepository = (*territoryRepository)(nil)

func (r *territoryRepository) ListObjectsMissingHierarchy(ctx context.Context, cityID int64) ([]ObjectGaps, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id,
		       administrative_unit_id IS NULL,
		       municipality_id IS NULL,
		       block_id IS NULL
		FROM physical_objects
		WHERE city_id = $1
		  AND (administrative_unit_id IS NULL OR municipality_id IS NULL OR block_id IS NULL)
		ORDER BY id`

	return r.scanGaps(ctx, q, query, cityID, true)
}

func (r *territoryRepository) ListBlocksMissingHierarchy(ctx context.Context, cityID int64) ([]ObjectGaps, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		SELECT id,
		       administrative_unit_id IS NULL,
		       municipality_id IS NULL,
		       false
		FROM blocks
		WHERE city_id = $1
		  AND (administrative_unit_id IS NULL OR municipality_id IS NULL)
		ORDER BY id`

	return r.scanGaps(ctx, q, query, cityID, false)
}

func (r *territoryRepository) scanGaps(ctx context.Context, q database.Querier, query string, cityID int64, withBlock bool) ([]ObjectGaps, error) {
	rows, err := q.Query(ctx, query, cityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects missing hierarchy: %w", err)
	}
	defer rows.Close()

	var gaps []ObjectGaps
	for rows.Next() {
		var g ObjectGaps
		if err := rows.Scan(&g.ID, &g.NeedsAdministrativeUnit, &g.NeedsMunicipality, &g.NeedsBlock); err != nil {
			return nil, fmt.Errorf("failed to scan hierarchy gaps: %w", err)
		}
		if !withBlock {
			g.NeedsBlock = false
		}
		gaps = append(gaps, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hierarchy gaps: %w", err)
	}

	return gaps, nil
}

func (r *territoryRepository) FindByCenter(ctx context.Context, kind ObjectKind, level HierarchyLevel, cityID, objectID int64) (int64, bool, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT c.id
		FROM %s c
		JOIN %s o ON o.id = $1
		WHERE c.city_id = $2 AND ST_CoveredBy(o.center, c.geometry)
		ORDER BY c.id
		LIMIT 1`, levelTables[level], string(kind))

	var id int64
	err := q.QueryRow(ctx, query, objectID, cityID).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query containing %s for object %d: %w", level, objectID, err)
	}

	return id, true, nil
}

func (r *territoryRepository) FindByOverlap(ctx context.Context, kind ObjectKind, level HierarchyLevel, cityID, objectID int64, threshold float64) (int64, bool, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT c.id
		FROM %s c
		JOIN %s o ON o.id = $1
		WHERE c.city_id = $2
		  AND ST_Intersects(o.geometry, c.geometry)
		  AND ST_Area(ST_Intersection(o.geometry, c.geometry)) / NULLIF(ST_Area(o.geometry), 0) > $3
		ORDER BY ST_Area(ST_Intersection(o.geometry, c.geometry)) / NULLIF(ST_Area(o.geometry), 0) DESC, c.id
		LIMIT 1`, levelTables[level], string(kind))

	var id int64
	err := q.QueryRow(ctx, query, objectID, cityID, threshold).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query overlapping %s for object %d: %w", level, objectID, err)
	}

	return id, true, nil
}

func (r *territoryRepository) AssignIfNull(ctx context.Context, kind ObjectKind, level HierarchyLevel, objectID, candidateID int64) (bool, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $2 WHERE id = $1 AND %s IS NULL",
		string(kind), levelColumns[level], levelColumns[level])

	result, err := q.Exec(ctx, query, objectID, candidateID)
	if err != nil {
		return false, fmt.Errorf("failed to assign %s of object %d: %w", level, objectID, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *territoryRepository) UpdateBlockPopulations(ctx context.Context, cityID int64) (int64, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		UPDATE blocks b
		SET population = s.total
		FROM (
			SELECT p.block_id, sum(bld.resident_number) AS total
			FROM physical_objects p
			JOIN buildings bld ON bld.physical_object_id = p.id
			WHERE p.city_id = $1 AND bld.is_living AND p.block_id IS NOT NULL
			GROUP BY p.block_id
		) s
		WHERE b.id = s.block_id
		  AND b.population IS DISTINCT FROM s.total`

	result, err := q.Exec(ctx, query, cityID)
	if err != nil {
		return 0, fmt.Errorf("failed to update block populations: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *territoryRepository) FillMissingBuildingAreas(ctx context.Context, cityID int64) (int64, error) {
	q := database.QuerierFrom(ctx, r.db)

	query := `
		UPDATE buildings b
		SET building_area = ST_Area(p.geometry::geography)
		FROM physical_objects p
		WHERE p.id = b.physical_object_id
		  AND p.city_id = $1
		  AND b.building_area IS NULL
		  AND GeometryType(p.geometry) <> 'POINT'`

	result, err := q.Exec(ctx, query, cityID)
	if err != nil {
		return 0, fmt.Errorf("failed to fill missing building areas: %w", err)
	}

	return result.RowsAffected(), nil
}
