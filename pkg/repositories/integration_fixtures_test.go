//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/iduprojects/insert-services/pkg/testhelpers"
)

// Fixture geometries are small lon/lat squares around (30, 59). All inserts
// derive names and codes from the test name, so tests never collide on the
// shared container.

// createTestCity inserts a city spanning the 29..31 / 58..60 extent.
func createTestCity(t *testing.T, db *testhelpers.TestDB) int64 {
	t.Helper()

	var id int64
	err := db.DB.Pool.QueryRow(context.Background(), `
		INSERT INTO cities (name, code, geometry, center)
		VALUES ($1, $1,
			ST_GeomFromText('POLYGON((29 58, 31 58, 31 60, 29 60, 29 58))', 4326),
			ST_GeomFromText('POINT(30 59)', 4326))
		RETURNING id`, t.Name()).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test city: %v", err)
	}
	return id
}

// createTestServiceType inserts the infrastructure/function/service-type
// chain and returns the service type id.
func createTestServiceType(t *testing.T, db *testhelpers.TestDB, isBuilding bool) int64 {
	t.Helper()
	ctx := context.Background()

	var infraID int64
	err := db.DB.Pool.QueryRow(ctx, `
		INSERT INTO city_infrastructure_types (name, code)
		VALUES ($1 || '-infra', $1 || '-infra')
		RETURNING id`, t.Name()).Scan(&infraID)
	if err != nil {
		t.Fatalf("failed to create infrastructure type: %v", err)
	}

	var functionID int64
	err = db.DB.Pool.QueryRow(ctx, `
		INSERT INTO city_functions (city_infrastructure_type_id, name, code)
		VALUES ($1, $2 || '-function', $2 || '-function')
		RETURNING id`, infraID, t.Name()).Scan(&functionID)
	if err != nil {
		t.Fatalf("failed to create city function: %v", err)
	}

	var id int64
	err = db.DB.Pool.QueryRow(ctx, `
		INSERT INTO city_service_types (city_function_id, name, code, capacity_min, capacity_max, is_building)
		VALUES ($1, $2 || '-type', $2 || '-type', 100, 1000, $3)
		RETURNING id`, functionID, t.Name(), isBuilding).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create service type: %v", err)
	}
	return id
}

// insertTerritory inserts a row into the given territory table (one of
// administrative_units, municipalities or blocks) with a polygon geometry
// given as WKT.
func insertTerritory(t *testing.T, db *testhelpers.TestDB, table string, cityID int64, wkt string) int64 {
	t.Helper()

	query := `
		INSERT INTO ` + table + ` (city_id, name, geometry, center)
		VALUES ($1, $2,
			ST_GeomFromText($3, 4326),
			ST_Centroid(ST_GeomFromText($3, 4326)))
		RETURNING id`
	args := []interface{}{cityID, t.Name(), wkt}
	if table == "blocks" {
		query = `
			INSERT INTO blocks (city_id, geometry, center)
			VALUES ($1,
				ST_GeomFromText($2, 4326),
				ST_Centroid(ST_GeomFromText($2, 4326)))
			RETURNING id`
		args = []interface{}{cityID, wkt}
	}

	var id int64
	err := db.DB.Pool.QueryRow(context.Background(), query, args...).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert %s row: %v", table, err)
	}
	return id
}

// squareJSON builds a GeoJSON polygon covering x0..x1 / y0..y1.
func squareJSON(x0, y0, x1, y1 string) []byte {
	return []byte(`{"type":"Polygon","coordinates":[[` +
		`[` + x0 + `,` + y0 + `],` +
		`[` + x1 + `,` + y0 + `],` +
		`[` + x1 + `,` + y1 + `],` +
		`[` + x0 + `,` + y1 + `],` +
		`[` + x0 + `,` + y0 + `]]]}`)
}
