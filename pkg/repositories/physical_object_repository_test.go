//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/models"
	"github.com/iduprojects/insert-services/pkg/testhelpers"
)

func TestPhysicalObjectFindByGeometry(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	cityID := createTestCity(t, db)
	repo := NewPhysicalObjectRepository(db.DB.Pool)
	ctx := context.Background()

	square := squareJSON("30", "59", "30.001", "59.001")
	other := squareJSON("30.5", "59.5", "30.501", "59.501")

	obj := &models.PhysicalObject{CityID: cityID}
	require.NoError(t, repo.Insert(ctx, obj, square))
	objOther := &models.PhysicalObject{CityID: cityID}
	require.NoError(t, repo.Insert(ctx, objOther, other))

	ids, err := repo.FindByGeometry(ctx, cityID, square)
	require.NoError(t, err)
	assert.Equal(t, []int64{obj.ID}, ids)

	// Equality is topological: the same ring starting at another vertex
	// still matches.
	rotated := []byte(`{"type":"Polygon","coordinates":[[[30.001,59],[30.001,59.001],[30,59.001],[30,59],[30.001,59]]]}`)
	ids, err = repo.FindByGeometry(ctx, cityID, rotated)
	require.NoError(t, err)
	assert.Equal(t, []int64{obj.ID}, ids)

	// A near miss is not a match.
	ids, err = repo.FindByGeometry(ctx, cityID, squareJSON("30", "59", "30.002", "59.001"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPhysicalObjectGeometryUpgrade(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	cityID := createTestCity(t, db)
	repo := NewPhysicalObjectRepository(db.DB.Pool)
	ctx := context.Background()

	point := []byte(`{"type":"Point","coordinates":[30.1,59.1]}`)
	obj := &models.PhysicalObject{CityID: cityID}
	require.NoError(t, repo.Insert(ctx, obj, point))

	isPoint, equal, err := repo.GeometryInfo(ctx, obj.ID, point)
	require.NoError(t, err)
	assert.True(t, isPoint)
	assert.True(t, equal)

	polygon := squareJSON("30.1", "59.1", "30.102", "59.102")
	require.NoError(t, repo.UpdateGeometry(ctx, obj.ID, polygon))

	isPoint, equal, err = repo.GeometryInfo(ctx, obj.ID, polygon)
	require.NoError(t, err)
	assert.False(t, isPoint)
	assert.True(t, equal)

	// The stored center follows the new geometry.
	var x, y float64
	err = db.DB.Pool.QueryRow(ctx,
		"SELECT ST_X(center), ST_Y(center) FROM physical_objects WHERE id = $1",
		obj.ID).Scan(&x, &y)
	require.NoError(t, err)
	assert.InDelta(t, 30.101, x, 1e-6)
	assert.InDelta(t, 59.101, y, 1e-6)
}

func TestPhysicalObjectDeleteMissing(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewPhysicalObjectRepository(db.DB.Pool)

	err := repo.Delete(context.Background(), 999999999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
