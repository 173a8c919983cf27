package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/document"
)

func testMapper(mapping FieldMapping, requireAddress bool) *ColumnMapper {
	normalizer := NewPrefixNormalizer([]string{""}, "")
	return NewColumnMapper(mapping, normalizer, requireAddress, "(school unnamed)")
}

func TestMapRowFromLatLon(t *testing.T) {
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Name: "name"}, false)

	record, err := m.MapRow(document.Row{"lat": 59.93, "lon": 30.31, "name": "School 1"})
	require.NoError(t, err)

	point, ok := record.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 30.31, point.X(), 1e-9)
	assert.InDelta(t, 59.93, point.Y(), 1e-9)
	assert.Equal(t, "School 1", record.Name)
	assert.True(t, record.IsPoint())
}

func TestMapRowFromGeometryColumn(t *testing.T) {
	m := testMapper(FieldMapping{Geometry: "geometry"}, false)

	polygon := `{"type":"Polygon","coordinates":[[[30,59],[30.1,59],[30.1,59.1],[30,59.1],[30,59]]]}`
	record, err := m.MapRow(document.Row{"geometry": polygon})
	require.NoError(t, err)

	_, ok := record.Geometry.(*geom.Polygon)
	require.True(t, ok)
	assert.False(t, record.IsPoint())
	assert.NotEmpty(t, record.GeoJSON)
}

func TestMapRowMalformedGeometry(t *testing.T) {
	m := testMapper(FieldMapping{Geometry: "geometry"}, false)

	_, err := m.MapRow(document.Row{"geometry": "{not geojson"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidGeometry)
	assert.True(t, apperrors.IsRowError(err))
}

func TestMapRowMissingGeometry(t *testing.T) {
	m := testMapper(FieldMapping{Geometry: "geometry"}, false)

	_, err := m.MapRow(document.Row{"other": "x"})
	assert.ErrorIs(t, err, apperrors.ErrMissingRequiredField)
}

func TestMapRowNoGeometrySelectors(t *testing.T) {
	m := testMapper(FieldMapping{Name: "name"}, false)

	_, err := m.MapRow(document.Row{"name": "School"})
	assert.ErrorIs(t, err, apperrors.ErrMissingRequiredField)
}

func TestMapRowCoordinatesOutOfRange(t *testing.T) {
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon"}, false)

	_, err := m.MapRow(document.Row{"lat": 120.0, "lon": 30.0})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
}

func TestMapRowRequiredAddressMissing(t *testing.T) {
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Address: "addr"}, true)

	_, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0})
	assert.ErrorIs(t, err, apperrors.ErrMissingRequiredField)
}

func TestMapRowAddressNormalized(t *testing.T) {
	normalizer := NewPrefixNormalizer([]string{"Russia"}, "RU")
	m := NewColumnMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Address: "addr"}, normalizer, true, "(school unnamed)")

	record, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0, "addr": "Russia, Street 1"})
	require.NoError(t, err)
	require.NotNil(t, record.Address)
	assert.Equal(t, "RU, Street 1", *record.Address)
}

func TestMapRowAddressPrefixMismatchRejects(t *testing.T) {
	normalizer := NewPrefixNormalizer([]string{"Russia"}, "RU")
	m := NewColumnMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Address: "addr"}, normalizer, true, "(school unnamed)")

	_, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0, "addr": "Finland, Street 1"})
	assert.ErrorIs(t, err, apperrors.ErrAddressPrefixMismatch)
}

func TestMapRowDefaultName(t *testing.T) {
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Name: "name"}, false)

	record, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0})
	require.NoError(t, err)
	assert.Equal(t, "(school unnamed)", record.Name)
}

func TestMapRowSharedColumn(t *testing.T) {
	// Two selectors pointing at the same column both populate from it.
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Name: "title", Website: "title"}, false)

	record, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0, "title": "School 2"})
	require.NoError(t, err)
	assert.Equal(t, "School 2", record.Name)
	require.NotNil(t, record.Website)
	assert.Equal(t, "School 2", *record.Website)
}

func TestMapRowCapacityAndProperties(t *testing.T) {
	m := testMapper(FieldMapping{
		Latitude:   "lat",
		Longitude:  "lon",
		Capacity:   "cap",
		Properties: map[string]string{"operator": "op"},
	}, false)

	record, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0, "cap": "250", "op": "city"})
	require.NoError(t, err)
	require.NotNil(t, record.Capacity)
	assert.Equal(t, 250, *record.Capacity)
	assert.Equal(t, "city", record.Properties["operator"])
}

func TestMapRowUnparseableCapacityIgnored(t *testing.T) {
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Capacity: "cap"}, false)

	record, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0, "cap": "many"})
	require.NoError(t, err)
	assert.Nil(t, record.Capacity)
}

func TestMapRowSkipColumn(t *testing.T) {
	m := testMapper(FieldMapping{Latitude: "lat", Longitude: "lon", Website: SkipColumn}, false)

	record, err := m.MapRow(document.Row{"lat": 59.0, "lon": 30.0, "-": "oops"})
	require.NoError(t, err)
	assert.Nil(t, record.Website)
}
