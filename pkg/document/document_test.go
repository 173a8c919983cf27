package document

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, src Source) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.NoError(t, src.Close())
	return rows
}

func TestJSONSource(t *testing.T) {
	src, err := NewJSONSource([]byte(`[
		{"name": "School 1", "lat": 59.93, "lon": 30.31},
		{"name": "School 2", "lat": 59.94, "lon": 30.32}
	]`))
	require.NoError(t, err)

	rows := drain(t, src)
	require.Len(t, rows, 2)
	assert.Equal(t, "School 1", rows[0]["name"])
	assert.Equal(t, 59.94, rows[1]["lat"])
}

func TestJSONSourceNotAnArray(t *testing.T) {
	_, err := NewJSONSource([]byte(`{"name": "School"}`))
	assert.Error(t, err)
}

func TestGeoJSONSource(t *testing.T) {
	src, err := NewGeoJSONSource([]byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [30.31, 59.93]},
				"properties": {"name": "School 1", "capacity": 300}
			}
		]
	}`))
	require.NoError(t, err)

	rows := drain(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, "School 1", rows[0]["name"])
	assert.Contains(t, rows[0][GeometryColumn], `"Point"`)
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.csv")
	content := "name,lat,lon\nSchool 1,59.93,30.31\nSchool 2,59.94,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := OpenCSV(path)
	require.NoError(t, err)

	rows := drain(t, src)
	require.Len(t, rows, 2)
	assert.Equal(t, "School 1", rows[0]["name"])
	assert.Equal(t, "30.31", rows[0]["lon"])
	// Empty cells stay absent rather than becoming empty strings.
	_, ok := rows[1]["lon"]
	assert.False(t, ok)
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open("services.xlsx")
	assert.Error(t, err)
}
