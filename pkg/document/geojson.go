package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeometryColumn is the synthetic column each GeoJSON feature's geometry
// is exposed under. Mappings for GeoJSON documents point their geometry
// field here.
const GeometryColumn = "geometry"

// GeoJSONSource reads a FeatureCollection, flattening each feature's
// properties into a row and attaching the geometry under GeometryColumn.
type GeoJSONSource struct {
	rows []Row
	pos  int
}

// OpenGeoJSON loads a FeatureCollection document.
func OpenGeoJSON(path string) (*GeoJSONSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewGeoJSONSource(data)
}

// NewGeoJSONSource parses a FeatureCollection from raw bytes.
func NewGeoJSONSource(data []byte) (*GeoJSONSource, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON document: %w", err)
	}

	rows := make([]Row, 0, len(fc.Features))
	for i, feature := range fc.Features {
		row := make(Row, len(feature.Properties)+1)
		for k, v := range feature.Properties {
			row[k] = v
		}
		raw, err := geojson.Marshal(feature.Geometry)
		if err != nil {
			return nil, fmt.Errorf("failed to encode geometry of feature %d: %w", i, err)
		}
		row[GeometryColumn] = string(raw)
		rows = append(rows, row)
	}

	return &GeoJSONSource{rows: rows}, nil
}

func (s *GeoJSONSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *GeoJSONSource) Close() error { return nil }
