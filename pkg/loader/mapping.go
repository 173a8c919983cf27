package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/document"
	"github.com/iduprojects/insert-services/pkg/models"
)

// SkipColumn in a mapping slot means the target field is intentionally
// left unset.
const SkipColumn = "-"

// FieldMapping binds each target field to a source column name. Two
// fields may point at the same column; both are populated from it.
type FieldMapping struct {
	Geometry     string
	Latitude     string
	Longitude    string
	Address      string
	Name         string
	OpeningHours string
	Website      string
	Phone        string
	Capacity     string
	OSMID        string
	// Properties maps extra property keys to source columns; values land
	// in the service's JSONB properties.
	Properties map[string]string
}

func (m *FieldMapping) has(column string) bool {
	return column != "" && column != SkipColumn
}

// ColumnMapper validates raw rows against a field mapping and produces
// typed records. It performs no I/O.
type ColumnMapper struct {
	mapping        FieldMapping
	normalizer     *PrefixNormalizer
	requireAddress bool
	defaultName    string
}

// NewColumnMapper builds a mapper. requireAddress marks the address as a
// hard requirement (building-based service types); defaultName is used
// when the source row carries no name.
func NewColumnMapper(mapping FieldMapping, normalizer *PrefixNormalizer, requireAddress bool, defaultName string) *ColumnMapper {
	return &ColumnMapper{
		mapping:        mapping,
		normalizer:     normalizer,
		requireAddress: requireAddress,
		defaultName:    defaultName,
	}
}

// MapRow turns one source row into a ServiceRecord. Errors are row-level:
// the caller rejects the row and continues with the rest of the document.
func (m *ColumnMapper) MapRow(row document.Row) (*models.ServiceRecord, error) {
	geometry, geoJSON, err := m.extractGeometry(row)
	if err != nil {
		return nil, err
	}

	record := &models.ServiceRecord{
		Geometry: geometry,
		GeoJSON:  geoJSON,
	}

	if m.mapping.has(m.mapping.Address) {
		raw, ok := stringCell(row, m.mapping.Address)
		if !ok && m.requireAddress {
			return nil, apperrors.NewRowError("address column is empty", apperrors.ErrMissingRequiredField)
		}
		if ok {
			normalized, err := m.normalizer.Normalize(raw)
			if err != nil {
				return nil, apperrors.NewRowError(fmt.Sprintf("address %q", raw), err)
			}
			record.Address = &normalized
		}
	} else if m.requireAddress {
		return nil, apperrors.NewRowError("no address column is mapped", apperrors.ErrMissingRequiredField)
	}

	if name, ok := stringCell(row, m.mapping.Name); ok {
		record.Name = name
	} else {
		record.Name = m.defaultName
	}

	record.OpeningHours = optionalCell(row, m.mapping.OpeningHours)
	record.Website = optionalCell(row, m.mapping.Website)
	record.Phone = optionalCell(row, m.mapping.Phone)
	record.OSMID = optionalCell(row, m.mapping.OSMID)

	if raw, ok := stringCell(row, m.mapping.Capacity); ok {
		if capacity, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			record.Capacity = &capacity
		}
	}

	if len(m.mapping.Properties) > 0 {
		record.Properties = make(models.Properties, len(m.mapping.Properties))
		for key, column := range m.mapping.Properties {
			if value, ok := row[column]; ok && value != nil {
				record.Properties[key] = value
			}
		}
	}

	return record, nil
}

// extractGeometry reads a pre-built geometry column when mapped, otherwise
// synthesizes a point from latitude and longitude.
func (m *ColumnMapper) extractGeometry(row document.Row) (geom.T, []byte, error) {
	if m.mapping.has(m.mapping.Geometry) {
		value, ok := row[m.mapping.Geometry]
		if !ok || value == nil {
			return nil, nil, apperrors.NewRowError("geometry column is empty", apperrors.ErrMissingRequiredField)
		}
		raw, err := geometryBytes(value)
		if err != nil {
			return nil, nil, apperrors.NewRowError("geometry column", apperrors.ErrInvalidGeometry)
		}
		var g geom.T
		if err := geojson.Unmarshal(raw, &g); err != nil {
			return nil, nil, apperrors.NewRowError(err.Error(), apperrors.ErrInvalidGeometry)
		}
		canonical, err := geojson.Marshal(g)
		if err != nil {
			return nil, nil, apperrors.NewRowError(err.Error(), apperrors.ErrInvalidGeometry)
		}
		return g, canonical, nil
	}

	if !m.mapping.has(m.mapping.Latitude) || !m.mapping.has(m.mapping.Longitude) {
		return nil, nil, apperrors.NewRowError("neither geometry nor latitude/longitude columns are mapped", apperrors.ErrMissingRequiredField)
	}

	lat, latOK := floatCell(row, m.mapping.Latitude)
	lon, lonOK := floatCell(row, m.mapping.Longitude)
	if !latOK || !lonOK {
		return nil, nil, apperrors.NewRowError("latitude/longitude columns are empty", apperrors.ErrMissingRequiredField)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, nil, apperrors.NewRowError(
			fmt.Sprintf("latitude %v, longitude %v", lat, lon), apperrors.ErrInvalidCoordinates)
	}

	point := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	canonical, err := geojson.Marshal(point)
	if err != nil {
		return nil, nil, apperrors.NewRowError(err.Error(), apperrors.ErrInvalidGeometry)
	}

	return point, canonical, nil
}

func geometryBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func stringCell(row document.Row, column string) (string, bool) {
	if column == "" || column == SkipColumn {
		return "", false
	}
	value, ok := row[column]
	if !ok || value == nil {
		return "", false
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func optionalCell(row document.Row, column string) *string {
	if s, ok := stringCell(row, column); ok {
		return &s
	}
	return nil
}

func floatCell(row document.Row, column string) (float64, bool) {
	s, ok := stringCell(row, column)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
