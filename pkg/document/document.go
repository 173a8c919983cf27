// Package document turns source files into uniform rows for the loader.
// The loader itself never branches on the source format; it only consumes
// the Source iterator.
package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Row is one source record: a mapping of source column name to value.
// Values keep their JSON types (string, float64, bool, nested objects).
type Row map[string]interface{}

// Source iterates the rows of one document. Next returns io.EOF after the
// last row.
type Source interface {
	Next() (Row, error)
	Close() error
}

// Open picks a source implementation by file extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return OpenJSON(path)
	case ".geojson":
		return OpenGeoJSON(path)
	case ".csv":
		return OpenCSV(path)
	default:
		return nil, fmt.Errorf("unsupported document format %q", filepath.Ext(path))
	}
}
