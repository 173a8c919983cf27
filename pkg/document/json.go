package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONSource reads a document that is a JSON array of flat objects.
type JSONSource struct {
	rows []Row
	pos  int
}

// OpenJSON loads the whole array up front; source documents are bounded
// batch files, not streams.
func OpenJSON(path string) (*JSONSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewJSONSource(data)
}

// NewJSONSource parses a JSON array of objects from raw bytes.
func NewJSONSource(data []byte) (*JSONSource, error) {
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse JSON document: %w", err)
	}
	return &JSONSource{rows: rows}, nil
}

func (s *JSONSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *JSONSource) Close() error { return nil }
