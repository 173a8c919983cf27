package document

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVSource reads a comma-separated document with a header row. All cell
// values surface as strings; the loader parses numbers itself.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
	header []string
}

// OpenCSV opens a CSV document and consumes its header row.
func OpenCSV(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	return &CSVSource{file: file, reader: reader, header: header}, nil
}

func (s *CSVSource) Next() (Row, error) {
	record, err := s.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read CSV row: %w", err)
	}

	row := make(Row, len(s.header))
	for i, name := range s.header {
		if i < len(record) && record[i] != "" {
			row[name] = record[i]
		}
	}
	return row, nil
}

func (s *CSVSource) Close() error {
	return s.file.Close()
}
