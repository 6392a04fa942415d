package fcbatch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one metadata record mapped by column header. Rows are ephemeral and
// consumed once while building resources.
type Row map[string]string

// Get returns the raw value of the named column.
func (r Row) Get(column string) string {
	return r[column]
}

// Values returns the trimmed, non-empty values of the named column. With an
// empty delimiter the raw value is the single result; otherwise the value is
// split and empty parts are dropped.
func (r Row) Values(column, delimiter string) []string {
	raw := r[column]
	if delimiter == "" {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		return []string{raw}
	}
	parts := strings.Split(raw, delimiter)
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// ReadMetadata parses the metadata sheet into header-mapped rows. The first
// record is the header; every following record must have the same number of
// fields. A malformed record fails the whole read with its line number.
func ReadMetadata(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("metadata sheet is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata header: %v", err)
	}
	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata record: %v", err)
		}
		row := make(Row, len(header))
		for i, column := range header {
			row[column] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
