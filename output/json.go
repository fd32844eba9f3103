package output

import (
	"encoding/json"
	"io"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// JSONFormatter writes {"fields": [...], "rows": [[...], ...]}.
type JSONFormatter struct {
	writer io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

func (j *JSONFormatter) Format(tbl *table.Table) errorsx.Error {
	if err := json.NewEncoder(j.writer).Encode(tbl); err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}

// JSONLinesFormatter writes one JSON object per row. When field names
// repeat, the first field of that name wins.
type JSONLinesFormatter struct {
	writer io.Writer
}

func NewJSONLinesFormatter(w io.Writer) *JSONLinesFormatter {
	return &JSONLinesFormatter{writer: w}
}

func (j *JSONLinesFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

func (j *JSONLinesFormatter) Format(tbl *table.Table) errorsx.Error {
	encoder := json.NewEncoder(j.writer)
	fields := tbl.Fields()
	for _, row := range tbl.Rows() {
		record := make(map[string]table.Value, len(fields))
		for i, name := range fields {
			if _, ok := record[name]; !ok {
				record[name] = row[i]
			}
		}
		if err := encoder.Encode(record); err != nil {
			return errorsx.Wrap(err)
		}
	}
	return nil
}
