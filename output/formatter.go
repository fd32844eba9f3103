package output

import (
	"io"
	"sort"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// Formatter writes a table in one output format.
type Formatter interface {
	Format(tbl *table.Table) errorsx.Error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

var constructors = map[string]func(w io.Writer) Formatter{
	"text":    func(w io.Writer) Formatter { return NewTextFormatter(w) },
	"csv":     func(w io.Writer) Formatter { return NewCSVFormatter(w) },
	"json":    func(w io.Writer) Formatter { return NewJSONFormatter(w) },
	"jsonl":   func(w io.Writer) Formatter { return NewJSONLinesFormatter(w) },
	"table":   func(w io.Writer) Formatter { return NewTableFormatter(w) },
	"parquet": func(w io.Writer) Formatter { return NewParquetFormatter(w) },
}

// New returns the formatter for a format name.
func New(format string, w io.Writer) (Formatter, errorsx.Error) {
	constructor, ok := constructors[format]
	if !ok {
		return nil, errorsx.Errorf("unknown output format %q, expected one of %v", format, Names())
	}
	return constructor(w), nil
}

// Names lists the supported format names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextFormatter writes the plain dump of a table.
type TextFormatter struct {
	writer io.Writer
}

func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

func (f *TextFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

func (f *TextFormatter) Format(tbl *table.Table) errorsx.Error {
	_, err := io.WriteString(f.writer, tbl.String()+"\n")
	if err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}
