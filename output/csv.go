package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// CSVFormatter outputs rows as CSV. A field name or value holding an
// unescaped comma or a newline is wrapped in double quotes; nothing else is
// quoted or altered. None is written as an empty value.
type CSVFormatter struct {
	writer io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

func (c *CSVFormatter) Format(tbl *table.Table) errorsx.Error {
	bw := bufio.NewWriter(c.writer)

	writeLine(bw, tbl.Fields())
	for _, row := range tbl.Rows() {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = v.Text()
		}
		writeLine(bw, record)
	}

	if err := bw.Flush(); err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}

// writeLine ignores write errors; bufio reports the first one on Flush.
func writeLine(bw *bufio.Writer, record []string) {
	for i, cell := range record {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(quoteCell(cell))
	}
	bw.WriteByte('\n')
}

func quoteCell(cell string) string {
	if strings.Contains(cell, "\n") || hasUnescapedComma(cell) {
		return `"` + cell + `"`
	}
	return cell
}

func hasUnescapedComma(s string) bool {
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			return true
		}
	}
	return false
}
