package output

import (
	"fmt"
	"io"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/olekukonko/tablewriter"
	"github.com/vegasq/sqlhub/table"
)

// TableFormatter draws a bordered table, for reading results in a terminal.
type TableFormatter struct {
	writer io.Writer
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

func (t *TableFormatter) Format(tbl *table.Table) errorsx.Error {
	tw := tablewriter.NewWriter(t.writer)
	tw.SetHeader(tbl.Fields())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, row := range tbl.Rows() {
		record := make([]string, len(row))
		for i, v := range row {
			if v.IsNone() {
				record[i] = "NULL"
				continue
			}
			record[i] = v.Text()
		}
		tw.Append(record)
	}
	tw.SetCaption(true, rowCount(tbl.Len()))
	tw.Render()
	return nil
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}
