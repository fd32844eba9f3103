package table

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/jamesrr39/goutil/errorsx"
)

// Row is one record of a Table, aligned with the table's fields
type Row []Value

func (r Row) clone() Row {
	return append(Row{}, r...)
}

// Table is an ordered list of fields and rows.
type Table struct {
	fields []string
	rows   []Row
}

// New creates an empty table with the given fields.
func New(fields ...string) *Table {
	return &Table{fields: append([]string{}, fields...)}
}

// SetFields replaces the field names. When the table already holds rows, the
// new field count must match their length.
func (t *Table) SetFields(fields []string) errorsx.Error {
	if len(t.rows) > 0 && len(fields) != len(t.fields) {
		return errorsx.Wrap(ErrSchemaMismatch, "fieldCount", len(fields), "rowLength", len(t.fields))
	}
	t.fields = append([]string{}, fields...)
	return nil
}

// Fields returns a copy of the field names.
func (t *Table) Fields() []string {
	return append([]string{}, t.fields...)
}

func (t *Table) NumFields() int {
	return len(t.fields)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// FieldIndex returns the index of the first field called name.
func (t *Table) FieldIndex(name string) (int, bool) {
	for i, f := range t.fields {
		if f == name {
			return i, true
		}
	}
	return -1, false
}

// Append adds a row. Its length must equal the number of fields.
func (t *Table) Append(row Row) errorsx.Error {
	if len(row) != len(t.fields) {
		return errorsx.Wrap(ErrSchemaMismatch, "rowLength", len(row), "fieldCount", len(t.fields))
	}
	t.rows = append(t.rows, row.clone())
	return nil
}

func (t *Table) checkIndex(i int) errorsx.Error {
	if i < 0 || i >= len(t.rows) {
		return errorsx.Wrap(ErrIndex, "index", i, "length", len(t.rows))
	}
	return nil
}

// Row returns a copy of the row at index i.
func (t *Table) Row(i int) (Row, errorsx.Error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}
	return t.rows[i].clone(), nil
}

// SetRow replaces the row at index i.
func (t *Table) SetRow(i int, row Row) errorsx.Error {
	if err := t.checkIndex(i); err != nil {
		return err
	}
	if len(row) != len(t.fields) {
		return errorsx.Wrap(ErrSchemaMismatch, "rowLength", len(row), "fieldCount", len(t.fields))
	}
	t.rows[i] = row.clone()
	return nil
}

// At returns a single cell without copying the row. Indexes are not checked.
func (t *Table) At(row, col int) Value {
	return t.rows[row][col]
}

// Swap exchanges two rows in place.
func (t *Table) Swap(i, j int) {
	t.rows[i], t.rows[j] = t.rows[j], t.rows[i]
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.clone()
	}
	return out
}

// SetRows replaces every row of the table.
func (t *Table) SetRows(rows []Row) errorsx.Error {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(t.fields) {
			return errorsx.Wrap(ErrSchemaMismatch, "rowLength", len(row), "fieldCount", len(t.fields))
		}
		out = append(out, row.clone())
	}
	t.rows = out
	return nil
}

// Values returns the column of the first field called name.
// Known limitation: later fields sharing that name cannot be addressed.
func (t *Table) Values(name string) ([]Value, errorsx.Error) {
	idx, ok := t.FieldIndex(name)
	if !ok {
		return nil, errorsx.Wrap(ErrLookup, "field", name)
	}
	return t.Column(idx), nil
}

// Column returns the values at column index idx.
func (t *Table) Column(idx int) []Value {
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out
}

func clampRange(start, end, length int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if start > end {
		start = end
	}
	return start, end
}

// SliceCol returns a new table with the fields and row cells in [start, end).
// Out of range bounds are clamped.
func (t *Table) SliceCol(start, end int) *Table {
	start, end = clampRange(start, end, len(t.fields))
	out := New(t.fields[start:end]...)
	out.rows = make([]Row, len(t.rows))
	for i, row := range t.rows {
		out.rows[i] = row[start:end].clone()
	}
	return out
}

// Chain concatenates t and other horizontally. The result has as many rows as
// the shorter of the two tables.
func (t *Table) Chain(other *Table) *Table {
	out := New(append(t.Fields(), other.fields...)...)
	n := len(t.rows)
	if len(other.rows) < n {
		n = len(other.rows)
	}
	out.rows = make([]Row, n)
	for i := 0; i < n; i++ {
		row := make(Row, 0, len(t.fields)+len(other.fields))
		row = append(row, t.rows[i]...)
		row = append(row, other.rows[i]...)
		out.rows[i] = row
	}
	return out
}

// Copy replaces this table's fields and rows with copies of other's.
func (t *Table) Copy(other *Table) {
	fields := other.Fields()
	rows := other.Rows()
	t.fields = fields
	t.rows = rows
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{}
	out.Copy(t)
	return out
}

// Select returns a new table holding only the rows whose index is in mask, in row order.
func (t *Table) Select(mask *roaring.Bitmap) *Table {
	out := New(t.fields...)
	if mask == nil {
		return out
	}
	it := mask.Iterator()
	for it.HasNext() {
		idx := int(it.Next())
		if idx >= len(t.rows) {
			break
		}
		out.rows = append(out.rows, t.rows[idx].clone())
	}
	return out
}

// Head returns a new table with at most n rows starting at offset. A negative n keeps every remaining row.
func (t *Table) Head(offset, n int) *Table {
	start, end := clampRange(offset, len(t.rows), len(t.rows))
	if n >= 0 && n < end-start {
		end = start + n
	}
	out := New(t.fields...)
	out.rows = make([]Row, 0, end-start)
	for _, row := range t.rows[start:end] {
		out.rows = append(out.rows, row.clone())
	}
	return out
}

// Reorder returns a new table holding the rows at indexes, in that order.
// Indexes out of range are skipped.
func (t *Table) Reorder(indexes []int) *Table {
	out := New(t.fields...)
	out.rows = make([]Row, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(t.rows) {
			continue
		}
		out.rows = append(out.rows, t.rows[idx].clone())
	}
	return out
}

// String dumps the field list followed by one line per row.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("[" + strings.Join(t.fields, ", ") + "]")
	for _, row := range t.rows {
		sb.WriteByte('\n')
		sb.WriteString(List(row...).Text())
	}
	return sb.String()
}
