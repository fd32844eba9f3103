// Package table provides the in-memory tables the query engine operates on.
//
// A Table is an ordered list of field names plus an ordered list of rows.
// Every row holds exactly one Value per field. Field names are not required
// to be unique; lookups by name always resolve to the first matching field,
// so a duplicated name is only addressable through its first occurrence.
//
// Values are a closed tagged union (none, int, float, string, bool, list)
// with the coercion and comparison rules shared by the whole engine:
//
//	t := table.New("a", "b")
//	_ = t.Append(table.Row{table.Int(1), table.Int(2)})
//	_ = t.Append(table.Row{table.Int(2), table.Int(4)})
//	vals, err := t.Values("b")
//
// Tables own their field and row slices. SetFields, Append, Copy, SliceCol
// and Chain copy their inputs, so two tables never share mutable state.
package table
