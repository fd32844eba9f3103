package table

import (
	"encoding/json"
	"strconv"

	"github.com/jamesrr39/goutil/errorsx"
)

// wireValue keeps the value kind next to the payload so that ints and
// floats survive a round trip through JSON.
type wireValue struct {
	K Kind            `json:"k"`
	V json.RawMessage `json:"v,omitempty"`
}

type wireTable struct {
	Fields []string      `json:"fields"`
	Rows   [][]wireValue `json:"rows"`
}

func (v Value) toWire() (wireValue, error) {
	w := wireValue{K: v.kind}
	var err error
	switch v.kind {
	case KindInt:
		w.V = json.RawMessage(strconv.FormatInt(v.i, 10))
	case KindBool:
		w.V = json.RawMessage(strconv.FormatBool(v.i != 0))
	case KindFloat:
		w.V, err = json.Marshal(v.f)
	case KindString:
		w.V, err = json.Marshal(v.s)
	case KindList:
		items := make([]wireValue, len(v.list))
		for i, item := range v.list {
			items[i], err = item.toWire()
			if err != nil {
				return w, err
			}
		}
		w.V, err = json.Marshal(items)
	}
	return w, err
}

func (w wireValue) toValue() (Value, error) {
	switch w.K {
	case KindNone:
		return None(), nil
	case KindInt:
		i, err := strconv.ParseInt(string(w.V), 10, 64)
		return Int(i), err
	case KindBool:
		b, err := strconv.ParseBool(string(w.V))
		return Bool(b), err
	case KindFloat:
		var f float64
		err := json.Unmarshal(w.V, &f)
		return Float(f), err
	case KindString:
		var s string
		err := json.Unmarshal(w.V, &s)
		return String(s), err
	case KindList:
		var items []wireValue
		if err := json.Unmarshal(w.V, &items); err != nil {
			return None(), err
		}
		out := make([]Value, len(items))
		for i, item := range items {
			val, err := item.toValue()
			if err != nil {
				return None(), err
			}
			out[i] = val
		}
		return Value{kind: KindList, list: out}, nil
	}
	return None(), errorsx.Errorf("unknown value kind %d", w.K)
}

// Encode serialises a table, preserving value kinds exactly.
func Encode(t *Table) ([]byte, errorsx.Error) {
	wt := wireTable{Fields: t.Fields(), Rows: make([][]wireValue, len(t.rows))}
	for i, row := range t.rows {
		wt.Rows[i] = make([]wireValue, len(row))
		for j, val := range row {
			w, err := val.toWire()
			if err != nil {
				return nil, errorsx.Wrap(err, "row", i, "column", j)
			}
			wt.Rows[i][j] = w
		}
	}

	b, err := json.Marshal(wt)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}
	return b, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Table, errorsx.Error) {
	var wt wireTable
	if err := json.Unmarshal(data, &wt); err != nil {
		return nil, errorsx.Wrap(err)
	}

	t := New(wt.Fields...)
	for i, wireRow := range wt.Rows {
		row := make(Row, len(wireRow))
		for j, w := range wireRow {
			val, err := w.toValue()
			if err != nil {
				return nil, errorsx.Wrap(err, "row", i, "column", j)
			}
			row[j] = val
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MarshalJSON renders the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// MarshalJSON renders the table as {"fields": [...], "rows": [[...]]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(struct {
		Fields []string `json:"fields"`
		Rows   []Row    `json:"rows"`
	}{t.Fields(), rows})
}
