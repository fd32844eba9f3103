package output

import (
	"fmt"
	"io"
	"reflect"
	"regexp"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/parquet-go/parquet-go"
	"github.com/vegasq/sqlhub/table"
)

// ParquetFormatter writes a parquet file with one optional column per field.
// A column holding only bools is BOOLEAN, only ints INT64, ints and floats
// DOUBLE, and anything else (including a column of only NULLs) a string.
// Field names are reduced to letters, digits and underscores, and repeated
// names get a numeric suffix.
type ParquetFormatter struct {
	writer io.Writer
}

func NewParquetFormatter(w io.Writer) *ParquetFormatter {
	return &ParquetFormatter{writer: w}
}

func (p *ParquetFormatter) SetOutput(w io.Writer) {
	p.writer = w
}

type parquetColumn struct {
	name string
	kind reflect.Kind
}

var (
	boolType   = reflect.TypeOf(false)
	int64Type  = reflect.TypeOf(int64(0))
	doubleType = reflect.TypeOf(float64(0))
	stringType = reflect.TypeOf("")
)

func (c parquetColumn) elemType() reflect.Type {
	switch c.kind {
	case reflect.Bool:
		return boolType
	case reflect.Int64:
		return int64Type
	case reflect.Float64:
		return doubleType
	}
	return stringType
}

// convert returns the value to store, or false for a null.
func (c parquetColumn) convert(v table.Value) (interface{}, bool) {
	if v.IsNone() {
		return nil, false
	}
	switch c.kind {
	case reflect.Bool:
		return v.AsBool()
	case reflect.Int64:
		return v.AsInt()
	case reflect.Float64:
		return v.AsFloat()
	}
	return v.Text(), true
}

func (p *ParquetFormatter) Format(tbl *table.Table) errorsx.Error {
	if tbl.NumFields() == 0 {
		return errorsx.Errorf("cannot write a parquet file without fields")
	}

	columns := planColumns(tbl)
	structFields := make([]reflect.StructField, len(columns))
	for i, c := range columns {
		structFields[i] = reflect.StructField{
			Name: fmt.Sprintf("Field%d", i),
			Type: reflect.PointerTo(c.elemType()),
			Tag:  reflect.StructTag(fmt.Sprintf(`parquet:%q`, c.name)),
		}
	}
	rowType := reflect.StructOf(structFields)

	writer := parquet.NewWriter(p.writer, parquet.SchemaOf(reflect.New(rowType).Interface()))
	for rowIdx, row := range tbl.Rows() {
		record := reflect.New(rowType)
		for i, c := range columns {
			v, ok := c.convert(row[i])
			if !ok {
				continue
			}
			ptr := reflect.New(c.elemType())
			ptr.Elem().Set(reflect.ValueOf(v))
			record.Elem().Field(i).Set(ptr)
		}
		if err := writer.Write(record.Interface()); err != nil {
			return errorsx.Wrap(err, "row", rowIdx)
		}
	}
	if err := writer.Close(); err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func planColumns(tbl *table.Table) []parquetColumn {
	seen := make(map[string]int)
	columns := make([]parquetColumn, tbl.NumFields())
	for i, field := range tbl.Fields() {
		name := unsafeNameChars.ReplaceAllString(field, "_")
		if name == "" {
			name = "_"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		columns[i] = parquetColumn{name: name, kind: columnKind(tbl.Column(i))}
	}
	return columns
}

func columnKind(vals []table.Value) reflect.Kind {
	var hasBool, hasInt, hasFloat, hasOther bool
	for _, v := range vals {
		switch v.Kind() {
		case table.KindNone:
		case table.KindBool:
			hasBool = true
		case table.KindInt:
			hasInt = true
		case table.KindFloat:
			hasFloat = true
		default:
			hasOther = true
		}
	}
	switch {
	case hasOther, hasBool && (hasInt || hasFloat):
		return reflect.String
	case hasFloat:
		return reflect.Float64
	case hasInt:
		return reflect.Int64
	case hasBool:
		return reflect.Bool
	}
	return reflect.String
}
