package query

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// GenerateGroups partitions tbl by its trailing numKeys columns. Each group
// holds the remaining columns of every row sharing a key. Groups come back
// in the order their keys were first seen.
func GenerateGroups(tbl *table.Table, numKeys int) ([]*table.Table, errorsx.Error) {
	if numKeys < 0 || numKeys > tbl.NumFields() {
		return nil, errorsx.Wrap(table.ErrIndex, "numKeys", numKeys, "fieldCount", tbl.NumFields())
	}
	split := tbl.NumFields() - numKeys
	fields := tbl.Fields()[:split]

	var groups []*table.Table
	index := make(map[string]*table.Table)
	for _, row := range tbl.Rows() {
		key := table.List(row[split:]...).Key()
		group, ok := index[key]
		if !ok {
			group = table.New(fields...)
			index[key] = group
			groups = append(groups, group)
		}
		if err := group.Append(row[:split]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}
