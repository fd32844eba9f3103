package query

import (
	"math/rand"

	"github.com/vegasq/sqlhub/table"
)

// Direction is the sort direction of one ORDER BY key.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// compareKeys compares the trailing len(directions) values of two rows,
// key by key, each multiplied by its direction.
func compareKeys(a, b table.Row, directions []Direction) int {
	offA, offB := len(a)-len(directions), len(b)-len(directions)
	for k, dir := range directions {
		if c := table.Order(a[offA+k], b[offB+k]) * int(dir); c != 0 {
			return c
		}
	}
	return 0
}

type sortable interface {
	compare(i, j int) int
	swap(i, j int)
}

// quicksort is a randomized quicksort. It recurses into the smaller
// partition and loops over the larger one. Not stable.
func quicksort(s sortable, low, high int) {
	for low < high {
		p := partition(s, low, high)
		if p-low < high-p {
			quicksort(s, low, p-1)
			low = p + 1
		} else {
			quicksort(s, p+1, high)
			high = p - 1
		}
	}
}

// partition is a Lomuto partition around a random pivot.
func partition(s sortable, low, high int) int {
	pivot := low + rand.Intn(high-low+1)
	s.swap(pivot, high)
	i := low
	for j := low; j < high; j++ {
		if s.compare(j, high) <= 0 {
			s.swap(i, j)
			i++
		}
	}
	s.swap(i, high)
	return i
}

// Ordering sorts the rows of a table by its trailing key columns.
type Ordering struct {
	tbl        *table.Table
	directions []Direction
}

// NewOrdering creates an Ordering over the last len(directions) columns of tbl.
func NewOrdering(tbl *table.Table, directions []Direction) *Ordering {
	return &Ordering{tbl: tbl, directions: directions}
}

// rowSorter sorts a permutation of row indexes, leaving the rows in place.
type rowSorter struct {
	rows       []table.Row
	order      []int
	directions []Direction
}

func (s *rowSorter) compare(i, j int) int {
	return compareKeys(s.rows[s.order[i]], s.rows[s.order[j]], s.directions)
}

func (s *rowSorter) swap(i, j int) {
	s.order[i], s.order[j] = s.order[j], s.order[i]
}

// Sort returns a sorted copy of the table. Unless keepOrderFields is set,
// the key columns are stripped from the result.
func (o *Ordering) Sort(keepOrderFields bool) *table.Table {
	rows := o.tbl.Rows()
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sorter := &rowSorter{rows: rows, order: order, directions: o.directions}
	quicksort(sorter, 0, len(order)-1)

	out := o.tbl.Reorder(order)
	if keepOrderFields {
		return out
	}
	return out.SliceCol(0, out.NumFields()-len(o.directions))
}

// TableOrdering sorts whole tables, one per group, by the trailing key
// columns of each table's first row.
type TableOrdering struct {
	tables     []*table.Table
	directions []Direction
}

// NewTableOrdering creates a TableOrdering over tables.
func NewTableOrdering(tables []*table.Table, directions []Direction) *TableOrdering {
	return &TableOrdering{tables: tables, directions: directions}
}

type tableSorter struct {
	tables     []*table.Table
	directions []Direction
}

func (s *tableSorter) compare(i, j int) int {
	a, errA := s.tables[i].Row(0)
	b, errB := s.tables[j].Row(0)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return compareKeys(a, b, s.directions)
}

func (s *tableSorter) swap(i, j int) {
	s.tables[i], s.tables[j] = s.tables[j], s.tables[i]
}

// Sort returns the tables in sorted order. Unless keepOrderFields is set,
// each table loses its key columns.
func (o *TableOrdering) Sort(keepOrderFields bool) []*table.Table {
	sorter := &tableSorter{tables: append([]*table.Table{}, o.tables...), directions: o.directions}
	quicksort(sorter, 0, len(sorter.tables)-1)
	if keepOrderFields {
		return sorter.tables
	}

	out := make([]*table.Table, len(sorter.tables))
	for i, tbl := range sorter.tables {
		out[i] = tbl.SliceCol(0, tbl.NumFields()-len(o.directions))
	}
	return out
}
