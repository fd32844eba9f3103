package query

import (
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ClockFunc returns the current date, time or timestamp formatted with layout
type ClockFunc struct {
	name   string
	layout string
	clock  func() time.Time
}

func (f *ClockFunc) Name() string  { return f.name }
func (f *ClockFunc) MinArity() int { return 0 }
func (f *ClockFunc) MaxArity() int { return 0 }
func (f *ClockFunc) Evaluate(args []table.Value) (table.Value, errorsx.Error) {
	return table.String(f.clock().Format(f.layout)), nil
}
