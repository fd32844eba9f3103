package fetcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/table"
)

// states a label may filter on
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// Label is a parsed fetch label, org[.collection[.modifier...]].
type Label struct {
	Org        string
	Collection string
	// State is empty when the label does not name one
	State string
	// Days is the window in days, 0 for no window
	Days int
}

// ParseLabel parses a label. Modifiers may come in any order, but each at most once.
func ParseLabel(label string) (Label, errorsx.Error) {
	parts := strings.Split(strings.TrimSpace(label), ".")
	for _, part := range parts {
		if part == "" {
			return Label{}, errorsx.Errorf("%w: malformed label %q", ErrNotFound, label)
		}
	}

	l := Label{Org: parts[0]}
	if len(parts) > 1 {
		l.Collection = strings.ToLower(parts[1])
	}
	for _, modifier := range parts[min(2, len(parts)):] {
		modifier = strings.ToLower(modifier)
		switch modifier {
		case StateOpen, StateClosed, StateAll:
			if l.State != "" {
				return Label{}, errorsx.Errorf("%w: label %q names more than one state", ErrNotFound, label)
			}
			l.State = modifier
			continue
		}

		days, err := strconv.Atoi(modifier)
		if err != nil || days <= 0 {
			return Label{}, errorsx.Errorf("%w: unknown modifier %q in label %q", ErrNotFound, modifier, label)
		}
		if l.Days != 0 {
			return Label{}, errorsx.Errorf("%w: label %q names more than one day window", ErrNotFound, label)
		}
		l.Days = days
	}
	return l, nil
}

func (l Label) String() string {
	parts := []string{l.Org}
	if l.Collection != "" {
		parts = append(parts, l.Collection)
	}
	if l.State != "" {
		parts = append(parts, l.State)
	}
	if l.Days != 0 {
		parts = append(parts, strconv.Itoa(l.Days))
	}
	return strings.Join(parts, ".")
}

// Since is the start of the label's day window, or the zero time when it has none.
func (l Label) Since(now time.Time) time.Time {
	if l.Days == 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -l.Days)
}

// ApplyModifiers filters rows of tbl by the label's state and day window.
// Backends that cannot filter at the source use it after fetching. The
// state is matched against a "state" field and the window against
// "updated_at"; a modifier whose field is missing is ignored.
func ApplyModifiers(tbl *table.Table, l Label, now time.Time) *table.Table {
	stateIdx, hasState := tbl.FieldIndex("state")
	updatedIdx, hasUpdated := tbl.FieldIndex("updated_at")
	filterState := hasState && l.State != "" && l.State != StateAll
	filterDays := hasUpdated && l.Days != 0
	if !filterState && !filterDays {
		return tbl
	}

	since := l.Since(now)
	out := table.New(tbl.Fields()...)
	for _, row := range tbl.Rows() {
		if filterState {
			state, _ := row[stateIdx].AsString()
			if !strings.EqualFold(state, l.State) {
				continue
			}
		}
		if filterDays && !updatedSince(row[updatedIdx], since) {
			continue
		}
		// rows come from tbl so the schema always matches
		_ = out.Append(row)
	}
	return out
}

func updatedSince(v table.Value, since time.Time) bool {
	text, ok := v.AsString()
	if !ok {
		return false
	}
	updated, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return false
	}
	return !updated.Before(since)
}
