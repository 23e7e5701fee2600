package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Period is a request for a date range. It is one of Relative, SingleDay or
// Range and is resolved against "today" before reaching the query engine.
type Period interface {
	Resolve(today civil.Date) (DateRange, error)
	String() string
	isPeriod()
}

// Relative is a keyword meaning "N back from today through today".
type Relative string

const (
	LastDay   Relative = "1d"
	LastWeek  Relative = "1w"
	LastMonth Relative = "1m"
	LastYear  Relative = "1y"
)

// Resolve subtracts the keyword's span from today. Month and year arithmetic
// normalizes like time.AddDate: 31 March minus one month is 3 March in a
// non-leap year.
func (r Relative) Resolve(today civil.Date) (DateRange, error) {
	t := today.In(time.UTC)
	var start time.Time
	switch r {
	case LastDay:
		start = t.AddDate(0, 0, -1)
	case LastWeek:
		start = t.AddDate(0, 0, -7)
	case LastMonth:
		start = t.AddDate(0, -1, 0)
	case LastYear:
		start = t.AddDate(-1, 0, 0)
	default:
		return DateRange{}, fmt.Errorf("%w: unknown keyword %q (want 1d, 1w, 1m or 1y)", ErrInvalidPeriod, string(r))
	}
	return DateRange{Start: civil.DateOf(start), End: today}, nil
}

func (r Relative) String() string { return string(r) }
func (Relative) isPeriod()        {}

// SingleDay selects one calendar day.
type SingleDay struct {
	Date civil.Date
}

func (d SingleDay) Resolve(civil.Date) (DateRange, error) {
	if !d.Date.IsValid() {
		return DateRange{}, fmt.Errorf("%w: invalid date %s", ErrInvalidPeriod, d.Date)
	}
	return DateRange{Start: d.Date, End: d.Date}, nil
}

func (d SingleDay) String() string { return d.Date.String() }
func (SingleDay) isPeriod()        {}

// Range is an explicit inclusive range. It is used verbatim: a Start after
// End is not reordered and matches no rows.
type Range struct {
	Start civil.Date
	End   civil.Date
}

func (r Range) Resolve(civil.Date) (DateRange, error) {
	if !r.Start.IsValid() || !r.End.IsValid() {
		return DateRange{}, fmt.Errorf("%w: invalid range %s..%s", ErrInvalidPeriod, r.Start, r.End)
	}
	return DateRange{Start: r.Start, End: r.End}, nil
}

func (r Range) String() string { return r.Start.String() + ".." + r.End.String() }
func (Range) isPeriod()        {}

// dateLayouts are the accepted spellings of a calendar date.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02 01 2006",
}

// ParseDate parses a calendar date in any of the accepted layouts.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("%w: cannot parse date %q (use YYYY-MM-DD or DD/MM/YYYY)", ErrInvalidPeriod, s)
}

// ParsePeriod turns a command-line period argument into a Period. It accepts
// a relative keyword, a single date, or START..END.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	switch Relative(s) {
	case LastDay, LastWeek, LastMonth, LastYear:
		return Relative(s), nil
	}

	if start, end, ok := strings.Cut(s, ".."); ok {
		from, err := ParseDate(start)
		if err != nil {
			return nil, err
		}
		to, err := ParseDate(end)
		if err != nil {
			return nil, err
		}
		return Range{Start: from, End: to}, nil
	}

	if d, err := ParseDate(s); err == nil {
		return SingleDay{Date: d}, nil
	}
	return nil, fmt.Errorf("%w: %q is neither a keyword (1d, 1w, 1m, 1y) nor a date", ErrInvalidPeriod, s)
}
