package tracker

import "github.com/golang-sql/civil"

// Application is a tracked executable or window identity. Applications are
// created lazily the first time their name is observed and are never deleted.
type Application struct {
	ID       int64
	Name     string // normalized, unique
	Excluded bool
}

// UsageRecord is the accrual bucket for one application on one calendar day.
type UsageRecord struct {
	ID        int64
	AppID     int64
	Duration  int64 // seconds
	UsageDate civil.Date
}

// DateRange is an inclusive range of calendar dates. A range whose Start is
// after its End is valid and simply matches nothing.
type DateRange struct {
	Start civil.Date
	End   civil.Date
}

// UsageRow is one aggregated line of a usage report in raw form.
type UsageRow struct {
	AppName      string
	Excluded     bool
	TotalSeconds int64
}

// DisplayRow is the on-screen shape of a UsageRow.
type DisplayRow struct {
	Name     string
	Excluded string // "Yes" or "No"
	Usage    string // "{H}h {M}m {S}s"
}

// DailyTotal is the summed usage of all applications on one day.
type DailyTotal struct {
	Date         civil.Date
	TotalSeconds int64
}

// AppFilter selects applications by exclusion status.
type AppFilter int

const (
	FilterAll AppFilter = iota
	FilterExcluded
	FilterIncluded
)

func (f AppFilter) String() string {
	switch f {
	case FilterExcluded:
		return "excluded"
	case FilterIncluded:
		return "included"
	default:
		return "all"
	}
}

// Display converts a raw row into its on-screen form.
func (r UsageRow) Display() DisplayRow {
	excluded := "No"
	if r.Excluded {
		excluded = "Yes"
	}
	return DisplayRow{
		Name:     r.AppName,
		Excluded: excluded,
		Usage:    FormatDuration(r.TotalSeconds),
	}
}
