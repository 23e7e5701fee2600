package main

import (
	"fmt"
	"strconv"

	"pstalker/internal/tracker"

	"github.com/spf13/cobra"
)

// parseIDs converts application id arguments.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid application id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// periodFromCmd reads the period from a positional argument or the
// --from/--to flags.
func periodFromCmd(cmd *cobra.Command, args []string) (tracker.Period, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return parsePeriodArgs(args, from, to)
}

func parsePeriodArgs(args []string, from, to string) (tracker.Period, error) {
	if from == "" && to == "" {
		if len(args) == 0 {
			return tracker.LastDay, nil
		}
		return tracker.ParsePeriod(args[0])
	}

	if len(args) > 0 {
		return nil, fmt.Errorf("%w: give either PERIOD or --from/--to, not both", tracker.ErrInvalidPeriod)
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: --from and --to must be used together", tracker.ErrInvalidPeriod)
	}

	start, err := tracker.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := tracker.ParseDate(to)
	if err != nil {
		return nil, err
	}
	return tracker.Range{Start: start, End: end}, nil
}

func describeRange(dr tracker.DateRange) string {
	if dr.Start == dr.End {
		return dr.Start.String()
	}
	return dr.Start.String() + " to " + dr.End.String()
}
