package main

import (
	"fmt"

	"pstalker/internal/app"
	"pstalker/internal/export"
	"pstalker/internal/tracker"

	"github.com/spf13/cobra"
)

// report command
var reportCmd = &cobra.Command{
	Use:   "report [PERIOD]",
	Short: "Show usage per application",
	Long: `Show usage per application for a period.

PERIOD is one of 1d, 1w, 1m, 1y (relative to today), a single date
(YYYY-MM-DD or DD/MM/YYYY) or START..END. The default is 1d.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		daily, _ := cmd.Flags().GetBool("daily")

		period, err := periodFromCmd(cmd, args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Report", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		dr, err := a.ResolvePeriod(period)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Usage for %s\n", describeRange(dr))

		if daily {
			totals, err := a.DailyTotals(cmd.Context(), period)
			if err != nil {
				return err
			}
			renderDailyTotals(out, totals)
			return nil
		}

		if raw {
			rows, err := a.Report(cmd.Context(), period)
			if err != nil {
				return err
			}
			renderUsageRaw(out, rows)
			return nil
		}

		rows, err := a.ReportDisplay(cmd.Context(), period)
		if err != nil {
			return err
		}
		renderUsage(out, rows)
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:       "export FORMAT [PERIOD]",
	Short:     "Write usage to a CSV or JSON file",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{string(export.FormatCSV), string(export.FormatJSON)},
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(args[0])
		if err != nil {
			return err
		}
		period, err := periodFromCmd(cmd, args[1:])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Export", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.Export(cmd.Context(), format, period)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
		return nil
	},
}

// apps command
var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage tracked applications",
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		excluded, _ := cmd.Flags().GetBool("excluded")
		included, _ := cmd.Flags().GetBool("included")
		used, _ := cmd.Flags().GetBool("used")

		a, err := newApp(cmd, "ListApplications", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var apps []*tracker.Application
		switch {
		case used:
			apps, err = a.ListUsedApplications(cmd.Context())
		case excluded:
			apps, err = a.ListApplications(cmd.Context(), tracker.FilterExcluded)
		case included:
			apps, err = a.ListApplications(cmd.Context(), tracker.FilterIncluded)
		default:
			apps, err = a.ListApplications(cmd.Context(), tracker.FilterAll)
		}
		if err != nil {
			return err
		}

		if len(apps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No applications found.")
			return nil
		}
		renderApplications(cmd.OutOrStdout(), apps)
		return nil
	},
}

func setExclusionCmd(use, short string, excluded bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, "SetExclusion", app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.SetExclusion(cmd.Context(), ids, excluded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d application(s)\n", len(ids))
			return nil
		},
	}
}

var (
	appsExcludeCmd = setExclusionCmd("exclude", "Hide applications from reports and stop recording them", true)
	appsIncludeCmd = setExclusionCmd("include", "Record and report applications again", false)
)

var appsPurgeCmd = &cobra.Command{
	Use:   "purge ID...",
	Short: "Delete all recorded usage of applications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		if !yes {
			ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
				fmt.Sprintf("Delete all usage history of %d application(s)?", len(ids)))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		a, err := newApp(cmd, "DeleteUsageHistory", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.PurgeHistory(cmd.Context(), ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d usage record(s)\n", n)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, exportCmd} {
		c.Flags().String("from", "", "First day of the period (YYYY-MM-DD)")
		c.Flags().String("to", "", "Last day of the period (YYYY-MM-DD)")
	}
	reportCmd.Flags().Bool("raw", false, "Print total seconds instead of formatted durations")
	reportCmd.Flags().Bool("daily", false, "Print per-day totals")
	reportCmd.MarkFlagsMutuallyExclusive("raw", "daily")

	appsListCmd.Flags().Bool("excluded", false, "Only excluded applications")
	appsListCmd.Flags().Bool("included", false, "Only included applications")
	appsListCmd.Flags().Bool("used", false, "Only applications with recorded usage")
	appsListCmd.MarkFlagsMutuallyExclusive("excluded", "included", "used")
	appsPurgeCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	appsCmd.AddCommand(appsListCmd)
	appsCmd.AddCommand(appsExcludeCmd)
	appsCmd.AddCommand(appsIncludeCmd)
	appsCmd.AddCommand(appsPurgeCmd)

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(appsCmd)
}
