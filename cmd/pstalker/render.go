package main

import (
	"fmt"
	"io"

	"pstalker/internal/app"
	"pstalker/internal/backup"
	"pstalker/internal/config"
	"pstalker/internal/tracker"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	return tw
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func renderUsage(w io.Writer, rows []tracker.DisplayRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No usage recorded.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Application", "Excluded", "Usage"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.Name, r.Excluded, r.Usage})
	}
	tw.Render()
}

func renderUsageRaw(w io.Writer, rows []tracker.UsageRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No usage recorded.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"App Name", "Total Seconds", "Excluded"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.AppName, r.TotalSeconds, r.Excluded})
	}
	tw.Render()
}

func renderDailyTotals(w io.Writer, totals []tracker.DailyTotal) {
	if len(totals) == 0 {
		fmt.Fprintln(w, "No usage recorded.")
		return
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Date", "Usage"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	var sum int64
	for _, t := range totals {
		tw.AppendRow(table.Row{t.Date.String(), tracker.FormatDuration(t.TotalSeconds)})
		sum += t.TotalSeconds
	}
	tw.AppendFooter(table.Row{"Total", tracker.FormatDuration(sum)})
	tw.Render()
}

func renderApplications(w io.Writer, apps []*tracker.Application) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Application", "Excluded"})
	for _, a := range apps {
		tw.AppendRow(table.Row{a.ID, a.Name, yesNo(a.Excluded)})
	}
	tw.Render()
}

func renderBackups(w io.Writer, backups []backup.Info) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Name", "Size", "Created"})
	for _, b := range backups {
		tw.AppendRow(table.Row{b.Name, humanize.Bytes(uint64(b.Size)), humanize.Time(b.ModTime)})
	}
	tw.Render()
}

func renderStatus(w io.Writer, st *app.Status) {
	tw := newTable(w)
	tracking := "disabled"
	if st.TrackingEnabled {
		tracking = "enabled"
	}
	tw.AppendRow(table.Row{"Tracking", tracking})
	tw.AppendRow(table.Row{"Store", st.StorePath})
	tw.AppendRow(table.Row{"Applications", fmt.Sprintf("%d (%d excluded)", st.Applications, st.Excluded)})
	tw.AppendRow(table.Row{"Today", tracker.FormatDuration(st.TodaySeconds)})
	if st.LatestBackup != nil {
		tw.AppendRow(table.Row{"Last backup", fmt.Sprintf("%s (%s)", st.LatestBackup.Name, humanize.Time(st.LatestBackup.ModTime))})
	} else {
		tw.AppendRow(table.Row{"Last backup", "never"})
	}
	tw.Render()
}

func renderConfig(w io.Writer, cfg *config.Config) {
	vault := cfg.Vault.Type
	if vault == "" {
		vault = "none"
	}
	enc := cfg.Encryption.Type
	if enc == "" {
		enc = "none"
	}
	schedule := cfg.Backup.Schedule
	if schedule == "" {
		schedule = "off"
	}

	fmt.Fprintf(w, "Host ID:        %s\n", cfg.HostID)
	fmt.Fprintf(w, "Base Dir:       %s\n", cfg.BaseDir)
	fmt.Fprintf(w, "Log Dir:        %s\n", cfg.LogDir)
	fmt.Fprintf(w, "Database:       %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "Interval:       %s\n", cfg.Tracking.Interval.Std())
	fmt.Fprintf(w, "Idle Threshold: %s\n", cfg.Tracking.IdleThreshold.Std())
	fmt.Fprintf(w, "Backup Dir:     %s\n", cfg.Backup.Dir)
	fmt.Fprintf(w, "Backup Sched.:  %s\n", schedule)
	fmt.Fprintf(w, "Retention:      %d\n", cfg.Backup.Retention)
	fmt.Fprintf(w, "Export Dir:     %s\n", cfg.Export.Dir)
	fmt.Fprintf(w, "Vault:          %s\n", vault)
	fmt.Fprintf(w, "Encryption:     %s\n", enc)
}
