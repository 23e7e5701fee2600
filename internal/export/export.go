// Package export serializes raw usage rows to CSV and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"pstalker/internal/tracker"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or json)", s)
	}
}

var csvHeader = []string{"App Name", "Total Seconds", "Excluded"}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []tracker.UsageRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.AppName,
			strconv.FormatInt(r.TotalSeconds, 10),
			strconv.FormatBool(r.Excluded),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", r.AppName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRow struct {
	AppName      string `json:"app_name"`
	TotalSeconds int64  `json:"total_seconds"`
	Excluded     bool   `json:"excluded"`
}

// WriteJSON writes rows as an indented JSON array. No rows encode as [].
func WriteJSON(w io.Writer, rows []tracker.UsageRow) error {
	out := make([]jsonRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, jsonRow{AppName: r.AppName, TotalSeconds: r.TotalSeconds, Excluded: r.Excluded})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, format Format, rows []tracker.UsageRow) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// Exporter writes export files into a directory.
type Exporter struct {
	fs    afero.Fs
	dir   string
	clock tracker.Clock
}

func NewExporter(fs afero.Fs, dir string, clock tracker.Clock) *Exporter {
	if clock == nil {
		clock = tracker.RealClock{}
	}
	return &Exporter{fs: fs, dir: dir, clock: clock}
}

// WriteFile writes rows to <dir>/usage_<label>_<timestamp>.<format> and
// returns the path. label is usually the period's string form.
func (e *Exporter) WriteFile(format Format, label string, rows []tracker.UsageRow) (string, error) {
	if err := e.fs.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	name := fmt.Sprintf("usage_%s_%s.%s", sanitizeLabel(label), e.clock.Now().Format("2006-01-02_15-04-05"), format)
	path := filepath.Join(e.dir, name)

	f, err := e.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, format, rows); err != nil {
		f.Close()
		e.fs.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// sanitizeLabel keeps file names portable: "2024-01-01..2024-01-31" becomes
// "2024-01-01_to_2024-01-31".
func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, "..", "_to_")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}
