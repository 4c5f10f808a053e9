package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var (
	exportFormat  string
	exportOut     string
	exportSubject string
	exportWeek    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records",
	Long: `Export attendance records in insertion order to stdout or --out.
xlsx always needs --out.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md, yaml, xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Write to this file instead of stdout")
	exportCmd.Flags().StringVar(&exportSubject, "subject", "", "Only records of this worker (id or name)")
	exportCmd.Flags().BoolVar(&exportWeek, "week", false, "Only this week's records")
}

// exportRow is the flattened form of a record used by every export format.
type exportRow struct {
	ID       string `json:"id" yaml:"id"`
	Subject  string `json:"subject_id" yaml:"subject_id"`
	Name     string `json:"name" yaml:"name"`
	Date     string `json:"date" yaml:"date"`
	ClockIn  string `json:"clock_in" yaml:"clock_in"`
	ClockOut string `json:"clock_out" yaml:"clock_out"`
	Minutes  int64  `json:"duration_minutes" yaml:"duration_minutes"`
	Hours    string `json:"hours" yaml:"hours"`
	Open     bool   `json:"open" yaml:"open"`
}

var exportHeader = []string{"id", "subject_id", "name", "date", "clock_in", "clock_out", "duration_minutes", "hours", "open"}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if format == "xlsx" && exportOut == "" {
		fmt.Fprintln(os.Stderr, "xlsx export needs --out <file.xlsx>")
		os.Exit(1)
	}

	l, _, done := mustOpenLedger()
	defer done()

	workers := l.Workers()
	records := l.Records()
	if exportSubject != "" {
		w, err := resolveSubject(workers, exportSubject)
		if err != nil {
			exitWith(err, done)
		}
		if records, err = l.RecordsFor(w.ID); err != nil {
			exitWith(err, done)
		}
	}
	if exportWeek {
		records = filterByDate(records, timecalc.WeekDates(l.Now()))
	}

	rows := buildExportRows(records, workerNames(workers), l.Location(), l.Now())

	out := io.Writer(os.Stdout)
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			exitWith(fmt.Errorf("creating %s: %w", exportOut, err), done)
		}
		defer f.Close()
		out = f
	}

	if err := writeExport(out, rows, format); err != nil {
		exitWith(err, done)
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", len(rows), exportOut)
	}
	return nil
}

func buildExportRows(records []model.Record, names map[model.SubjectID]string, loc *time.Location, now time.Time) []exportRow {
	rows := make([]exportRow, 0, len(records))
	for _, r := range records {
		d := r.Duration(now)
		row := exportRow{
			ID:      r.ID,
			Subject: string(r.SubjectID),
			Name:    names[r.SubjectID],
			Date:    r.Date,
			ClockIn: r.ClockIn.In(loc).Format(time.RFC3339),
			Minutes: int64(d / time.Minute),
			Hours:   timecalc.FormatHours(d),
			Open:    r.Open(),
		}
		if row.Name == "" {
			row.Name = model.Placeholder(r.SubjectID)
		}
		if r.ClockOut != nil {
			row.ClockOut = r.ClockOut.In(loc).Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

func (r exportRow) fields() []string {
	return []string{r.ID, r.Subject, r.Name, r.Date, r.ClockIn, r.ClockOut,
		fmt.Sprint(r.Minutes), r.Hours, fmt.Sprint(r.Open)}
}

func writeExport(w io.Writer, rows []exportRow, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("error encoding YAML: %w", err)
		}
		return enc.Close()
	case "md":
		writeMarkdown(w, rows)
		return nil
	case "xlsx":
		return writeXLSX(w, rows)
	case "csv", "":
		writeCSV(w, rows)
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q (want csv, json, md, yaml or xlsx)", errBadInput, format)
	}
}

func writeCSV(w io.Writer, rows []exportRow) {
	fmt.Fprintln(w, strings.Join(exportHeader, ","))
	for _, r := range rows {
		fields := r.fields()
		for i, f := range fields {
			fields[i] = csvEscape(f)
		}
		fmt.Fprintln(w, strings.Join(fields, ","))
	}
}

func writeMarkdown(w io.Writer, rows []exportRow) {
	fmt.Fprintln(w, "| Date | Worker | Clock in | Clock out | Hours |")
	fmt.Fprintln(w, "|------|--------|----------|-----------|------:|")
	for _, r := range rows {
		out := r.ClockOut
		if r.Open {
			out = "ongoing"
		}
		name := strings.ReplaceAll(r.Name, "|", `\|`)
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", r.Date, name, r.ClockIn, out, r.Hours)
	}
}

const exportSheet = "Records"

func writeXLSX(w io.Writer, rows []exportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("preparing sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.ID, r.Subject, r.Name, r.Date, r.ClockIn, r.ClockOut, r.Minutes, r.Hours, r.Open}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "I", 20); err != nil {
		return err
	}
	return f.Write(w)
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
