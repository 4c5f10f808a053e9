package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var (
	reportDate   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show weekly hours for every worker",
	Long: `Show closed-session hours per worker for the Monday–Sunday week containing
--date (default today). Sessions that are still open are listed but not counted.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Any date in the week (YYYY-MM-DD), default today")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

type reportLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Seconds  int64  `json:"seconds"`
	Hours    string `json:"hours"`
	Sessions int    `json:"sessions"`
	Open     int    `json:"open_sessions"`
}

type weekReport struct {
	Week         string       `json:"week"`
	WeekStart    string       `json:"week_start"`
	WeekEnd      string       `json:"week_end"`
	Workers      []reportLine `json:"workers"`
	TotalSeconds int64        `json:"total_seconds"`
	TotalHours   string       `json:"total_hours"`
}

func runReport(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	anchor := l.Now()
	if reportDate != "" {
		var err error
		anchor, err = timecalc.ParseDate(reportDate, l.Location())
		if err != nil {
			exitWith(fmt.Errorf("%w: %w", errBadInput, err), done)
		}
	}

	rep, err := buildReport(l, anchor)
	if err != nil {
		exitWith(err, done)
	}
	if err := writeReport(os.Stdout, rep, reportFormat); err != nil {
		exitWith(err, done)
	}
	return nil
}

func buildReport(l *ledger.Ledger, anchor time.Time) (weekReport, error) {
	monday, sunday := timecalc.WeekRange(anchor)
	rep := weekReport{
		Week:      timecalc.ISOWeekLabel(anchor),
		WeekStart: timecalc.DateKey(monday),
		WeekEnd:   timecalc.DateKey(sunday),
		Workers:   []reportLine{},
	}

	var grandTotal time.Duration
	for _, w := range l.Workers() {
		total, err := l.WeeklyHours(w.ID, anchor)
		if err != nil {
			return weekReport{}, err
		}
		grandTotal += total.Duration
		rep.Workers = append(rep.Workers, reportLine{
			ID:       string(w.ID),
			Name:     w.Name,
			Seconds:  int64(total.Duration / time.Second),
			Hours:    timecalc.FormatHours(total.Duration),
			Sessions: total.Sessions,
			Open:     total.Open,
		})
	}
	rep.TotalSeconds = int64(grandTotal / time.Second)
	rep.TotalHours = timecalc.FormatHours(grandTotal)
	return rep, nil
}

func writeReport(w io.Writer, rep weekReport, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "worker_id,name,hours,sessions,open_sessions")
		for _, line := range rep.Workers {
			fmt.Fprintf(w, "%s,%s,%s,%d,%d\n", csvEscape(line.ID), csvEscape(line.Name), line.Hours, line.Sessions, line.Open)
		}
	case "json":
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "md", "":
		fmt.Fprintf(w, "Week %s (%s … %s)\n", rep.Week, rep.WeekStart, rep.WeekEnd)
		fmt.Fprintln(w, "--------------------------------")
		for _, line := range rep.Workers {
			hours := "-"
			if line.Sessions > 0 {
				hours = line.Hours + " h"
			}
			if line.Open > 0 {
				hours += " (clocked in)"
			}
			fmt.Fprintf(w, "%-20s%s\n", line.Name, hours)
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s h\n", "Total", rep.TotalHours)
	default:
		return fmt.Errorf("%w: unknown format %q (want md, csv or json)", errBadInput, format)
	}
	return nil
}
