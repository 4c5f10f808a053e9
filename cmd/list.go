package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var (
	listToday   bool
	listWeek    bool
	listAll     bool
	listSubject string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show today's records (default)")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show this week's records")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Show every record")
	listCmd.Flags().StringVar(&listSubject, "subject", "", "Only records of this worker (id or name)")
}

func runList(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	now := l.Now()
	workers := l.Workers()

	records := l.Records()
	if listSubject != "" {
		w, err := resolveSubject(workers, listSubject)
		if err != nil {
			exitWith(err, done)
		}
		if records, err = l.RecordsFor(w.ID); err != nil {
			exitWith(err, done)
		}
	}

	var dates []string
	switch {
	case listAll:
	case listWeek:
		dates = timecalc.WeekDates(now)
	default:
		// Default to today (covers --today and the bare command).
		dates = []string{timecalc.DateKey(now)}
	}

	printList(os.Stdout, filterByDate(records, dates), workerNames(workers), l.Location(), now)
	return nil
}

// filterByDate keeps records dated on one of dates; nil dates keeps all.
func filterByDate(records []model.Record, dates []string) []model.Record {
	if dates == nil {
		return records
	}
	keep := make(map[string]bool, len(dates))
	for _, d := range dates {
		keep[d] = true
	}
	var out []model.Record
	for _, r := range records {
		if keep[r.Date] {
			out = append(out, r)
		}
	}
	return out
}

// printList groups records by date and prints them.
func printList(w io.Writer, records []model.Record, names map[model.SubjectID]string, loc *time.Location, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}

	var currentDay string
	for _, r := range records {
		if r.Date != currentDay {
			fmt.Fprintln(w, r.Date)
			currentDay = r.Date
		}

		startStr := r.ClockIn.In(loc).Format("15:04")
		endStr := "ongoing"
		if r.ClockOut != nil {
			out := r.ClockOut.In(loc)
			endStr = out.Format("15:04")
			if !timecalc.SameDay(r.ClockIn.In(loc), out) {
				endStr = out.Format("01-02 15:04")
			}
		}
		durStr := timecalc.FormatDuration(int64(r.Duration(now) / time.Second))

		name := names[r.SubjectID]
		if name == "" {
			name = model.Placeholder(r.SubjectID)
		}
		fmt.Fprintf(w, "%s–%s  %s (%s)\n", startStr, endStr, name, durStr)
	}
}
