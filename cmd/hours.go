package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var (
	hoursDate string
	hoursWeek bool
)

var hoursCmd = &cobra.Command{
	Use:   "hours <worker>",
	Short: "Show a worker's hours for a day or a week",
	Long: `Show a worker's hours for a day (default today) or, with --week, for the
Monday–Sunday week containing the date. Open sessions count up to now in the
daily figure and are left out of the weekly one.`,
	Args: cobra.ExactArgs(1),
	RunE: runHours,
}

func init() {
	hoursCmd.Flags().StringVar(&hoursDate, "date", "", "Date (YYYY-MM-DD), default today")
	hoursCmd.Flags().BoolVar(&hoursWeek, "week", false, "Show the week containing the date")
}

func runHours(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	w, err := resolveSubject(l.Workers(), args[0])
	if err != nil {
		exitWith(err, done)
	}
	day := l.Now()
	if hoursDate != "" {
		day, err = timecalc.ParseDate(hoursDate, l.Location())
		if err != nil {
			exitWith(fmt.Errorf("%w: %w", errBadInput, err), done)
		}
	}

	if hoursWeek {
		total, err := l.WeeklyHours(w.ID, day)
		if err != nil {
			exitWith(err, done)
		}
		monday, sunday := timecalc.WeekRange(day)
		fmt.Printf("%s  %s … %s  %s\n", w.Name, timecalc.DateKey(monday), timecalc.DateKey(sunday), describeTotal(total))
		if total.Open > 0 {
			fmt.Fprintln(os.Stderr, "Note: the open session is not included until the worker clocks out.")
		}
		return nil
	}

	total, err := l.HoursForDay(w.ID, day)
	if err != nil {
		exitWith(err, done)
	}
	fmt.Printf("%s  %s  %s\n", w.Name, timecalc.DateKey(day), describeTotal(total))
	return nil
}

// describeTotal renders a total, keeping "no records" apart from zero hours.
func describeTotal(t ledger.Total) string {
	if !t.HasData() {
		if t.Open > 0 {
			return "0.00 h (session still open)"
		}
		return "no records"
	}
	sessions := "sessions"
	if t.Sessions == 1 {
		sessions = "session"
	}
	s := fmt.Sprintf("%s h (%s, %d %s)", timecalc.FormatHours(t.Duration),
		timecalc.FormatDuration(int64(t.Duration/time.Second)), t.Sessions, sessions)
	if t.Open > 0 {
		s += ", running"
	}
	return s
}
