package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var outAt string

var outCmd = &cobra.Command{
	Use:   "out <worker>",
	Short: "Clock a worker out",
	Args:  cobra.ExactArgs(1),
	RunE:  runOut,
}

func init() {
	outCmd.Flags().StringVar(&outAt, "at", "", `Clock-out time: HH:MM, "YYYY-MM-DD HH:MM" or RFC 3339 (default now)`)
}

func runOut(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	w, err := resolveSubject(l.Workers(), args[0])
	if err != nil {
		exitWith(err, done)
	}
	at, err := parseAt(outAt, l.Now(), l.Location())
	if err != nil {
		exitWith(err, done)
	}

	rec, err := l.ClockOut(w.ID, at)
	if err != nil {
		exitWith(err, done)
	}

	summary, warning := describeClockOut(w.Name, rec, l.Location())
	if warning != "" {
		fmt.Fprintln(os.Stderr, warning)
	}
	fmt.Println(summary)
	return nil
}

// describeClockOut renders the line printed after a clock-out and, for a
// clock-out before the clock-in, a warning that the session counts as zero.
func describeClockOut(name string, rec model.Record, loc *time.Location) (summary, warning string) {
	d := rec.Duration(*rec.ClockOut)
	summary = fmt.Sprintf("Clocked out %s at %s. Worked %s (%s h)",
		name, rec.ClockOut.In(loc).Format("15:04:05"),
		timecalc.FormatDurationHHMMSS(int64(d/time.Second)), timecalc.FormatHours(d))
	if rec.ClockOut.Before(rec.ClockIn) {
		warning = fmt.Sprintf("Warning: clock-out %s is before clock-in %s; the session counts as zero.",
			rec.ClockOut.In(loc).Format("15:04"), rec.ClockIn.In(loc).Format("15:04"))
	}
	return summary, warning
}
