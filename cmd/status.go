package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every worker's clock state and today's hours",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// boardRow is one line of the status board.
type boardRow struct {
	Worker  model.Worker
	Open    bool
	LastIn  *time.Time
	LastOut *time.Time
	Today   ledger.Total
	Elapsed time.Duration
}

func runStatus(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	rows, err := buildBoard(l)
	if err != nil {
		exitWith(err, done)
	}
	printBoard(os.Stdout, rows, l.Location())
	return nil
}

func buildBoard(l *ledger.Ledger) ([]boardRow, error) {
	now := l.Now()
	var rows []boardRow
	for _, w := range l.Workers() {
		records, err := l.RecordsFor(w.ID)
		if err != nil {
			return nil, err
		}
		today, err := l.HoursForDay(w.ID, now)
		if err != nil {
			return nil, err
		}

		row := boardRow{Worker: w, Today: today}
		if n := len(records); n > 0 {
			last := records[n-1]
			row.LastIn = &last.ClockIn
			row.LastOut = last.ClockOut
		}
		if open, ok := l.OpenSession(w.ID); ok {
			row.Open = true
			row.Elapsed = open.Duration(now)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func printBoard(w io.Writer, rows []boardRow, loc *time.Location) {
	stamp := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.In(loc).Format("2006-01-02 15:04")
	}

	fmt.Fprintf(w, "%-20s %-12s %-17s %-17s %s\n", "Worker", "State", "Last in", "Last out", "Today")
	for _, r := range rows {
		state := "Clocked Out"
		if r.Open {
			state = "Clocked In"
		}
		today := "-"
		if r.Today.HasData() {
			today = timecalc.FormatHours(r.Today.Duration) + " h"
		}
		fmt.Fprintf(w, "%-20s %-12s %-17s %-17s %s", r.Worker.Name, state, stamp(r.LastIn), stamp(r.LastOut), today)
		if r.Open {
			fmt.Fprintf(w, "  (running %s)", timecalc.FormatDurationHHMMSS(int64(r.Elapsed/time.Second)))
		}
		fmt.Fprintln(w)
	}
}
