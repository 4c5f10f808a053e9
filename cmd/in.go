package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inAt string

var inCmd = &cobra.Command{
	Use:   "in <worker>",
	Short: "Clock a worker in",
	Long: `Clock a worker in. <worker> is an id (owner, 1, 2, …) or a name.
Fails if the worker already has an open session, even one from an earlier day.`,
	Args: cobra.ExactArgs(1),
	RunE: runIn,
}

func init() {
	inCmd.Flags().StringVar(&inAt, "at", "", `Clock-in time: HH:MM, "YYYY-MM-DD HH:MM" or RFC 3339 (default now)`)
}

func runIn(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	w, err := resolveSubject(l.Workers(), args[0])
	if err != nil {
		exitWith(err, done)
	}
	at, err := parseAt(inAt, l.Now(), l.Location())
	if err != nil {
		exitWith(err, done)
	}

	rec, err := l.ClockIn(w.ID, at)
	if err != nil {
		exitWith(err, done)
	}

	fmt.Printf("Clocked in %s at %s\n", w.Name, rec.ClockIn.In(l.Location()).Format("15:04:05"))
	return nil
}
