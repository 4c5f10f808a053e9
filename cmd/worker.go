package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage workers",
}

var workerAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a worker (blank name gets a placeholder)",
	Args:  cobra.ArbitraryArgs,
	RunE:  runWorkerAdd,
}

var workerRenameCmd = &cobra.Command{
	Use:   "rename <worker> [name]",
	Short: "Rename a worker (blank name resets to the placeholder)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWorkerRename,
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workers",
	Args:  cobra.NoArgs,
	RunE:  runWorkerList,
}

func init() {
	workerCmd.AddCommand(workerAddCmd)
	workerCmd.AddCommand(workerRenameCmd)
	workerCmd.AddCommand(workerListCmd)
}

func runWorkerAdd(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	w, err := l.AddWorker(strings.Join(args, " "))
	if err != nil {
		exitWith(err, done)
	}
	fmt.Printf("Added worker %s: %s\n", w.ID, w.Name)
	return nil
}

func runWorkerRename(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	w, err := resolveSubject(l.Workers(), args[0])
	if err != nil {
		exitWith(err, done)
	}
	renamed, err := l.RenameWorker(w.ID, strings.Join(args[1:], " "))
	if err != nil {
		exitWith(err, done)
	}
	fmt.Printf("Renamed worker %s: %s → %s\n", w.ID, w.Name, renamed.Name)
	return nil
}

func runWorkerList(cmd *cobra.Command, args []string) error {
	l, _, done := mustOpenLedger()
	defer done()

	for _, w := range l.Workers() {
		state := ""
		if l.IsOpen(w.ID) {
			state = "  (clocked in)"
		}
		fmt.Printf("%-6s %s%s\n", w.ID, w.Name, state)
	}
	return nil
}
