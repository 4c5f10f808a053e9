package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeledger/internal/config"
	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/store"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard all workers and records and start from the seed",
	Long: `Replace the stored ledger with a fresh seed (owner plus placeholder workers).
The previous snapshot is first copied to <key>.corrupt in the same store
(<key>.corrupt.json for the file backend). Use this to recover from a
corrupt snapshot.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Required: confirm that all data is replaced")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		fmt.Fprintln(os.Stderr, "Refusing to reset without --force.")
		os.Exit(1)
	}

	// The ledger is not opened first: reset must work on a snapshot that
	// no longer loads.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	opts, err := ledgerOptions(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	s, done, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer done()

	backup, l, err := resetLedger(s, opts)
	if err != nil {
		exitWith(err, done)
	}
	if backup != "" {
		fmt.Printf("Previous data saved under key %s\n", backup)
	}
	fmt.Printf("Ledger reset with %d workers.\n", len(l.Workers()))
	return nil
}

// resetLedger backs up whatever is stored under opts.Key and reseeds.
func resetLedger(s store.Store, opts ledger.Options) (string, *ledger.Ledger, error) {
	key := opts.Key
	if key == "" {
		key = ledger.DefaultKey
	}
	backup, err := store.Backup(s, key)
	if err != nil {
		return "", nil, err
	}
	l, err := ledger.Reseed(s, opts)
	if err != nil {
		return "", nil, err
	}
	return backup, l, nil
}
