package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Tiliavir/timeledger/internal/config"
	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/store"
)

// closer releases whatever openStore acquired.
type closer func()

// openStore builds the store selected by cfg.
func openStore(cfg config.Config) (store.Store, closer, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite, config.BackendMySQL:
		s, err := store.OpenSQL(cfg.Store.Backend, cfg.Store.DSN, cfg.Store.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := store.NewFileStore(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func ledgerOptions(cfg config.Config) (ledger.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ledger.Options{}, err
	}
	return ledger.Options{
		Key:         cfg.Store.Key,
		OwnerName:   cfg.Ledger.OwnerName,
		SeedWorkers: cfg.SeedWorkerCount(),
		Location:    loc,
	}, nil
}

// mustOpenLedger loads the config and the ledger, exiting with status 2 when
// either is unusable.
func mustOpenLedger() (*ledger.Ledger, config.Config, closer) {
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

	l, err := ledger.Open(s, opts)
	if err != nil {
		done()
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, ledger.ErrCorruptSnapshot) {
			fmt.Fprintln(os.Stderr, "Tip: run 'tl reset --force' to back up the data and start over.")
		}
		os.Exit(2)
	}
	return l, cfg, done
}

// exitCode is 1 for mistakes the user can fix and 2 for storage failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownSubject),
		errors.Is(err, ledger.ErrAlreadyClockedIn),
		errors.Is(err, ledger.ErrNoOpenSession),
		errors.Is(err, errBadInput):
		return 1
	default:
		return 2
	}
}

// exitWith prints err and exits with its exit code.
func exitWith(err error, done closer) {
	if done != nil {
		done()
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

var errBadInput = errors.New("invalid input")

// resolveSubject finds a worker by id or, failing that, by case-insensitive name.
func resolveSubject(workers []model.Worker, arg string) (model.Worker, error) {
	arg = strings.TrimSpace(arg)
	for _, w := range workers {
		if string(w.ID) == arg {
			return w, nil
		}
	}

	var found []model.Worker
	for _, w := range workers {
		if strings.EqualFold(w.Name, arg) {
			found = append(found, w)
		}
	}
	switch len(found) {
	case 0:
		return model.Worker{}, fmt.Errorf("no worker with id or name %q: %w", arg, ledger.ErrUnknownSubject)
	case 1:
		return found[0], nil
	default:
		ids := make([]string, len(found))
		for i, w := range found {
			ids[i] = string(w.ID)
		}
		return model.Worker{}, fmt.Errorf("%w: name %q matches workers %s; use the id", errBadInput, arg, strings.Join(ids, ", "))
	}
}

// parseAt interprets a --at value. Empty means now; a bare "15:04" is taken
// on now's date; other forms are RFC 3339 or "2006-01-02 15:04" in loc.
func parseAt(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		local := now.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: --at %q (want HH:MM, \"YYYY-MM-DD HH:MM\" or RFC 3339)", errBadInput, s)
}

// workerNames maps ids to display names for printing records.
func workerNames(workers []model.Worker) map[model.SubjectID]string {
	names := make(map[model.SubjectID]string, len(workers))
	for _, w := range workers {
		names[w.ID] = w.Name
	}
	return names
}
