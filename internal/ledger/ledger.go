// Package ledger owns workers and attendance records, enforces the
// clock-in/clock-out state machine and answers derived-hours queries.
//
// A Ledger is safe for concurrent use: every method holds a single mutex for
// its whole duration, so the "at most one open session per subject" check and
// the append that follows it are atomic. Each successful mutation re-persists
// the full snapshot before returning; a failed mutation changes nothing and
// writes nothing.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/store"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

var (
	// ErrAlreadyClockedIn is returned by ClockIn when the subject has an open session.
	ErrAlreadyClockedIn = errors.New("already clocked in")
	// ErrNoOpenSession is returned by ClockOut when the subject has no open session.
	ErrNoOpenSession = errors.New("no open session")
	// ErrUnknownSubject is returned when an id does not resolve to a worker.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrCorruptSnapshot is returned by Open when the stored snapshot cannot be used.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

const (
	// DefaultKey is the store key the snapshot is saved under.
	DefaultKey = "timeledger"
	// DefaultSeedWorkers is the number of placeholder workers on first run.
	DefaultSeedWorkers = 5
)

// Clock provides the current time. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Options configures a Ledger. Zero values select the defaults.
type Options struct {
	Key         string
	OwnerName   string
	SeedWorkers int
	Location    *time.Location
	Clock       Clock
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if strings.TrimSpace(o.OwnerName) == "" {
		o.OwnerName = model.Placeholder(model.OwnerID)
	}
	if o.SeedWorkers < 0 {
		o.SeedWorkers = 0
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	return o
}

// Ledger is the single owner of the worker list and the attendance records.
type Ledger struct {
	mu      sync.Mutex
	store   store.Store
	opts    Options
	workers []model.Worker
	records []model.Record
	nextID  int
}

// Open loads the snapshot from s. When nothing is stored yet the ledger is
// seeded with the owner and opts.SeedWorkers placeholder workers and the seed
// is persisted. A snapshot that cannot be decoded or breaks an invariant
// yields ErrCorruptSnapshot; use Reseed to start over.
func Open(s store.Store, opts Options) (*Ledger, error) {
	l := &Ledger{store: s, opts: opts.withDefaults()}

	data, err := s.Load(l.opts.Key)
	if errors.Is(err, store.ErrNotFound) {
		l.seed()
		if err := l.persist(); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if err := l.restore(snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return l, nil
}

// Reseed discards whatever is stored under the key and persists a fresh seed.
func Reseed(s store.Store, opts Options) (*Ledger, error) {
	l := &Ledger{store: s, opts: opts.withDefaults()}
	l.seed()
	if err := l.persist(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) seed() {
	l.workers = []model.Worker{{ID: model.OwnerID, Name: strings.TrimSpace(l.opts.OwnerName)}}
	l.records = nil
	l.nextID = 1
	for i := 0; i < l.opts.SeedWorkers; i++ {
		id := l.allocateID()
		l.workers = append(l.workers, model.Worker{ID: id, Name: model.Placeholder(id)})
	}
}

// restore validates snap and adopts it.
func (l *Ledger) restore(snap model.Snapshot) error {
	workers := make([]model.Worker, 0, len(snap.Workers))
	seenWorkers := make(map[model.SubjectID]bool, len(snap.Workers))
	maxID := 0
	for i, w := range snap.Workers {
		if seenWorkers[w.ID] {
			return fmt.Errorf("worker %d: duplicate id %q", i, w.ID)
		}
		n, numeric := w.ID.Number()
		if !numeric && !w.ID.IsOwner() {
			return fmt.Errorf("worker %d: invalid id %q", i, w.ID)
		}
		if n > maxID {
			maxID = n
		}
		seenWorkers[w.ID] = true
		workers = append(workers, model.Worker{ID: w.ID, Name: normalizeName(w.ID, w.Name)})
	}

	records := make([]model.Record, 0, len(snap.Records))
	seenRecords := make(map[string]bool, len(snap.Records))
	open := make(map[model.SubjectID]bool)
	for i, r := range snap.Records {
		switch {
		case r.ID == "":
			return fmt.Errorf("record %d: missing id", i)
		case seenRecords[r.ID]:
			return fmt.Errorf("record %d: duplicate id %q", i, r.ID)
		case r.SubjectID == "":
			return fmt.Errorf("record %q: missing subject", r.ID)
		case r.ClockIn.IsZero():
			return fmt.Errorf("record %q: missing clock-in time", r.ID)
		}
		// Records of workers missing from the list are kept, but their ids
		// stay reserved so a new worker never inherits their sessions.
		n, numeric := r.SubjectID.Number()
		if !numeric && !r.SubjectID.IsOwner() {
			return fmt.Errorf("record %q: invalid subject id %q", r.ID, r.SubjectID)
		}
		if n > maxID {
			maxID = n
		}
		if _, err := time.Parse(timecalc.DateLayout, r.Date); err != nil {
			return fmt.Errorf("record %q: invalid date %q", r.ID, r.Date)
		}
		if r.Open() {
			if open[r.SubjectID] {
				return fmt.Errorf("record %q: second open session for subject %q", r.ID, r.SubjectID)
			}
			open[r.SubjectID] = true
		}
		seenRecords[r.ID] = true
		records = append(records, r.Clone())
	}

	l.workers = workers
	l.records = records
	l.nextID = maxID + 1
	return nil
}

func (l *Ledger) allocateID() model.SubjectID {
	id := model.SubjectID(strconv.Itoa(l.nextID))
	l.nextID++
	return id
}

// persist writes the full snapshot. Callers hold l.mu.
func (l *Ledger) persist() error {
	snap := model.Snapshot{Workers: l.workers, Records: l.records}
	if snap.Workers == nil {
		snap.Workers = []model.Worker{}
	}
	if snap.Records == nil {
		snap.Records = []model.Record{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := l.store.Save(l.opts.Key, data); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	return nil
}

func normalizeName(id model.SubjectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Placeholder(id)
	}
	return name
}

// Location returns the location record dates are computed in.
func (l *Ledger) Location() *time.Location {
	return l.opts.Location
}

// Now returns the ledger clock's current time in the ledger's location.
func (l *Ledger) Now() time.Time {
	return l.opts.Clock.Now().In(l.opts.Location)
}

func (l *Ledger) workerIndex(id model.SubjectID) int {
	for i, w := range l.workers {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// openIndex returns the most recent open record for subject, or -1.
func (l *Ledger) openIndex(subject model.SubjectID) int {
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].SubjectID == subject && l.records[i].Open() {
			return i
		}
	}
	return -1
}
