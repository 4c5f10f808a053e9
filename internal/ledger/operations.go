package ledger

import (
	"fmt"
	"time"

	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

// AddWorker creates a worker with a fresh id. A blank name becomes the
// generated placeholder. It only fails when the snapshot cannot be persisted.
func (l *Ledger) AddWorker(name string) (model.Worker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.allocateID()
	w := model.Worker{ID: id, Name: normalizeName(id, name)}
	l.workers = append(l.workers, w)
	if err := l.persist(); err != nil {
		l.workers = l.workers[:len(l.workers)-1]
		l.nextID--
		return model.Worker{}, err
	}
	return w, nil
}

// RenameWorker sets the display name of id. A name that is blank after
// trimming resets it to the placeholder.
func (l *Ledger) RenameWorker(id model.SubjectID, name string) (model.Worker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.workerIndex(id)
	if i < 0 {
		return model.Worker{}, fmt.Errorf("rename %q: %w", id, ErrUnknownSubject)
	}
	old := l.workers[i].Name
	l.workers[i].Name = normalizeName(id, name)
	if err := l.persist(); err != nil {
		l.workers[i].Name = old
		return model.Worker{}, err
	}
	return l.workers[i], nil
}

// ClockIn opens a session for subject at the given time. The record's date
// is the calendar day of at in the ledger's location.
func (l *Ledger) ClockIn(subject model.SubjectID, at time.Time) (model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.workerIndex(subject) < 0 {
		return model.Record{}, fmt.Errorf("clock in %q: %w", subject, ErrUnknownSubject)
	}
	if l.openIndex(subject) >= 0 {
		return model.Record{}, fmt.Errorf("clock in %q: %w", subject, ErrAlreadyClockedIn)
	}

	local := at.In(l.opts.Location)
	rec := model.Record{
		ID:        timecalc.GenerateID(local),
		SubjectID: subject,
		Date:      timecalc.DateKey(local),
		ClockIn:   at,
	}
	l.records = append(l.records, rec)
	if err := l.persist(); err != nil {
		l.records = l.records[:len(l.records)-1]
		return model.Record{}, err
	}
	return rec.Clone(), nil
}

// ClockOut closes the most recent open session of subject at the given time.
// A time before the clock-in is stored as given; the session then counts as
// zero duration.
func (l *Ledger) ClockOut(subject model.SubjectID, at time.Time) (model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.workerIndex(subject) < 0 {
		return model.Record{}, fmt.Errorf("clock out %q: %w", subject, ErrUnknownSubject)
	}
	i := l.openIndex(subject)
	if i < 0 {
		return model.Record{}, fmt.Errorf("clock out %q: %w", subject, ErrNoOpenSession)
	}

	out := at
	l.records[i].ClockOut = &out
	if err := l.persist(); err != nil {
		l.records[i].ClockOut = nil
		return model.Record{}, err
	}
	return l.records[i].Clone(), nil
}
