package ledger

import (
	"fmt"
	"time"

	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

// Total is an aggregated duration. Sessions is the number of records that
// contributed, so a zero Duration with Sessions > 0 (a zero-length or
// clock-skewed session) is distinguishable from no activity at all.
type Total struct {
	Duration time.Duration
	Sessions int
	// Open counts open sessions: included in Duration for a day, excluded
	// from it for a week.
	Open int
}

// HasData reports whether any session contributed to the total.
func (t Total) HasData() bool {
	return t.Sessions > 0
}

// Workers returns a copy of the worker list in creation order.
func (l *Ledger) Workers() []model.Worker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Worker(nil), l.workers...)
}

// Worker returns the worker with the given id.
func (l *Ledger) Worker(id model.SubjectID) (model.Worker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.workerIndex(id)
	if i < 0 {
		return model.Worker{}, fmt.Errorf("worker %q: %w", id, ErrUnknownSubject)
	}
	return l.workers[i], nil
}

// IsOpen reports whether subject currently has an open session.
func (l *Ledger) IsOpen(subject model.SubjectID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openIndex(subject) >= 0
}

// OpenSession returns the open session of subject, if any.
func (l *Ledger) OpenSession(subject model.SubjectID) (model.Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.openIndex(subject)
	if i < 0 {
		return model.Record{}, false
	}
	return l.records[i].Clone(), true
}

// Records returns every record in insertion order.
func (l *Ledger) Records() []model.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.Clone()
	}
	return out
}

// RecordsFor returns the records of subject in insertion order.
func (l *Ledger) RecordsFor(subject model.SubjectID) ([]model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.workerIndex(subject) < 0 {
		return nil, fmt.Errorf("records of %q: %w", subject, ErrUnknownSubject)
	}
	var out []model.Record
	for _, r := range l.records {
		if r.SubjectID == subject {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// HoursForDay sums the sessions of subject dated on day's calendar date (as
// expressed in day's own location). Open sessions count up to now.
func (l *Ledger) HoursForDay(subject model.SubjectID, day time.Time) (Total, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.workerIndex(subject) < 0 {
		return Total{}, fmt.Errorf("hours of %q: %w", subject, ErrUnknownSubject)
	}

	key := timecalc.DateKey(day)
	now := l.opts.Clock.Now()
	var total Total
	for _, r := range l.records {
		if r.SubjectID != subject || r.Date != key {
			continue
		}
		total.Duration += r.Duration(now)
		total.Sessions++
		if r.Open() {
			total.Open++
		}
	}
	return total, nil
}

// WeeklyHours sums the closed sessions of subject dated within the
// Monday–Sunday week containing anchor. Open sessions are left out of
// Duration and Sessions and only counted in Open.
func (l *Ledger) WeeklyHours(subject model.SubjectID, anchor time.Time) (Total, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.workerIndex(subject) < 0 {
		return Total{}, fmt.Errorf("weekly hours of %q: %w", subject, ErrUnknownSubject)
	}

	week := make(map[string]bool, 7)
	for _, key := range timecalc.WeekDates(anchor) {
		week[key] = true
	}

	var total Total
	for _, r := range l.records {
		if r.SubjectID != subject || !week[r.Date] {
			continue
		}
		if r.Open() {
			total.Open++
			continue
		}
		total.Duration += r.Duration(*r.ClockOut)
		total.Sessions++
	}
	return total, nil
}
