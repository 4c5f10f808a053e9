package model

import (
	"strconv"
	"time"
)

// SubjectID identifies who is clocked in or out: a numeric worker id or OwnerID.
type SubjectID string

// OwnerID is the reserved subject for the owner/operator.
const OwnerID SubjectID = "owner"

// IsOwner reports whether id is the reserved owner subject.
func (id SubjectID) IsOwner() bool {
	return id == OwnerID
}

// Number returns the numeric part of a worker id. ok is false for the owner
// and for anything that is not a positive decimal.
func (id SubjectID) Number() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Placeholder returns the generated display name used when a name is blank.
func Placeholder(id SubjectID) string {
	if id.IsOwner() {
		return "Owner"
	}
	return "Worker " + string(id)
}

// Worker is a person (or the owner) that can be clocked in and out.
type Worker struct {
	ID   SubjectID `json:"id"`
	Name string    `json:"name"`
}

// Record is a single attendance session. Date is the calendar day the
// session was opened on and is never recomputed.
type Record struct {
	ID        string     `json:"id"`
	SubjectID SubjectID  `json:"subject_id"`
	Date      string     `json:"date"`
	ClockIn   time.Time  `json:"clock_in"`
	ClockOut  *time.Time `json:"clock_out"`
}

// Open reports whether the session has not been closed yet.
func (r Record) Open() bool {
	return r.ClockOut == nil
}

// Duration returns the elapsed time of the session, using now for open
// sessions. The result is never negative.
func (r Record) Duration(now time.Time) time.Duration {
	end := now
	if r.ClockOut != nil {
		end = *r.ClockOut
	}
	d := end.Sub(r.ClockIn)
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns a copy that shares no memory with r.
func (r Record) Clone() Record {
	if r.ClockOut != nil {
		out := *r.ClockOut
		r.ClockOut = &out
	}
	return r
}

// Snapshot is the full persisted state of a ledger.
type Snapshot struct {
	Workers []Worker `json:"workers"`
	Records []Record `json:"records"`
}
