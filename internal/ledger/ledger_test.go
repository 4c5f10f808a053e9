package ledger_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/store"
)

// 2026-02-23 is a Monday.
var day1 = time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)

func at(d time.Time, hour, minute int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// countingStore counts saves and can be told to fail them.
type countingStore struct {
	*store.MemStore
	saves int
	fail  bool
}

func (s *countingStore) Save(key string, data []byte) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.saves++
	return s.MemStore.Save(key, data)
}

func newLedger(t *testing.T) (*ledger.Ledger, *countingStore, *fakeClock) {
	t.Helper()
	s := &countingStore{MemStore: store.NewMemStore()}
	clock := &fakeClock{now: at(day1, 18, 0)}
	l, err := ledger.Open(s, ledger.Options{Location: time.UTC, Clock: clock, SeedWorkers: 5})
	require.NoError(t, err)
	return l, s, clock
}

func openSessions(records []model.Record, subject model.SubjectID) int {
	n := 0
	for _, r := range records {
		if r.SubjectID == subject && r.Open() {
			n++
		}
	}
	return n
}

func TestOpenSeedsAndPersists(t *testing.T) {
	l, s, _ := newLedger(t)

	workers := l.Workers()
	require.Len(t, workers, 6)
	assert.Equal(t, model.Worker{ID: model.OwnerID, Name: "Owner"}, workers[0])
	assert.Equal(t, model.Worker{ID: "1", Name: "Worker 1"}, workers[1])
	assert.Equal(t, model.Worker{ID: "5", Name: "Worker 5"}, workers[5])
	assert.Empty(t, l.Records())
	assert.Equal(t, 1, s.saves, "seed should be persisted")

	data, err := s.Load(ledger.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records": []`)
}

func TestOpenCustomOwnerName(t *testing.T) {
	l, err := ledger.Open(store.NewMemStore(), ledger.Options{OwnerName: "  Poppie ", SeedWorkers: 2})
	require.NoError(t, err)

	w, err := l.Worker(model.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, "Poppie", w.Name)
	assert.Len(t, l.Workers(), 3)
}

func TestOpenRestoresSnapshot(t *testing.T) {
	l, s, clock := newLedger(t)
	_, err := l.AddWorker("Sam")
	require.NoError(t, err)
	_, err = l.ClockIn("6", at(day1, 9, 0))
	require.NoError(t, err)
	_, err = l.ClockOut("6", at(day1, 17, 0))
	require.NoError(t, err)
	_, err = l.ClockIn("1", at(day1, 10, 0))
	require.NoError(t, err)

	reopened, err := ledger.Open(s, ledger.Options{Location: time.UTC, Clock: clock})
	require.NoError(t, err)

	assert.Equal(t, l.Workers(), reopened.Workers())
	require.Len(t, reopened.Records(), 2)
	assert.True(t, reopened.IsOpen("1"))
	assert.False(t, reopened.IsOpen("6"))

	total, err := reopened.HoursForDay("6", day1)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, total.Duration)

	// Ids are never reused after a reload.
	w, err := reopened.AddWorker("")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectID("7"), w.ID)
}

func TestOpenRejectsCorruptSnapshots(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"bad json", `{bad json`},
		{"wrong shape", `{"workers": "nope"}`},
		{"duplicate worker", `{"workers":[{"id":"1","name":"a"},{"id":"1","name":"b"}],"records":[]}`},
		{"invalid worker id", `{"workers":[{"id":"boss","name":"a"}],"records":[]}`},
		{"missing record id", `{"workers":[{"id":"1","name":"a"}],"records":[{"subject_id":"1","date":"2026-02-23","clock_in":"2026-02-23T09:00:00Z"}]}`},
		{"bad date", `{"workers":[{"id":"1","name":"a"}],"records":[{"id":"r1","subject_id":"1","date":"23.02.2026","clock_in":"2026-02-23T09:00:00Z"}]}`},
		{"malformed subject id", `{"workers":[{"id":"1","name":"a"}],"records":[{"id":"r1","subject_id":"not a valid id!","date":"2026-02-23","clock_in":"2026-02-23T09:00:00Z"}]}`},
		{"missing clock in", `{"workers":[{"id":"1","name":"a"}],"records":[{"id":"r1","subject_id":"1","date":"2026-02-23"}]}`},
		{"two open sessions", `{"workers":[{"id":"1","name":"a"}],"records":[
			{"id":"r1","subject_id":"1","date":"2026-02-23","clock_in":"2026-02-23T09:00:00Z"},
			{"id":"r2","subject_id":"1","date":"2026-02-24","clock_in":"2026-02-24T09:00:00Z"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemStore()
			require.NoError(t, s.Save(ledger.DefaultKey, []byte(tt.blob)))

			_, err := ledger.Open(s, ledger.Options{})
			assert.ErrorIs(t, err, ledger.ErrCorruptSnapshot)
		})
	}
}

func TestOpenKeepsOrphanRecordIDsReserved(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.Save(ledger.DefaultKey, []byte(`{
		"workers":[{"id":"owner","name":"Owner"},{"id":"1","name":"Jo"}],
		"records":[{"id":"r1","subject_id":"2","date":"2026-02-23",
			"clock_in":"2026-02-23T09:00:00Z","clock_out":"2026-02-23T17:00:00Z"}]}`)))

	l, err := ledger.Open(s, ledger.Options{Location: time.UTC})
	require.NoError(t, err)
	assert.Len(t, l.Records(), 1, "orphan record is kept")

	w, err := l.AddWorker("Brand New")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectID("3"), w.ID)

	total, err := l.HoursForDay(w.ID, day1)
	require.NoError(t, err)
	assert.False(t, total.HasData(), "new worker must not inherit sessions")
}

func TestOpenNormalizesBlankNames(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.Save(ledger.DefaultKey, []byte(`{"workers":[{"id":"owner","name":""},{"id":"4","name":"  "}],"records":[]}`)))

	l, err := ledger.Open(s, ledger.Options{})
	require.NoError(t, err)
	assert.Equal(t, []model.Worker{{ID: "owner", Name: "Owner"}, {ID: "4", Name: "Worker 4"}}, l.Workers())
}

func TestReseedReplacesSnapshot(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.Save(ledger.DefaultKey, []byte(`{bad json`)))

	l, err := ledger.Reseed(s, ledger.Options{SeedWorkers: 3})
	require.NoError(t, err)
	assert.Len(t, l.Workers(), 4)

	_, err = ledger.Open(s, ledger.Options{})
	assert.NoError(t, err)
}

func TestAddWorker(t *testing.T) {
	l, s, _ := newLedger(t)
	saves := s.saves

	w, err := l.AddWorker("  Alex  ")
	require.NoError(t, err)
	assert.Equal(t, model.Worker{ID: "6", Name: "Alex"}, w)

	w, err = l.AddWorker("")
	require.NoError(t, err)
	assert.Equal(t, model.Worker{ID: "7", Name: "Worker 7"}, w)
	assert.Equal(t, saves+2, s.saves)
}

func TestRenameWorker(t *testing.T) {
	l, s, _ := newLedger(t)

	w, err := l.RenameWorker("1", "Jo")
	require.NoError(t, err)
	assert.Equal(t, "Jo", w.Name)

	w, err = l.RenameWorker("1", "   ")
	require.NoError(t, err)
	assert.Equal(t, "Worker 1", w.Name, "blank name resets to placeholder")

	w, err = l.RenameWorker(model.OwnerID, "")
	require.NoError(t, err)
	assert.Equal(t, "Owner", w.Name)

	saves := s.saves
	before := l.Workers()
	_, err = l.RenameWorker("99", "Ghost")
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	assert.Equal(t, before, l.Workers())
	assert.Equal(t, saves, s.saves, "failed rename must not persist")
}

func TestClockInTwiceFails(t *testing.T) {
	l, s, _ := newLedger(t)

	rec, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-23", rec.Date)
	assert.True(t, rec.Open())

	saves := s.saves
	_, err = l.ClockIn("1", at(day1, 9, 5))
	assert.ErrorIs(t, err, ledger.ErrAlreadyClockedIn)
	assert.Len(t, l.Records(), 1)
	assert.Equal(t, saves, s.saves)
	assert.Equal(t, 1, openSessions(l.Records(), "1"))
}

func TestOpenSessionFromEarlierDayBlocksClockIn(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.ClockIn("2", at(day1, 9, 0))
	require.NoError(t, err)

	_, err = l.ClockIn("2", at(day1.AddDate(0, 0, 1), 9, 0))
	assert.ErrorIs(t, err, ledger.ErrAlreadyClockedIn)
}

func TestClockOutWithoutClockIn(t *testing.T) {
	l, s, _ := newLedger(t)
	saves := s.saves

	_, err := l.ClockOut("1", at(day1, 17, 0))
	assert.ErrorIs(t, err, ledger.ErrNoOpenSession)
	assert.Empty(t, l.Records())
	assert.Equal(t, saves, s.saves)
}

func TestUnknownSubject(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.ClockIn("42", at(day1, 9, 0))
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	_, err = l.ClockOut("42", at(day1, 9, 0))
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	_, err = l.HoursForDay("42", day1)
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	_, err = l.WeeklyHours("42", day1)
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	_, err = l.RecordsFor("42")
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	_, err = l.Worker("42")
	assert.ErrorIs(t, err, ledger.ErrUnknownSubject)
	assert.False(t, l.IsOpen("42"))
}

func TestSingleSessionDay(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	rec, err := l.ClockOut("1", at(day1, 17, 0))
	require.NoError(t, err)
	assert.False(t, rec.Open())

	total, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, total.Duration)
	assert.Equal(t, 1, total.Sessions)
	assert.Equal(t, 0, total.Open)
	assert.Equal(t, 8.0, total.Duration.Hours())
}

func TestTwoSessionsSameDay(t *testing.T) {
	l, _, _ := newLedger(t)

	for _, s := range [][2]time.Time{
		{at(day1, 9, 0), at(day1, 12, 0)},
		{at(day1, 13, 0), at(day1, 17, 30)},
	} {
		_, err := l.ClockIn("1", s[0])
		require.NoError(t, err)
		_, err = l.ClockOut("1", s[1])
		require.NoError(t, err)
	}

	total, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, 7.5, total.Duration.Hours())
	assert.Equal(t, 2, total.Sessions)
}

func TestRoundTripAtLeastElapsed(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.ClockIn("3", at(day1, 6, 0))
	require.NoError(t, err)
	_, err = l.ClockOut("3", at(day1, 7, 0))
	require.NoError(t, err)
	_, err = l.ClockIn("3", at(day1, 8, 15))
	require.NoError(t, err)
	_, err = l.ClockOut("3", at(day1, 9, 0))
	require.NoError(t, err)

	total, err := l.HoursForDay("3", day1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total.Duration, 45*time.Minute)
	assert.Equal(t, time.Hour+45*time.Minute, total.Duration)
}

func TestClockSkewClampsToZero(t *testing.T) {
	l, _, _ := newLedger(t)

	_, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	rec, err := l.ClockOut("1", at(day1, 8, 30))
	require.NoError(t, err)
	assert.True(t, rec.ClockOut.Before(rec.ClockIn), "clock-out is stored as given")

	total, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), total.Duration)
	assert.True(t, total.HasData(), "a clamped session is still activity")

	week, err := l.WeeklyHours("1", day1)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), week.Duration)
	assert.Equal(t, 1, week.Sessions)
}

func TestNoDataIsDistinguishable(t *testing.T) {
	l, _, _ := newLedger(t)

	total, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), total.Duration)
	assert.False(t, total.HasData())

	_, err = l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	_, err = l.ClockOut("1", at(day1, 9, 0))
	require.NoError(t, err)

	total, err = l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), total.Duration)
	assert.True(t, total.HasData())
}

func TestWeeklyExcludesOpenSessions(t *testing.T) {
	l, _, clock := newLedger(t)

	_, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	clock.Set(at(day1, 11, 30))

	week, err := l.WeeklyHours("1", day1)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), week.Duration)
	assert.Equal(t, 0, week.Sessions)
	assert.Equal(t, 1, week.Open)

	day, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Minute, day.Duration)
	assert.Equal(t, 1, day.Open)

	// Evaluated at query time, not cached.
	clock.Set(at(day1, 12, 0))
	day, err = l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, day.Duration)
}

func TestOpenSessionNeverNegative(t *testing.T) {
	l, _, clock := newLedger(t)

	_, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	clock.Set(at(day1, 8, 0))

	day, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), day.Duration)
}

func TestWeeklyHoursWeekBoundaries(t *testing.T) {
	l, _, _ := newLedger(t)
	sunday := day1.AddDate(0, 0, 6)
	nextMonday := day1.AddDate(0, 0, 7)
	prevSunday := day1.AddDate(0, 0, -1)

	for _, d := range []time.Time{prevSunday, day1, sunday, nextMonday} {
		_, err := l.ClockIn("1", at(d, 9, 0))
		require.NoError(t, err)
		_, err = l.ClockOut("1", at(d, 10, 0))
		require.NoError(t, err)
	}

	for _, anchor := range []time.Time{day1, at(day1.AddDate(0, 0, 3), 15, 0), at(sunday, 23, 59)} {
		week, err := l.WeeklyHours("1", anchor)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, week.Duration, "anchor %v", anchor)
		assert.Equal(t, 2, week.Sessions)
	}
}

func TestDateFixedAcrossMidnight(t *testing.T) {
	l, _, _ := newLedger(t)
	day2 := day1.AddDate(0, 0, 1)

	_, err := l.ClockIn("1", at(day1, 22, 0))
	require.NoError(t, err)
	rec, err := l.ClockOut("1", at(day2, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-23", rec.Date)

	total, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, total.Duration)

	total, err = l.HoursForDay("1", day2)
	require.NoError(t, err)
	assert.False(t, total.HasData())
}

func TestDateUsesLedgerLocation(t *testing.T) {
	brisbane := time.FixedZone("UTC+10", 10*60*60)
	l, err := ledger.Open(store.NewMemStore(), ledger.Options{Location: brisbane})
	require.NoError(t, err)

	// 23:30 UTC on the 22nd is 09:30 on the 23rd in Brisbane.
	rec, err := l.ClockIn(model.OwnerID, time.Date(2026, 2, 22, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-23", rec.Date)
}

func TestPersistFailureRollsBack(t *testing.T) {
	l, s, _ := newLedger(t)
	_, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)

	s.fail = true
	_, err = l.ClockIn("2", at(day1, 9, 0))
	assert.Error(t, err)
	assert.False(t, l.IsOpen("2"))

	_, err = l.ClockOut("1", at(day1, 17, 0))
	assert.Error(t, err)
	assert.True(t, l.IsOpen("1"))

	_, err = l.AddWorker("Pat")
	assert.Error(t, err)
	assert.Len(t, l.Workers(), 6)

	_, err = l.RenameWorker("1", "Jo")
	assert.Error(t, err)
	w, _ := l.Worker("1")
	assert.Equal(t, "Worker 1", w.Name)

	s.fail = false
	w, err = l.AddWorker("Pat")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectID("6"), w.ID, "failed add must not burn an id")
}

func TestRecordsAreCopies(t *testing.T) {
	l, _, _ := newLedger(t)
	_, err := l.ClockIn("1", at(day1, 9, 0))
	require.NoError(t, err)
	_, err = l.ClockOut("1", at(day1, 17, 0))
	require.NoError(t, err)

	records := l.Records()
	*records[0].ClockOut = at(day1, 23, 0)
	records[0].Date = "2000-01-01"

	total, err := l.HoursForDay("1", day1)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, total.Duration)
}

func TestRecordsInsertionOrder(t *testing.T) {
	l, _, _ := newLedger(t)
	_, err := l.ClockIn("2", at(day1, 9, 0))
	require.NoError(t, err)
	_, err = l.ClockIn("1", at(day1, 8, 0))
	require.NoError(t, err)
	_, err = l.ClockOut("2", at(day1, 10, 0))
	require.NoError(t, err)

	records := l.Records()
	require.Len(t, records, 2)
	assert.Equal(t, model.SubjectID("2"), records[0].SubjectID)
	assert.Equal(t, model.SubjectID("1"), records[1].SubjectID)

	mine, err := l.RecordsFor("1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, records[1].ID, mine[0].ID)

	open, ok := l.OpenSession("1")
	require.True(t, ok)
	assert.Equal(t, records[1].ID, open.ID)
	_, ok = l.OpenSession("2")
	assert.False(t, ok)
}

func TestAtMostOneOpenSessionUnderRandomSequence(t *testing.T) {
	l, _, _ := newLedger(t)
	subjects := []model.SubjectID{"1", "2", model.OwnerID}
	ts := at(day1, 6, 0)

	// A deterministic mix of valid and invalid transitions.
	ops := "iiooioiooiiioo"
	for step, op := range ops {
		for _, s := range subjects {
			ts = ts.Add(7 * time.Minute)
			if op == 'i' {
				_, _ = l.ClockIn(s, ts)
			} else {
				_, _ = l.ClockOut(s, ts)
			}
			assert.LessOrEqual(t, openSessions(l.Records(), s), 1, "step %d subject %s", step, s)
		}
	}
}

func TestConcurrentClockIn(t *testing.T) {
	l, _, _ := newLedger(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ClockIn("1", at(day1, 9, 0)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, openSessions(l.Records(), "1"))
}
