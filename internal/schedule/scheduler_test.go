package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain/doselog"
	"github.com/asclep-health/asclep/internal/domain/medication"
)

type fakeStore struct {
	mu         sync.Mutex
	meds       map[uuid.UUID]*medication.Medication
	failUpdate bool
}

func newFakeStore(meds ...*medication.Medication) *fakeStore {
	s := &fakeStore{meds: make(map[uuid.UUID]*medication.Medication)}
	for _, m := range meds {
		s.meds[m.ID] = m
	}
	return s
}

func (s *fakeStore) ListReminderEnabled(context.Context) ([]*medication.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*medication.Medication
	for _, m := range s.meds {
		if m.RemindersOn() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateNextDoseTime(_ context.Context, id uuid.UUID, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return errors.New("storage unavailable")
	}
	m, ok := s.meds[id]
	if !ok {
		return medication.ErrMedicationNotFound
	}
	m.NextDoseTime = &next
	return nil
}

func (s *fakeStore) nextDoseOf(id uuid.UUID) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meds[id].NextDoseTime
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []*doselog.Entry
}

func (l *fakeLogs) Append(_ context.Context, e *doselog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *fakeLogs) all() []*doselog.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*doselog.Entry(nil), l.entries...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered int
	failNext  int
}

func (n *fakeNotifier) Notify(context.Context, *medication.Medication) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext > 0 {
		n.failNext--
		return errors.New("gateway unreachable")
	}
	n.delivered++
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.delivered
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

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMedication(due time.Time) *medication.Medication {
	return &medication.Medication{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Name:            "Metformin",
		Dosage:          "500mg",
		Frequency:       medication.FreqTwiceDaily,
		DoseTime:        medication.DoseTime{Hour: due.Hour(), Minute: due.Minute()},
		Status:          medication.StatusActive,
		ReminderEnabled: true,
		NextDoseTime:    &due,
	}
}

func newTestScheduler(store Store, logs LogStore, n Notifier, clock *fakeClock, opts Options) *Scheduler {
	opts.Clock = clock.Now
	return New(store, logs, n, nil, zap.NewNop(), opts)
}

func TestSchedulerFiresExactlyOnce(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	logs := &fakeLogs{}
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due.Add(30 * time.Second)}

	s := newTestScheduler(store, logs, notifier, clock, Options{})

	for i := 0; i < 5; i++ {
		s.poll(context.Background())
	}

	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d notifications across 5 polls, want exactly 1", got)
	}
}

func TestSchedulerAdvanceOnTaken(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	logs := &fakeLogs{}
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due.Add(30 * time.Second)}

	s := newTestScheduler(store, logs, notifier, clock, Options{})
	s.poll(context.Background())

	if err := s.Acknowledge(context.Background(), med.ID, doselog.StatusTaken, ""); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	entries := logs.all()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0].Status != doselog.StatusTaken {
		t.Errorf("log status = %s, want taken", entries[0].Status)
	}
	if !entries[0].ScheduledTime.Equal(due) {
		t.Errorf("log scheduled time = %s, want %s", entries[0].ScheduledTime, due)
	}
	if entries[0].TakenTime == nil || !entries[0].TakenTime.Equal(clock.Now()) {
		t.Errorf("log taken time = %v, want %s", entries[0].TakenTime, clock.Now())
	}

	// Twice daily anchored at the previous occurrence: the half-interval
	// lands same-day, normalization snaps to the dose time and forward
	// progress pushes to the next morning.
	wantNext := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	next := store.nextDoseOf(med.ID)
	if next == nil || !next.Equal(wantNext) {
		t.Fatalf("next dose time = %v, want %s", next, wantNext)
	}

	// The re-armed occurrence is in the future, so nothing more fires.
	s.poll(context.Background())
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d notifications after re-arm, want 1", got)
	}
}

func TestSchedulerAcknowledgeRequiresFired(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	clock := &fakeClock{now: due.Add(-time.Hour)}

	s := newTestScheduler(store, &fakeLogs{}, &fakeNotifier{}, clock, Options{})
	s.poll(context.Background())

	if err := s.Acknowledge(context.Background(), med.ID, doselog.StatusTaken, ""); !errors.Is(err, ErrNotFired) {
		t.Fatalf("Acknowledge before firing: got %v, want ErrNotFired", err)
	}
	if err := s.Acknowledge(context.Background(), uuid.New(), doselog.StatusTaken, ""); !errors.Is(err, ErrNotTracked) {
		t.Fatalf("Acknowledge unknown id: got %v, want ErrNotTracked", err)
	}
}

func TestSchedulerRetriesFailedDelivery(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	notifier := &fakeNotifier{failNext: 2}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{})

	s.poll(context.Background()) // fails
	s.poll(context.Background()) // fails
	if got := notifier.count(); got != 0 {
		t.Fatalf("delivered %d while gateway down, want 0", got)
	}

	s.poll(context.Background()) // succeeds
	s.poll(context.Background()) // already delivered
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d after recovery, want exactly 1", got)
	}
}

func TestSchedulerPersistFailureKeepsOccurrenceFired(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	logs := &fakeLogs{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, logs, &fakeNotifier{}, clock, Options{})
	s.poll(context.Background())

	store.mu.Lock()
	store.failUpdate = true
	store.mu.Unlock()

	if err := s.Acknowledge(context.Background(), med.ID, doselog.StatusTaken, ""); err == nil {
		t.Fatal("Acknowledge succeeded despite persistence failure")
	}

	// Entry stayed fired: once storage recovers the user can resolve it.
	store.mu.Lock()
	store.failUpdate = false
	store.mu.Unlock()

	if err := s.Acknowledge(context.Background(), med.ID, doselog.StatusTaken, ""); err != nil {
		t.Fatalf("Acknowledge after recovery: %v", err)
	}
	if next := store.nextDoseOf(med.ID); next == nil || !next.After(due) {
		t.Fatalf("next dose time %v not advanced past %s", next, due)
	}
}

func TestSchedulerCancelStopsNotifications(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{})
	s.Track(med)
	if got := s.TrackedCount(); got != 1 {
		t.Fatalf("tracked %d, want 1", got)
	}

	s.Cancel(med.ID)
	if got := s.TrackedCount(); got != 0 {
		t.Fatalf("tracked %d after cancel, want 0", got)
	}

	// Remove from storage too, otherwise the next poll re-tracks it.
	store.mu.Lock()
	delete(store.meds, med.ID)
	store.mu.Unlock()

	s.poll(context.Background())
	if got := notifier.count(); got != 0 {
		t.Fatalf("delivered %d after cancel, want 0", got)
	}
}

func TestSchedulerIgnoresDisabledMedications(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	med.ReminderEnabled = false
	store := newFakeStore(med)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{})
	s.poll(context.Background())

	if got := s.TrackedCount(); got != 0 {
		t.Fatalf("tracked %d disabled medications, want 0", got)
	}
	if got := notifier.count(); got != 0 {
		t.Fatalf("delivered %d for disabled medication, want 0", got)
	}
}

func TestSchedulerQuarantinesCorruptRecords(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	good := newTestMedication(due)
	bad := newTestMedication(due)
	bad.NextDoseTime = nil
	store := newFakeStore(good, bad)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{})
	s.poll(context.Background())

	// The corrupt record is excluded; the healthy one still fires.
	if got := s.TrackedCount(); got != 1 {
		t.Fatalf("tracked %d, want 1", got)
	}
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d, want 1", got)
	}
}

func TestSchedulerGracePeriodAutoMisses(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	logs := &fakeLogs{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, logs, &fakeNotifier{}, clock, Options{GracePeriod: 30 * time.Minute})
	s.poll(context.Background())

	clock.Advance(29 * time.Minute)
	s.poll(context.Background())
	if got := len(logs.all()); got != 0 {
		t.Fatalf("auto-missed inside the grace period: %d entries", got)
	}

	clock.Advance(2 * time.Minute)
	s.poll(context.Background())

	entries := logs.all()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries after grace elapsed, want 1", len(entries))
	}
	if entries[0].Status != doselog.StatusMissed {
		t.Errorf("auto-resolved status = %s, want missed", entries[0].Status)
	}
	if next := store.nextDoseOf(med.ID); next == nil || !next.After(due) {
		t.Fatalf("next dose time %v not advanced after auto-miss", next)
	}
}

func TestSchedulerSnoozeRedelivers(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{SnoozeDelay: 10 * time.Millisecond})
	s.poll(context.Background())
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d, want 1", got)
	}

	if err := s.Snooze(med.ID); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	// While snoozed the poll loop must not redeliver.
	s.poll(context.Background())
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d while snoozed, want 1", got)
	}

	deadline := time.After(time.Second)
	for notifier.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("snoozed reminder never redelivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerCancelDefusesSnooze(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{SnoozeDelay: 10 * time.Millisecond})
	s.poll(context.Background())
	if err := s.Snooze(med.ID); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	s.Cancel(med.ID)
	time.Sleep(50 * time.Millisecond)

	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d after cancel, want 1 (no snooze redelivery)", got)
	}
}

func TestSchedulerExternalAdvanceRearms(t *testing.T) {
	due := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	med := newTestMedication(due)
	store := newFakeStore(med)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: due}

	s := newTestScheduler(store, &fakeLogs{}, notifier, clock, Options{})
	s.poll(context.Background())
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d, want 1", got)
	}

	// The HTTP path logged the dose and advanced the stored timestamp; the
	// next poll must pick up the new occurrence and drop the fired state.
	moved := due.Add(24 * time.Hour)
	store.mu.Lock()
	store.meds[med.ID].NextDoseTime = &moved
	store.mu.Unlock()

	s.poll(context.Background())
	if got := notifier.count(); got != 1 {
		t.Fatalf("delivered %d after external advance, want 1", got)
	}

	clock.mu.Lock()
	clock.now = moved
	clock.mu.Unlock()

	s.poll(context.Background())
	if got := notifier.count(); got != 2 {
		t.Fatalf("delivered %d for the new occurrence, want 2", got)
	}
}
