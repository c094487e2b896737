package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain/doselog"
	"github.com/asclep-health/asclep/internal/domain/medication"
)

var (
	ErrNotTracked = errors.New("medication is not tracked by the scheduler")
	ErrNotFired   = errors.New("no fired dose occurrence to act on")
)

// Store is the narrow slice of medication persistence the scheduler
// needs. Reads may be eventually consistent; the scheduler tolerates a
// stale read by retrying on the next tick.
type Store interface {
	ListReminderEnabled(ctx context.Context) ([]*medication.Medication, error)
	UpdateNextDoseTime(ctx context.Context, id uuid.UUID, next time.Time) error
}

// LogStore appends immutable dose-event rows.
type LogStore interface {
	Append(ctx context.Context, e *doselog.Entry) error
}

// Notifier presents a due dose to the user. A returned error means the
// delivery channel was unavailable; the occurrence stays fired and
// delivery is retried on the next poll tick.
type Notifier interface {
	Notify(ctx context.Context, med *medication.Medication) error
}

// Metrics receives scheduler counters. Implemented by pkg/metrics.
type Metrics interface {
	ReminderFired()
	ReminderDeliveryFailed()
	DoseLogged(status string)
	MedicationQuarantined()
}

type Options struct {
	PollInterval   time.Duration
	Tolerance      time.Duration
	UpcomingWindow time.Duration
	// GracePeriod zero means a fired occurrence waits indefinitely for
	// the user; positive auto-resolves it as missed after that long.
	GracePeriod time.Duration
	SnoozeDelay time.Duration
	// Clock is overridable for tests.
	Clock func() time.Time
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Minute
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.UpcomingWindow <= 0 {
		o.UpcomingWindow = DefaultUpcomingWindow
	}
	if o.SnoozeDelay <= 0 {
		o.SnoozeDelay = 10 * time.Minute
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

type entryState int

const (
	stateArmed entryState = iota
	stateFired
)

// entry is the per-medication state machine. Its mutex is the
// single-flight guard: no transition for a medication may be re-entered
// while a prior one is in progress.
type entry struct {
	mu sync.Mutex

	med        *medication.Medication
	state      entryState
	occurrence time.Time // the due timestamp this entry is armed for
	delivered  bool      // notification delivered for the current occurrence
	firedAt    time.Time
	snooze     *time.Timer
}

// Scheduler drives per-medication dose reminders off a single poll loop.
// All timer state lives in this struct so teardown is a matter of
// cancelling the context and dropping the value; nothing leaks at
// package scope.
type Scheduler struct {
	store    Store
	logs     LogStore
	notifier Notifier
	metrics  Metrics
	log      *zap.Logger
	opts     Options

	mu          sync.Mutex
	entries     map[uuid.UUID]*entry
	quarantined map[uuid.UUID]string

	notifyCh chan struct{}
}

func New(store Store, logs LogStore, notifier Notifier, m Metrics, log *zap.Logger, opts Options) *Scheduler {
	opts.withDefaults()
	return &Scheduler{
		store:       store,
		logs:        logs,
		notifier:    notifier,
		metrics:     m,
		log:         log,
		opts:        opts,
		entries:     make(map[uuid.UUID]*entry),
		quarantined: make(map[uuid.UUID]string),
		notifyCh:    make(chan struct{}, 1),
	}
}

// Kick triggers an immediate poll. Non-blocking if one is already
// pending; callers use it after mutating medication state so the next
// evaluation does not wait a full interval.
func (s *Scheduler) Kick() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs the poll loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("reminder scheduler started",
		zap.Duration("poll_interval", s.opts.PollInterval),
		zap.Duration("tolerance", s.opts.Tolerance),
	)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			s.log.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		case <-s.notifyCh:
			s.poll(ctx)
		}
	}
}

// poll refreshes the tracked set from storage and evaluates every entry.
// A storage read failure is transient: nothing is evaluated against
// stale assumptions and the next tick retries.
func (s *Scheduler) poll(ctx context.Context) {
	meds, err := s.store.ListReminderEnabled(ctx)
	if err != nil {
		s.log.Warn("reminder poll: listing medications failed, retrying next tick", zap.Error(err))
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(meds))
	for _, med := range meds {
		seen[med.ID] = struct{}{}
		s.Track(med)
	}

	// Drop entries whose medication is gone or no longer reminder-enabled.
	s.mu.Lock()
	for id := range s.entries {
		if _, ok := seen[id]; !ok {
			s.removeLocked(id)
		}
	}
	s.mu.Unlock()

	for _, med := range meds {
		s.evaluate(ctx, med.ID)
	}
}

// Track upserts a medication into the tracked set. Safe to call from the
// CRUD path; an already-tracked medication has its snapshot refreshed and
// is re-armed if its due timestamp moved externally.
func (s *Scheduler) Track(med *medication.Medication) {
	if !med.RemindersOn() {
		s.Cancel(med.ID)
		return
	}

	s.mu.Lock()
	if reason, bad := s.quarantined[med.ID]; bad {
		s.mu.Unlock()
		s.log.Debug("ignoring quarantined medication", zap.String("id", med.ID.String()), zap.String("reason", reason))
		return
	}
	if med.NextDoseTime == nil {
		s.quarantined[med.ID] = "missing next dose time"
		s.removeLocked(med.ID)
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.MedicationQuarantined()
		}
		s.log.Error("medication excluded from reminders: no next dose time",
			zap.String("id", med.ID.String()),
			zap.String("name", med.Name),
		)
		return
	}

	e, ok := s.entries[med.ID]
	if !ok {
		e = &entry{med: med, state: stateArmed, occurrence: *med.NextDoseTime}
		s.entries[med.ID] = e
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.med = med
	// A moved due timestamp means the occurrence we were armed (or fired)
	// for was superseded, e.g. the dose was logged through the HTTP path.
	if !e.occurrence.Equal(*med.NextDoseTime) {
		e.rearm(*med.NextDoseTime)
	}
	e.mu.Unlock()
}

// Cancel synchronously stops tracking a medication. Any in-progress
// transition completes first; after Cancel returns no further
// notification for it can fire.
func (s *Scheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		s.removeLocked(id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	// Wait out any transition in flight so the caller observes a quiet
	// state machine once we return.
	e.mu.Lock()
	e.stopSnoozeLocked()
	e.mu.Unlock()
}

// removeLocked expects s.mu held.
func (s *Scheduler) removeLocked(id uuid.UUID) {
	if e, ok := s.entries[id]; ok {
		if e.snooze != nil {
			e.snooze.Stop()
		}
		delete(s.entries, id)
	}
}

func (s *Scheduler) lookup(id uuid.UUID) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

// evaluate runs one tick of the state machine for a single medication.
// TryLock keeps overlapping poll ticks from re-entering a transition
// that is already in progress for the same id.
func (s *Scheduler) evaluate(ctx context.Context, id uuid.UUID) {
	e := s.lookup(id)
	if e == nil {
		return
	}
	if !e.mu.TryLock() {
		return
	}
	defer e.mu.Unlock()

	now := s.opts.Clock()

	switch e.state {
	case stateArmed:
		switch Classify(now, e.occurrence, s.opts.Tolerance, s.opts.UpcomingWindow) {
		case DueNow, Overdue:
			e.state = stateFired
			e.firedAt = now
			if s.metrics != nil {
				s.metrics.ReminderFired()
			}
			s.deliverLocked(ctx, e)
		}
	case stateFired:
		if !e.delivered {
			s.deliverLocked(ctx, e)
		}
		if s.opts.GracePeriod > 0 && now.Sub(e.firedAt) >= s.opts.GracePeriod {
			if err := s.resolveLocked(ctx, e, doselog.StatusMissed, "", now); err != nil {
				s.log.Warn("auto-missing dose failed, will retry",
					zap.String("medication_id", e.med.ID.String()), zap.Error(err))
			}
		}
	}
}

// deliverLocked attempts notification delivery for the current fired
// occurrence. Exactly one successful delivery happens per occurrence; a
// failure leaves delivered false so the next tick retries.
func (s *Scheduler) deliverLocked(ctx context.Context, e *entry) {
	if e.delivered {
		return
	}
	if err := s.notifier.Notify(ctx, e.med); err != nil {
		if s.metrics != nil {
			s.metrics.ReminderDeliveryFailed()
		}
		s.log.Warn("reminder delivery failed, keeping occurrence fired",
			zap.String("medication_id", e.med.ID.String()),
			zap.String("medication", e.med.Name),
			zap.Error(err),
		)
		return
	}
	e.delivered = true
	s.log.Info("reminder delivered",
		zap.String("medication_id", e.med.ID.String()),
		zap.String("medication", e.med.Name),
		zap.Time("due", e.occurrence),
	)
}

// Acknowledge records the user's response to a fired occurrence and
// advances the medication to its next due timestamp. The log row is
// written first; if persisting the advanced timestamp fails the entry
// stays fired so the user is re-prompted instead of losing the dose.
func (s *Scheduler) Acknowledge(ctx context.Context, id uuid.UUID, status doselog.Status, notes string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid dose status %q", status)
	}

	e := s.lookup(id)
	if e == nil {
		return ErrNotTracked
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateFired {
		return ErrNotFired
	}
	return s.resolveLocked(ctx, e, status, notes, s.opts.Clock())
}

// resolveLocked writes the dose log, computes the next occurrence
// anchored at the previous due timestamp (keeping cadence independent of
// when the user acknowledged), persists it, and re-arms. Expects e.mu
// held.
func (s *Scheduler) resolveLocked(ctx context.Context, e *entry, status doselog.Status, notes string, now time.Time) error {
	logEntry := &doselog.Entry{
		UserID:        e.med.UserID,
		MedicationID:  e.med.ID,
		Status:        status,
		ScheduledTime: e.occurrence,
		Notes:         notes,
	}
	if status == doselog.StatusTaken {
		logEntry.TakenTime = &now
	}
	if err := s.logs.Append(ctx, logEntry); err != nil {
		return fmt.Errorf("appending dose log: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DoseLogged(string(status))
	}

	next := medication.NextDose(e.med.Frequency, e.occurrence, e.med.DoseTime)
	if err := s.store.UpdateNextDoseTime(ctx, e.med.ID, next); err != nil {
		// Stay fired; re-prompting beats silently dropping a dose.
		return fmt.Errorf("persisting next dose time: %w", err)
	}

	e.med.NextDoseTime = &next
	e.rearm(next)

	s.log.Info("dose resolved",
		zap.String("medication_id", e.med.ID.String()),
		zap.String("status", string(status)),
		zap.Time("next_due", next),
	)
	return nil
}

// Snooze re-arms a short one-shot redelivery for a fired occurrence
// without touching the medication's next dose time.
func (s *Scheduler) Snooze(id uuid.UUID) error {
	e := s.lookup(id)
	if e == nil {
		return ErrNotTracked
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateFired {
		return ErrNotFired
	}

	e.stopSnoozeLocked()
	e.delivered = true // suppress the poll-loop retry until the snooze elapses
	e.snooze = time.AfterFunc(s.opts.SnoozeDelay, func() {
		s.redeliver(id)
	})
	return nil
}

// redeliver is the snooze callback. Looking the entry up again means a
// Cancel between arming and firing makes this a no-op.
func (s *Scheduler) redeliver(id uuid.UUID) {
	e := s.lookup(id)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateFired {
		return
	}
	e.delivered = false

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.deliverLocked(ctx, e)
}

// TrackedCount reports how many medications are currently armed or
// fired. Used by the health endpoint.
func (s *Scheduler) TrackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.entries {
		s.removeLocked(id)
	}
}

func (e *entry) rearm(next time.Time) {
	e.state = stateArmed
	e.occurrence = next
	e.delivered = false
	e.firedAt = time.Time{}
	e.stopSnoozeLocked()
}

func (e *entry) stopSnoozeLocked() {
	if e.snooze != nil {
		e.snooze.Stop()
		e.snooze = nil
	}
}
