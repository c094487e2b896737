package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/internal/domain/doselog"
	"github.com/asclep-health/asclep/internal/domain/medication"
	"github.com/asclep-health/asclep/internal/schedule"
	"github.com/asclep-health/asclep/pkg/metrics"
)

// ReminderTracker is the slice of the reminder scheduler the medication
// service drives. CRUD mutations keep the tracked set in sync through it.
type ReminderTracker interface {
	Track(med *medication.Medication)
	Cancel(id uuid.UUID)
	Kick()
	Acknowledge(ctx context.Context, id uuid.UUID, status doselog.Status, notes string) error
	Snooze(id uuid.UUID) error
}

type MedicationService struct {
	repo           medication.Repository
	logs           doselog.Repository
	tracker        ReminderTracker
	activity       *ActivityService
	metrics        *metrics.Collector
	log            *zap.Logger
	upcomingWindow time.Duration
}

func NewMedicationService(
	repo medication.Repository,
	logs doselog.Repository,
	tracker ReminderTracker,
	activity *ActivityService,
	m *metrics.Collector,
	log *zap.Logger,
	upcomingWindow time.Duration,
) *MedicationService {
	if upcomingWindow <= 0 {
		upcomingWindow = schedule.DefaultUpcomingWindow
	}
	return &MedicationService{
		repo:           repo,
		logs:           logs,
		tracker:        tracker,
		activity:       activity,
		metrics:        m,
		log:            log,
		upcomingWindow: upcomingWindow,
	}
}

func (s *MedicationService) Create(ctx context.Context, cmd *medication.CreateMedicationCommand) (*medication.Medication, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	now := time.Now()
	med := &medication.Medication{
		UserID:          cmd.UserID,
		Name:            strings.TrimSpace(cmd.Name),
		Dosage:          strings.TrimSpace(cmd.Dosage),
		Frequency:       cmd.Frequency,
		DoseTime:        cmd.DoseTime,
		StartDate:       cmd.StartDate,
		EndDate:         cmd.EndDate,
		Status:          medication.StatusActive,
		ReminderEnabled: cmd.ReminderEnabled,
		RemainingPills:  cmd.RemainingPills,
		Notes:           cmd.Notes,
	}

	// The next-due timestamp is computed once here and only ever advanced
	// by dose-taken events afterwards.
	if cmd.Frequency != medication.FreqAsNeeded {
		first := initialNextDose(cmd, now)
		med.NextDoseTime = &first
	}

	if err := s.repo.Create(ctx, med); err != nil {
		return nil, fmt.Errorf("creating medication: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MedicationsCreatedTotal.Inc()
	}
	s.recordActivity(med, domain.ActivityMedicationAdded, fmt.Sprintf("Added %s (%s)", med.Name, med.Dosage))

	if med.RemindersOn() {
		s.tracker.Track(med)
		s.tracker.Kick()
	}

	s.log.Info("medication created",
		zap.String("medication_id", med.ID.String()),
		zap.String("user_id", med.UserID.String()),
		zap.String("frequency", string(med.Frequency)),
	)
	return med, nil
}

// initialNextDose places the first due timestamp at the medication's dose
// time on the start day (or today, if the course already started), rolling
// forward when that moment has already passed.
func initialNextDose(cmd *medication.CreateMedicationCommand, now time.Time) time.Time {
	base := cmd.StartDate
	if now.After(base) {
		base = now
	}
	first := cmd.DoseTime.On(base)
	if !first.After(base) {
		first = medication.NextDose(cmd.Frequency, base, cmd.DoseTime)
	}
	return first
}

func validateCreate(cmd *medication.CreateMedicationCommand) error {
	var fields []string
	if strings.TrimSpace(cmd.Name) == "" {
		fields = append(fields, "name is required")
	}
	if strings.TrimSpace(cmd.Dosage) == "" {
		fields = append(fields, "dosage is required")
	}
	if !cmd.Frequency.IsValid() {
		fields = append(fields, fmt.Sprintf("unknown frequency %q", cmd.Frequency))
	}
	if cmd.StartDate.IsZero() {
		fields = append(fields, "start date is required")
	}
	if cmd.EndDate != nil && cmd.EndDate.Before(cmd.StartDate) {
		fields = append(fields, "end date must be after start date")
	}
	if cmd.RemainingPills < 0 {
		fields = append(fields, "remaining pills cannot be negative")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Get returns the medication only to its owner. A mismatched owner gets
// not-found rather than forbidden so record existence is not leaked.
func (s *MedicationService) Get(ctx context.Context, id, userID uuid.UUID) (*medication.Medication, error) {
	med, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if med.UserID != userID {
		return nil, medication.ErrMedicationNotFound
	}
	return med, nil
}

func (s *MedicationService) List(ctx context.Context, q *medication.ListMedicationsQuery) (*medication.PagedMedications, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	return s.repo.List(ctx, q)
}

func (s *MedicationService) Update(ctx context.Context, id, userID uuid.UUID, cmd *medication.UpdateMedicationCommand) (*medication.Medication, error) {
	med, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	rescheduled := false

	if cmd.Name != nil {
		if strings.TrimSpace(*cmd.Name) == "" {
			return nil, &ValidationError{Fields: []string{"name cannot be empty"}}
		}
		med.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Dosage != nil {
		med.Dosage = strings.TrimSpace(*cmd.Dosage)
	}
	if cmd.Frequency != nil {
		if !cmd.Frequency.IsValid() {
			return nil, &ValidationError{Fields: []string{fmt.Sprintf("unknown frequency %q", *cmd.Frequency)}}
		}
		if *cmd.Frequency != med.Frequency {
			med.Frequency = *cmd.Frequency
			rescheduled = true
		}
	}
	if cmd.DoseTime != nil && *cmd.DoseTime != med.DoseTime {
		med.DoseTime = *cmd.DoseTime
		rescheduled = true
	}
	if cmd.EndDate != nil {
		med.EndDate = cmd.EndDate
	}
	if cmd.RemainingPills != nil {
		if *cmd.RemainingPills < 0 {
			return nil, &ValidationError{Fields: []string{"remaining pills cannot be negative"}}
		}
		med.RemainingPills = *cmd.RemainingPills
	}
	if cmd.Notes != nil {
		med.Notes = *cmd.Notes
	}
	if cmd.Status != nil {
		if !cmd.Status.IsValid() {
			return nil, medication.ErrInvalidStatus
		}
		med.Status = *cmd.Status
	}
	if cmd.ReminderEnabled != nil {
		med.ReminderEnabled = *cmd.ReminderEnabled
	}

	// A changed cadence or clock time restarts the schedule from now; the
	// old due timestamp belongs to the old regimen.
	if rescheduled && med.Frequency != medication.FreqAsNeeded {
		now := time.Now()
		next := med.DoseTime.On(now)
		if !next.After(now) {
			next = medication.NextDose(med.Frequency, now, med.DoseTime)
		}
		med.NextDoseTime = &next
	}

	if err := s.repo.Update(ctx, med); err != nil {
		return nil, fmt.Errorf("updating medication: %w", err)
	}

	s.recordActivity(med, domain.ActivityMedicationUpdated, fmt.Sprintf("Updated %s", med.Name))

	// Track handles both directions: it re-arms when reminders stay on and
	// cancels when the update turned them off.
	s.tracker.Track(med)
	s.tracker.Kick()

	return med, nil
}

// Delete cancels reminder tracking before the row disappears so no
// notification can fire for a deleted medication.
func (s *MedicationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	med, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	s.tracker.Cancel(med.ID)

	if err := s.repo.Delete(ctx, med.ID); err != nil {
		return fmt.Errorf("deleting medication: %w", err)
	}

	s.log.Info("medication deleted",
		zap.String("medication_id", med.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// MarkTaken records a taken dose and advances the schedule. When the
// scheduler has a fired occurrence for this medication the transition
// goes through it (exactly-once semantics); otherwise the dose is logged
// directly against the stored due timestamp.
func (s *MedicationService) MarkTaken(ctx context.Context, id, userID uuid.UUID, notes string) (*medication.Medication, error) {
	return s.resolveDose(ctx, id, userID, doselog.StatusTaken, notes)
}

// MarkSkipped advances the schedule without counting the dose as taken.
func (s *MedicationService) MarkSkipped(ctx context.Context, id, userID uuid.UUID, notes string) (*medication.Medication, error) {
	return s.resolveDose(ctx, id, userID, doselog.StatusSkipped, notes)
}

func (s *MedicationService) resolveDose(ctx context.Context, id, userID uuid.UUID, status doselog.Status, notes string) (*medication.Medication, error) {
	med, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !med.IsActive() {
		return nil, medication.ErrNotActive
	}

	err = s.tracker.Acknowledge(ctx, med.ID, status, notes)
	switch {
	case err == nil:
		// Scheduler wrote the log and advanced the due timestamp.
	case errors.Is(err, schedule.ErrNotTracked), errors.Is(err, schedule.ErrNotFired):
		if err := s.resolveDirect(ctx, med, status, notes); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if status == doselog.StatusTaken && med.RemainingPills > 0 {
		if err := s.repo.DecrementRemainingPills(ctx, med.ID); err != nil {
			s.log.Warn("failed to decrement remaining pills",
				zap.String("medication_id", med.ID.String()), zap.Error(err))
		}
	}

	if status == doselog.StatusTaken {
		s.recordActivity(med, domain.ActivityMedicationTaken, fmt.Sprintf("Took %s (%s)", med.Name, med.Dosage))
	}

	// Re-read so the caller sees the advanced due timestamp and pill count.
	updated, err := s.repo.GetByID(ctx, med.ID)
	if err != nil {
		return med, nil
	}
	s.tracker.Track(updated)
	return updated, nil
}

// resolveDirect handles the HTTP path when no reminder has fired: the dose
// is logged against the stored due timestamp, which then advances anchored
// at itself so the cadence stays fixed to the dose-time grid.
func (s *MedicationService) resolveDirect(ctx context.Context, med *medication.Medication, status doselog.Status, notes string) error {
	now := time.Now()
	scheduled := now
	if med.NextDoseTime != nil {
		scheduled = *med.NextDoseTime
	}

	entry := &doselog.Entry{
		UserID:        med.UserID,
		MedicationID:  med.ID,
		Status:        status,
		ScheduledTime: scheduled,
		Notes:         notes,
	}
	if status == doselog.StatusTaken {
		entry.TakenTime = &now
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return fmt.Errorf("appending dose log: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DoseLogged(string(status))
	}

	if med.NextDoseTime != nil && med.Frequency != medication.FreqAsNeeded {
		next := medication.NextDose(med.Frequency, *med.NextDoseTime, med.DoseTime)
		if err := s.repo.UpdateNextDoseTime(ctx, med.ID, next); err != nil {
			return fmt.Errorf("persisting next dose time: %w", err)
		}
		med.NextDoseTime = &next
	}
	return nil
}

// LogDose appends a historical dose record without touching the schedule.
func (s *MedicationService) LogDose(ctx context.Context, id, userID uuid.UUID, status doselog.Status, scheduledTime time.Time, notes string) (*doselog.Entry, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("unknown dose status %q", status)}}
	}

	med, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	entry := &doselog.Entry{
		UserID:        userID,
		MedicationID:  med.ID,
		Status:        status,
		ScheduledTime: scheduledTime,
		Notes:         notes,
	}
	if status == doselog.StatusTaken {
		now := time.Now()
		entry.TakenTime = &now
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending dose log: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DoseLogged(string(status))
	}
	return entry, nil
}

func (s *MedicationService) History(ctx context.Context, q *doselog.ListEntriesQuery) (*doselog.PagedEntries, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	return s.logs.List(ctx, q)
}

// Snooze defers the current fired reminder without advancing the schedule.
func (s *MedicationService) Snooze(ctx context.Context, id, userID uuid.UUID) error {
	med, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.tracker.Snooze(med.ID)
}

// Upcoming returns medications due within the window, soonest first.
// A non-positive window falls back to the configured advance-notice window.
func (s *MedicationService) Upcoming(ctx context.Context, userID uuid.UUID, window time.Duration) ([]*medication.Medication, error) {
	if window <= 0 {
		window = s.upcomingWindow
	}
	now := time.Now()
	return s.repo.DueBetween(ctx, userID, now, now.Add(window))
}

// ScheduledDose is one projected occurrence on the week view.
type ScheduledDose struct {
	Medication *medication.Medication `json:"medication"`
	DueAt      time.Time              `json:"due_at"`
}

// WeekSchedule projects each active medication's occurrences across the
// next seven days. Only the next due timestamp is stored; later
// occurrences are derived on the fly and never persisted.
func (s *MedicationService) WeekSchedule(ctx context.Context, userID uuid.UUID) ([]ScheduledDose, error) {
	status := medication.StatusActive
	page, err := s.repo.List(ctx, &medication.ListMedicationsQuery{
		UserID:   userID,
		Status:   &status,
		Page:     1,
		PageSize: 100,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	horizon := now.AddDate(0, 0, 7)

	var out []ScheduledDose
	for _, med := range page.Medications {
		if med.NextDoseTime == nil || med.Frequency == medication.FreqAsNeeded {
			continue
		}
		due := *med.NextDoseTime
		// Cap the projection; four-daily over a week is 28 occurrences.
		for i := 0; i < 64 && due.Before(horizon); i++ {
			if !due.Before(now) {
				out = append(out, ScheduledDose{Medication: med, DueAt: due})
			}
			due = medication.NextDose(med.Frequency, due, med.DoseTime)
		}
	}
	return out, nil
}

func (s *MedicationService) recordActivity(med *medication.Medication, typ domain.ActivityType, desc string) {
	if s.activity == nil {
		return
	}
	medID := med.ID
	s.activity.Record(&domain.Activity{
		UserID:       med.UserID,
		Type:         typ,
		Description:  desc,
		MedicationID: &medID,
	})
}
