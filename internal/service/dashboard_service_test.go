package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain/appointment"
	"github.com/asclep-health/asclep/internal/domain/doselog"
)

type fakeAppointmentRepo struct {
	next *appointment.Appointment
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	r.next = a
	return nil
}

func (r *fakeAppointmentRepo) ListByUser(context.Context, uuid.UUID) ([]*appointment.Appointment, error) {
	if r.next == nil {
		return nil, nil
	}
	return []*appointment.Appointment{r.next}, nil
}

func (r *fakeAppointmentRepo) NextAfter(context.Context, uuid.UUID, time.Time) (*appointment.Appointment, error) {
	return r.next, nil
}

func TestDashboardStats(t *testing.T) {
	userID := uuid.New()
	meds := newFakeMedRepo()
	meds.dueToday = 3
	meds.lowSupply = 1

	logs := &fakeLogRepo{}
	recent := time.Now().Add(-24 * time.Hour)
	for i, status := range []doselog.Status{
		doselog.StatusTaken, doselog.StatusTaken, doselog.StatusTaken, doselog.StatusMissed,
	} {
		logs.entries = append(logs.entries, &doselog.Entry{
			UserID:        userID,
			MedicationID:  uuid.New(),
			Status:        status,
			ScheduledTime: recent.Add(time.Duration(i) * time.Hour),
		})
	}

	appt := &fakeAppointmentRepo{next: &appointment.Appointment{
		UserID: userID,
		Date:   time.Now().AddDate(0, 0, 3),
	}}

	svc := NewDashboardService(meds, logs, appt, zap.NewNop())
	stats, err := svc.Stats(context.Background(), userID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.DosesDueToday != 3 {
		t.Errorf("doses due today = %d, want 3", stats.DosesDueToday)
	}
	if stats.LowSupplyCount != 1 {
		t.Errorf("low supply count = %d, want 1", stats.LowSupplyCount)
	}
	if stats.AdherenceRate != 75 {
		t.Errorf("adherence rate = %d, want 75", stats.AdherenceRate)
	}
	if stats.NextAppointment == nil {
		t.Error("next appointment missing from stats")
	}
}

func TestDashboardStatsEmpty(t *testing.T) {
	svc := NewDashboardService(newFakeMedRepo(), &fakeLogRepo{}, &fakeAppointmentRepo{}, zap.NewNop())
	stats, err := svc.Stats(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	// No dose history yet reads as full adherence, not zero.
	if stats.AdherenceRate != 100 {
		t.Errorf("adherence rate with no history = %d, want 100", stats.AdherenceRate)
	}
	if stats.NextAppointment != nil {
		t.Errorf("unexpected appointment: %+v", stats.NextAppointment)
	}
}
