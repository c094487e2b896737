package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain/appointment"
	"github.com/asclep-health/asclep/internal/domain/doselog"
	"github.com/asclep-health/asclep/internal/domain/medication"
)

// adherenceWindow is how far back the dashboard adherence rate looks.
const adherenceWindow = 30 * 24 * time.Hour

type DashboardStats struct {
	DosesDueToday   int64                    `json:"doses_due_today"`
	LowSupplyCount  int64                    `json:"low_supply_count"`
	AdherenceRate   int                      `json:"adherence_rate"`
	NextAppointment *appointment.Appointment `json:"next_appointment,omitempty"`
}

type DashboardService struct {
	meds         medication.Repository
	logs         doselog.Repository
	appointments appointment.Repository
	log          *zap.Logger
}

func NewDashboardService(
	meds medication.Repository,
	logs doselog.Repository,
	appointments appointment.Repository,
	log *zap.Logger,
) *DashboardService {
	return &DashboardService{meds: meds, logs: logs, appointments: appointments, log: log}
}

// Stats assembles the dashboard summary. Each aggregate degrades
// independently; a failed count zeroes that card rather than failing the
// whole response.
func (s *DashboardService) Stats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	now := time.Now()
	stats := &DashboardStats{AdherenceRate: 100}

	due, err := s.meds.CountDueToday(ctx, userID, now)
	if err != nil {
		s.log.Warn("counting doses due today failed", zap.Error(err))
	} else {
		stats.DosesDueToday = due
	}

	low, err := s.meds.CountLowSupply(ctx, userID)
	if err != nil {
		s.log.Warn("counting low-supply medications failed", zap.Error(err))
	} else {
		stats.LowSupplyCount = low
	}

	taken, total, err := s.logs.CountSince(ctx, userID, now.Add(-adherenceWindow))
	if err != nil {
		s.log.Warn("counting adherence window failed", zap.Error(err))
	} else {
		stats.AdherenceRate = doselog.AdherenceRate(taken, total)
	}

	next, err := s.appointments.NextAfter(ctx, userID, now)
	if err != nil {
		s.log.Warn("loading next appointment failed", zap.Error(err))
	} else {
		stats.NextAppointment = next
	}

	return stats, nil
}
