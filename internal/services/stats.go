package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"medical-booking-server/internal/models"
)

// DefaultStatsDays is the window of the appointments-per-day series.
const DefaultStatsDays = 30

// StatsService builds the admin dashboard.
type StatsService struct {
	store StatsStore
	now   func() time.Time
}

// NewStatsService creates the service.
func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store, now: time.Now}
}

// Overview aggregates platform counts. days bounds the per-day series, ending today.
func (s *StatsService) Overview(ctx context.Context, days int) (*models.Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > 366 {
		return nil, fmt.Errorf("%w: days must be at most 366", ErrValidation)
	}

	users, err := s.store.CountUsersByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	doctors, err := s.store.CountDoctorsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	appointments, err := s.store.CountAppointmentsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	bySpecialty, err := s.store.AppointmentsBySpecialty(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments by specialty: %w", err)
	}

	to := CalendarDate(s.now())
	from := to.AddDate(0, 0, -(days - 1))
	perDay, err := s.store.AppointmentsPerDay(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments per day: %w", err)
	}

	stats := &models.Stats{
		UsersByRole:          fillKeys(users, string(models.RolePatient), string(models.RoleDoctor), string(models.RoleAdmin)),
		DoctorsByStatus:      fillKeys(doctors, string(models.DoctorPending), string(models.DoctorApproved), string(models.DoctorRejected)),
		AppointmentsByStatus: fillKeys(appointments, appointmentStatusKeys()...),
		AppointmentsBySpec:   bySpecialty,
		AppointmentsPerDay:   fillDays(perDay, from, to),
	}
	if stats.AppointmentsBySpec == nil {
		stats.AppointmentsBySpec = []models.NamedCount{}
	}
	stats.PendingApplications = stats.DoctorsByStatus[string(models.DoctorPending)]
	for _, n := range stats.AppointmentsByStatus {
		stats.TotalAppointments += n
	}
	stats.CompletionRatePercent = completionRate(stats.AppointmentsByStatus)
	return stats, nil
}

// completionRate is completed / (completed + no_show), rounded to one decimal.
func completionRate(byStatus map[string]int64) float64 {
	completed := byStatus[string(models.StatusCompleted)]
	attended := completed + byStatus[string(models.StatusNoShow)]
	if attended == 0 {
		return 0
	}
	return math.Round(float64(completed)*1000/float64(attended)) / 10
}

func appointmentStatusKeys() []string {
	return []string{
		string(models.StatusPending),
		string(models.StatusConfirmed),
		string(models.StatusCompleted),
		string(models.StatusCancelled),
		string(models.StatusNoShow),
	}
}

func fillKeys(counts map[string]int64, keys ...string) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		out[k] = 0
	}
	for k, v := range counts {
		out[k] = v
	}
	return out
}

// fillDays returns one entry per day in [from, to], zero when absent.
func fillDays(rows []models.NamedCount, from, to time.Time) []models.NamedCount {
	byDay := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDay[r.Name] = r.Count
	}
	var out []models.NamedCount
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(models.DateLayout)
		out = append(out, models.NamedCount{Name: key, Count: byDay[key]})
	}
	return out
}
