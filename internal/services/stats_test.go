package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-booking-server/internal/models"
)

func TestStatsOverview(t *testing.T) {
	store := newMemStore()
	store.stats = statsFixture{
		users:        map[string]int64{"patient": 40, "doctor": 6},
		doctors:      map[string]int64{"approved": 4, "pending": 2},
		appointments: map[string]int64{"completed": 9, "no_show": 3, "pending": 5, "cancelled": 2},
		bySpecialty:  []models.NamedCount{{Name: "Cardiology", Count: 12}, {Name: "Dermatology", Count: 7}},
		perDay:       []models.NamedCount{{Name: "2026-03-07", Count: 4}, {Name: "2026-03-09", Count: 1}},
	}
	svc := NewStatsService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC) }

	stats, err := svc.Overview(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.UsersByRole["admin"])
	assert.Equal(t, int64(40), stats.UsersByRole["patient"])
	assert.Equal(t, int64(0), stats.DoctorsByStatus["rejected"])
	assert.Equal(t, int64(2), stats.PendingApplications)
	assert.Equal(t, int64(0), stats.AppointmentsByStatus["confirmed"])
	assert.Equal(t, int64(19), stats.TotalAppointments)
	assert.Equal(t, 75.0, stats.CompletionRatePercent)
	assert.Len(t, stats.AppointmentsBySpec, 2)

	assert.Equal(t, "2026-03-05", store.stats.perDayFrom.Format(models.DateLayout))
	assert.Equal(t, "2026-03-09", store.stats.perDayTo.Format(models.DateLayout))
	assert.Equal(t, []models.NamedCount{
		{Name: "2026-03-05", Count: 0},
		{Name: "2026-03-06", Count: 0},
		{Name: "2026-03-07", Count: 4},
		{Name: "2026-03-08", Count: 0},
		{Name: "2026-03-09", Count: 1},
	}, stats.AppointmentsPerDay)
}

func TestStatsOverview_Defaults(t *testing.T) {
	store := newMemStore()
	svc := NewStatsService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) }

	stats, err := svc.Overview(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, stats.AppointmentsPerDay, DefaultStatsDays)
	assert.NotNil(t, stats.AppointmentsBySpec)
	assert.Zero(t, stats.CompletionRatePercent)

	_, err = svc.Overview(context.Background(), 400)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 66.7, completionRate(map[string]int64{"completed": 2, "no_show": 1}))
	assert.Equal(t, 100.0, completionRate(map[string]int64{"completed": 2, "pending": 10}))
	assert.Equal(t, 0.0, completionRate(map[string]int64{"no_show": 4}))
}
