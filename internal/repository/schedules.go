package repository

import (
	"context"

	"medical-booking-server/internal/models"
)

// ActiveSchedules returns the active schedules of a doctor ordered by start time.
func (s *Store) ActiveSchedules(ctx context.Context, doctorID string) ([]models.Schedule, error) {
	var out []models.Schedule
	err := s.conn(ctx).
		Where("doctor_id = ? AND active = ?", doctorID, true).
		Order("start_time asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListSchedules returns every schedule of a doctor, weekly ones first.
func (s *Store) ListSchedules(ctx context.Context, doctorID string) ([]models.Schedule, error) {
	var out []models.Schedule
	err := s.conn(ctx).
		Where("doctor_id = ?", doctorID).
		Order("specific_date asc, day_of_week asc, start_time asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindSchedule loads a schedule owned by doctorID.
func (s *Store) FindSchedule(ctx context.Context, doctorID, id string) (*models.Schedule, error) {
	var sc models.Schedule
	if err := s.conn(ctx).Where("id = ? AND doctor_id = ?", id, doctorID).First(&sc).Error; err != nil {
		return nil, translate(err)
	}
	return &sc, nil
}

// CreateSchedule inserts a schedule.
func (s *Store) CreateSchedule(ctx context.Context, sc *models.Schedule) error {
	return translate(s.conn(ctx).Create(sc).Error)
}

// SaveSchedule updates a schedule.
func (s *Store) SaveSchedule(ctx context.Context, sc *models.Schedule) error {
	return translate(s.conn(ctx).Save(sc).Error)
}

// DeleteSchedule removes a schedule owned by doctorID.
func (s *Store) DeleteSchedule(ctx context.Context, doctorID, id string) error {
	res := s.conn(ctx).Where("id = ? AND doctor_id = ?", id, doctorID).Delete(&models.Schedule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
