package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"medical-booking-server/internal/models"
)

type groupRow struct {
	Name  string
	Count int64
}

func countBy(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []groupRow
	err := db.Model(model).
		Select(column + " AS name, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Count
	}
	return out, nil
}

// CountUsersByRole counts users per role.
func (s *Store) CountUsersByRole(ctx context.Context) (map[string]int64, error) {
	return countBy(s.conn(ctx), &models.User{}, "role")
}

// CountDoctorsByStatus counts doctors per application status.
func (s *Store) CountDoctorsByStatus(ctx context.Context) (map[string]int64, error) {
	return countBy(s.conn(ctx), &models.Doctor{}, "status")
}

// CountAppointmentsByStatus counts appointments per status.
func (s *Store) CountAppointmentsByStatus(ctx context.Context) (map[string]int64, error) {
	return countBy(s.conn(ctx), &models.Appointment{}, "status")
}

// AppointmentsBySpecialty counts appointments per specialty name, largest first.
func (s *Store) AppointmentsBySpecialty(ctx context.Context) ([]models.NamedCount, error) {
	var out []models.NamedCount
	err := s.conn(ctx).Model(&models.Appointment{}).
		Select("specialties.name AS name, COUNT(appointments.id) AS count").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Joins("JOIN specialties ON specialties.id = doctors.specialty_id").
		Group("specialties.name").
		Order("count desc").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AppointmentsPerDay counts appointments by date within [from, to]; days without any are omitted.
func (s *Store) AppointmentsPerDay(ctx context.Context, from, to time.Time) ([]models.NamedCount, error) {
	var rows []struct {
		Day   time.Time
		Count int64
	}
	err := s.conn(ctx).Model(&models.Appointment{}).
		Select("date AS day, COUNT(*) AS count").
		Where("date BETWEEN ? AND ?", from.Format(models.DateLayout), to.Format(models.DateLayout)).
		Group("date").
		Order("date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.NamedCount, len(rows))
	for i, r := range rows {
		out[i] = models.NamedCount{Name: r.Day.Format(models.DateLayout), Count: r.Count}
	}
	return out, nil
}
