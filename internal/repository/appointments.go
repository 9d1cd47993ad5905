package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medical-booking-server/internal/models"
)

// AppointmentFilter narrows ListAppointments.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
	From      *time.Time
	To        *time.Time
}

func preloadAppointment(db *gorm.DB) *gorm.DB {
	return db.Preload("Patient").Preload("Doctor.User").Preload("Doctor.Specialty")
}

// OccupiedBetween returns appointments holding a slot with from <= date <= to.
func (s *Store) OccupiedBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	err := s.conn(ctx).
		Where("doctor_id = ? AND date BETWEEN ? AND ? AND status IN ?",
			doctorID, from.Format(models.DateLayout), to.Format(models.DateLayout), models.OccupyingStatuses).
		Order("date asc, time asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAppointment inserts a; a live booking of the same slot yields ErrDuplicate.
func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(a).Error)
}

// FindAppointment loads an appointment with its patient and doctor.
func (s *Store) FindAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := preloadAppointment(s.conn(ctx)).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// SaveAppointment updates appointment columns only.
func (s *Store) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(a).Error)
}

// ListAppointments returns one page ordered by date and time, and the total count.
func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter, page Page) ([]models.Appointment, int64, error) {
	q := s.conn(ctx).Model(&models.Appointment{})
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("date >= ?", f.From.Format(models.DateLayout))
	}
	if f.To != nil {
		q = q.Where("date <= ?", f.To.Format(models.DateLayout))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Appointment
	if err := page.scope(preloadAppointment(q).Order("date asc, time asc")).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
