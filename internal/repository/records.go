package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medical-booking-server/internal/models"
)

func preloadRecord(db *gorm.DB) *gorm.DB {
	return db.Preload("Appointment").Preload("Patient").Preload("Doctor.User").Preload("Doctor.Specialty")
}

// CreateRecord inserts a consultation record; a second record for the same appointment yields ErrDuplicate.
func (s *Store) CreateRecord(ctx context.Context, r *models.ConsultationRecord) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(r).Error)
}

// FindRecord loads a record with its appointment and participants.
func (s *Store) FindRecord(ctx context.Context, id string) (*models.ConsultationRecord, error) {
	var r models.ConsultationRecord
	if err := preloadRecord(s.conn(ctx)).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// SaveRecord updates record columns only.
func (s *Store) SaveRecord(ctx context.Context, r *models.ConsultationRecord) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(r).Error)
}

// ListRecords returns the records of a patient or of a doctor, newest first.
func (s *Store) ListRecords(ctx context.Context, patientID, doctorID string) ([]models.ConsultationRecord, error) {
	q := preloadRecord(s.conn(ctx))
	if patientID != "" {
		q = q.Where("patient_id = ?", patientID)
	}
	if doctorID != "" {
		q = q.Where("doctor_id = ?", doctorID)
	}
	var out []models.ConsultationRecord
	if err := q.Order("created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
