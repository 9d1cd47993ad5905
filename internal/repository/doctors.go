package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medical-booking-server/internal/models"
)

// DoctorFilter narrows ListDoctors. Empty fields match everything.
type DoctorFilter struct {
	Status        models.DoctorStatus
	SpecialtyID   string
	SpecialtySlug string
	Name          string
}

func preloadDoctor(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Specialty").
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") })
}

// FindDoctor loads a doctor with its user and documents.
func (s *Store) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	if err := preloadDoctor(s.conn(ctx)).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// FindDoctorByUser loads the doctor profile of a user account.
func (s *Store) FindDoctorByUser(ctx context.Context, userID string) (*models.Doctor, error) {
	var d models.Doctor
	if err := preloadDoctor(s.conn(ctx)).Where("user_id = ?", userID).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// ListDoctors returns one page of doctors ordered by name, and the total count.
func (s *Store) ListDoctors(ctx context.Context, f DoctorFilter, page Page) ([]models.Doctor, int64, error) {
	q := s.conn(ctx).Model(&models.Doctor{}).
		Joins("JOIN users ON users.id = doctors.user_id").
		Joins("JOIN specialties ON specialties.id = doctors.specialty_id")
	if f.Status != "" {
		q = q.Where("doctors.status = ?", f.Status)
	}
	if f.SpecialtyID != "" {
		q = q.Where("doctors.specialty_id = ?", f.SpecialtyID)
	}
	if f.SpecialtySlug != "" {
		q = q.Where("specialties.slug = ?", f.SpecialtySlug)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		like := "%" + strings.ToLower(name) + "%"
		q = q.Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var doctors []models.Doctor
	err := page.scope(q.Preload("User").Preload("Specialty").Order("users.first_name asc, users.last_name asc")).
		Find(&doctors).Error
	if err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

// CRMTaken reports whether a CRM number is registered in the given state.
func (s *Store) CRMTaken(ctx context.Context, crm, state string) (bool, error) {
	return exists(s.conn(ctx).Model(&models.Doctor{}).Where("crm = ? AND crm_state = ?", crm, state))
}

// CreateApplication inserts the user, the doctor profile and its documents atomically.
func (s *Store) CreateApplication(ctx context.Context, user *models.User, doctor *models.Doctor, docs []models.DoctorDocument) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return translate(err)
		}
		doctor.UserID = user.ID
		if err := tx.Omit(clause.Associations).Create(doctor).Error; err != nil {
			return translate(err)
		}
		if len(docs) == 0 {
			return nil
		}
		for i := range docs {
			docs[i].DoctorID = doctor.ID
		}
		if err := tx.Create(&docs).Error; err != nil {
			return fmt.Errorf("create documents: %w", translate(err))
		}
		return nil
	})
}

// SaveApplication updates the doctor and upserts docs atomically.
func (s *Store) SaveApplication(ctx context.Context, doctor *models.Doctor, docs []models.DoctorDocument) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(doctor).Error; err != nil {
			return translate(err)
		}
		for i := range docs {
			docs[i].DoctorID = doctor.ID
			if err := tx.Save(&docs[i]).Error; err != nil {
				return fmt.Errorf("save document: %w", translate(err))
			}
		}
		return nil
	})
}

// SaveDoctor updates profile columns only.
func (s *Store) SaveDoctor(ctx context.Context, doctor *models.Doctor) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(doctor).Error)
}

// FindDocument loads one verification document.
func (s *Store) FindDocument(ctx context.Context, id string) (*models.DoctorDocument, error) {
	var d models.DoctorDocument
	if err := s.conn(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// FindDocumentByPublicID looks a document up by the name it was stored under.
func (s *Store) FindDocumentByPublicID(ctx context.Context, publicID string) (*models.DoctorDocument, error) {
	var d models.DoctorDocument
	if err := s.conn(ctx).First(&d, "public_id = ?", publicID).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// SaveDocument stores a document review.
func (s *Store) SaveDocument(ctx context.Context, doc *models.DoctorDocument) error {
	return translate(s.conn(ctx).Save(doc).Error)
}
