package repository

import (
	"context"

	"medical-booking-server/internal/models"
)

// ListSpecialties returns specialties by name; activeOnly hides disabled ones.
func (s *Store) ListSpecialties(ctx context.Context, activeOnly bool) ([]models.Specialty, error) {
	q := s.conn(ctx).Order("name asc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []models.Specialty
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindSpecialty loads a specialty by id.
func (s *Store) FindSpecialty(ctx context.Context, id string) (*models.Specialty, error) {
	var sp models.Specialty
	if err := s.conn(ctx).First(&sp, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &sp, nil
}

// CreateSpecialty inserts a specialty. A duplicate slug is ErrDuplicate.
func (s *Store) CreateSpecialty(ctx context.Context, sp *models.Specialty) error {
	return translate(s.conn(ctx).Create(sp).Error)
}

// SaveSpecialty updates a specialty.
func (s *Store) SaveSpecialty(ctx context.Context, sp *models.Specialty) error {
	return translate(s.conn(ctx).Save(sp).Error)
}

// DeleteSpecialty fails with ErrInUse while doctors reference it.
func (s *Store) DeleteSpecialty(ctx context.Context, id string) error {
	used, err := exists(s.conn(ctx).Model(&models.Doctor{}).Where("specialty_id = ?", id))
	if err != nil {
		return err
	}
	if used {
		return ErrInUse
	}
	res := s.conn(ctx).Delete(&models.Specialty{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
