package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"medical-booking-server/internal/models"
)

// UserFilter narrows ListUsers.
type UserFilter struct {
	Role   models.Role
	Search string
}

// CreateUser inserts a user. A taken email is ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

// FindUser loads a user by id.
func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindUserByEmail loads a user by email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// SaveUser updates the user row without touching its associations.
func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Omit("RefreshTokens", "PatientAppointments", "Notifications").Save(u).Error)
}

// EmailTaken reports whether an account uses email.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	return exists(s.conn(ctx).Model(&models.User{}).Where("email = ?", email))
}

// CPFTaken reports whether an account has the given CPF hash.
func (s *Store) CPFTaken(ctx context.Context, cpfHash string) (bool, error) {
	return exists(s.conn(ctx).Model(&models.User{}).Where("cpf_hash = ?", cpfHash))
}

// ListUsers returns one page of users, newest first, and the total match count.
func (s *Store) ListUsers(ctx context.Context, f UserFilter, page Page) ([]models.User, int64, error) {
	q := s.conn(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := page.scope(q.Order("created_at desc")).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// DeleteUser removes the user with their tokens and notifications. Users
// still referenced by appointments or a doctor profile return ErrInUse.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("delete refresh tokens: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		return translate(tx.Delete(&u).Error)
	})
}

// CreateRefreshToken stores a newly issued refresh token.
func (s *Store) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return translate(s.conn(ctx).Create(t).Error)
}

// FindActiveRefreshToken looks up an unrevoked, unexpired token.
func (s *Store) FindActiveRefreshToken(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.conn(ctx).
		Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, now).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// RevokeRefreshToken marks token as revoked; unknown tokens are ignored.
func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	return s.conn(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Update("is_revoked", true).Error
}

// RevokeUserTokens revokes every active refresh token of a user.
func (s *Store) RevokeUserTokens(ctx context.Context, userID string) error {
	return s.conn(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
}

// RotateRefreshToken revokes old and stores next in one transaction.
func (s *Store) RotateRefreshToken(ctx context.Context, old, next *models.RefreshToken) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND is_revoked = ?", old.ID, false).
			Update("is_revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		old.IsRevoked = true
		return translate(tx.Create(next).Error)
	})
}
