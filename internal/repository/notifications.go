package repository

import (
	"context"
	"time"

	"medical-booking-server/internal/models"
)

// CreateNotification inserts an in-app notification.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.conn(ctx).Create(n).Error)
}

// MarkEmailed flags a notification whose email was delivered.
func (s *Store) MarkEmailed(ctx context.Context, id string) error {
	return s.conn(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("emailed", true).Error
}

// ListNotifications returns a user's notifications, newest first, and how many are unread.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	var unread int64
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&unread).Error
	if err != nil {
		return nil, 0, err
	}

	q := s.conn(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []models.Notification
	if err := page.scope(q.Order("created_at desc")).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, unread, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string, now time.Time) error {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user and reports how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}
