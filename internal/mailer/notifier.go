package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medical-booking-server/internal/models"
)

// Recipient identifies who receives a notification.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// Message is the content of a notification.
type Message struct {
	Kind    models.NotificationKind
	Subject string
	Body    string
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkEmailed(ctx context.Context, id string) error
}

// Notifier stores every notification and emails a copy.
type Notifier struct {
	store  NotificationStore
	sender Sender
	logger *zap.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(store NotificationStore, sender Sender, logger *zap.Logger) *Notifier {
	return &Notifier{store: store, sender: sender, logger: logger}
}

// Notify stores the notification; a failed email is logged but not returned.
func (n *Notifier) Notify(ctx context.Context, to Recipient, msg Message) error {
	note := models.Notification{
		UserID:  to.UserID,
		Kind:    msg.Kind,
		Subject: msg.Subject,
		Body:    msg.Body,
	}
	if err := n.store.CreateNotification(ctx, &note); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if to.Email == "" {
		return nil
	}

	html, err := Render(to.Name, msg)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	if err := n.sender.Send(to.Email, msg.Subject, html); err != nil {
		n.logger.Warn("email delivery failed",
			zap.String("user_id", to.UserID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err))
		return nil
	}
	if err := n.store.MarkEmailed(ctx, note.ID); err != nil {
		n.logger.Warn("mark notification emailed", zap.String("notification_id", note.ID), zap.Error(err))
	}
	return nil
}
