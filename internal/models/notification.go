package models

import (
	"time"
)

// NotificationKind categorises a notification for the client.
type NotificationKind string

const (
	NotifyAppointment   NotificationKind = "appointment"
	NotifyApplication   NotificationKind = "application"
	NotifyPasswordReset NotificationKind = "password_reset"
)

// Notification is an in-app message for a user; every email sent is mirrored here.
type Notification struct {
	BaseModel
	UserID  string           `gorm:"size:36;index;not null" json:"userId"`
	Kind    NotificationKind `gorm:"size:30" json:"kind"`
	Subject string           `gorm:"size:255" json:"subject"`
	Body    string           `gorm:"type:text" json:"body"`
	Emailed bool             `gorm:"default:false" json:"emailed"`
	ReadAt  *time.Time       `json:"readAt,omitempty"`
}
