package services

import (
	"context"
	"io"
	"time"

	"medical-booking-server/internal/mailer"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/storage"
)

// DoctorStore is the persistence the doctor workflows need.
type DoctorStore interface {
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	FindDoctorByUser(ctx context.Context, userID string) (*models.Doctor, error)
	FindSpecialty(ctx context.Context, id string) (*models.Specialty, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	CPFTaken(ctx context.Context, cpfHash string) (bool, error)
	CRMTaken(ctx context.Context, crm, state string) (bool, error)
	// CreateApplication stores the user, doctor and documents atomically.
	CreateApplication(ctx context.Context, user *models.User, doctor *models.Doctor, docs []models.DoctorDocument) error
	// SaveApplication updates the doctor and upserts docs atomically.
	SaveApplication(ctx context.Context, doctor *models.Doctor, docs []models.DoctorDocument) error
	FindDocument(ctx context.Context, id string) (*models.DoctorDocument, error)
	SaveDocument(ctx context.Context, doc *models.DoctorDocument) error
}

// ScheduleStore reads the windows a doctor offers.
type ScheduleStore interface {
	ActiveSchedules(ctx context.Context, doctorID string) ([]models.Schedule, error)
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	// OccupiedBetween returns appointments holding a slot with from <= date <= to.
	OccupiedBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	FindAppointment(ctx context.Context, id string) (*models.Appointment, error)
	SaveAppointment(ctx context.Context, a *models.Appointment) error
}

// UserStore is used by the password reset flow.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	RevokeUserTokens(ctx context.Context, userID string) error
}

// StatsStore runs the aggregate queries behind the admin dashboard.
type StatsStore interface {
	CountUsersByRole(ctx context.Context) (map[string]int64, error)
	CountDoctorsByStatus(ctx context.Context) (map[string]int64, error)
	CountAppointmentsByStatus(ctx context.Context) (map[string]int64, error)
	AppointmentsBySpecialty(ctx context.Context) ([]models.NamedCount, error)
	AppointmentsPerDay(ctx context.Context, from, to time.Time) ([]models.NamedCount, error)
}

// Notifier records an in-app notification and emails it.
type Notifier interface {
	Notify(ctx context.Context, to mailer.Recipient, msg mailer.Message) error
}

// FileUploader stores verification documents outside the database.
type FileUploader interface {
	Upload(ctx context.Context, name string, content io.Reader) (*storage.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// Hasher computes blind indexes for encrypted fields.
type Hasher interface {
	BlindIndex(value string) string
}
