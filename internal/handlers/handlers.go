// Package handlers holds the gin handlers of the REST API.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/middleware"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

// UserStore is the account persistence used by auth and user management.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	EmailTaken(ctx context.Context, email string) (bool, error)
	CPFTaken(ctx context.Context, cpfHash string) (bool, error)
	ListUsers(ctx context.Context, f repository.UserFilter, page repository.Page) ([]models.User, int64, error)
	DeleteUser(ctx context.Context, id string) error
}

// TokenStore persists refresh tokens.
type TokenStore interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	FindActiveRefreshToken(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RotateRefreshToken(ctx context.Context, old, next *models.RefreshToken) error
}

// Applications is the doctor onboarding workflow.
type Applications interface {
	Apply(ctx context.Context, in services.ApplicationInput, files []services.UploadedFile) (*models.Doctor, error)
	Resubmit(ctx context.Context, userID string, files []services.UploadedFile) (*models.Doctor, error)
	ReviewDocument(ctx context.Context, adminID, documentID string, approve bool, note string) (*models.DoctorDocument, error)
	Approve(ctx context.Context, adminID, doctorID string) (*models.Doctor, error)
	Reject(ctx context.Context, adminID, doctorID, reason string) (*models.Doctor, error)
}

// PasswordResetter issues and redeems password reset codes.
type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	Reset(ctx context.Context, email, code, newPassword string) error
}

// DoctorDirectory reads doctor profiles.
type DoctorDirectory interface {
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	FindDoctorByUser(ctx context.Context, userID string) (*models.Doctor, error)
	ListDoctors(ctx context.Context, f repository.DoctorFilter, page repository.Page) ([]models.Doctor, int64, error)
}

// SpecialtyStore persists specialties.
type SpecialtyStore interface {
	ListSpecialties(ctx context.Context, activeOnly bool) ([]models.Specialty, error)
	FindSpecialty(ctx context.Context, id string) (*models.Specialty, error)
	CreateSpecialty(ctx context.Context, sp *models.Specialty) error
	SaveSpecialty(ctx context.Context, sp *models.Specialty) error
	DeleteSpecialty(ctx context.Context, id string) error
}

// ScheduleStore persists the schedules of a doctor.
type ScheduleStore interface {
	ListSchedules(ctx context.Context, doctorID string) ([]models.Schedule, error)
	FindSchedule(ctx context.Context, doctorID, id string) (*models.Schedule, error)
	CreateSchedule(ctx context.Context, sc *models.Schedule) error
	SaveSchedule(ctx context.Context, sc *models.Schedule) error
	DeleteSchedule(ctx context.Context, doctorID, id string) error
}

// Availability computes free slots.
type Availability interface {
	Availability(ctx context.Context, doctorID string, date time.Time) (*services.DayAvailability, error)
	AvailableDays(ctx context.Context, doctorID string, from time.Time, days int) ([]services.DaySummary, error)
}

// Booking changes appointments.
type Booking interface {
	Book(ctx context.Context, req services.BookingRequest) (*models.Appointment, error)
	Transition(ctx context.Context, actor services.Actor, appointmentID string, to models.AppointmentStatus, reason string) (*models.Appointment, error)
	Reschedule(ctx context.Context, actor services.Actor, appointmentID string, date time.Time, clock string) (*models.Appointment, error)
}

// AppointmentReader reads appointments.
type AppointmentReader interface {
	FindAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, f repository.AppointmentFilter, page repository.Page) ([]models.Appointment, int64, error)
}

// RecordStore persists consultation records.
type RecordStore interface {
	CreateRecord(ctx context.Context, r *models.ConsultationRecord) error
	FindRecord(ctx context.Context, id string) (*models.ConsultationRecord, error)
	SaveRecord(ctx context.Context, r *models.ConsultationRecord) error
	ListRecords(ctx context.Context, patientID, doctorID string) ([]models.ConsultationRecord, error)
}

// NotificationStore reads and acknowledges in-app notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page repository.Page) ([]models.Notification, int64, error)
	MarkNotificationRead(ctx context.Context, userID, id string, now time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID string, now time.Time) (int64, error)
}

// StatsProvider builds the admin dashboard numbers.
type StatsProvider interface {
	Overview(ctx context.Context, days int) (*models.Stats, error)
}

// ListQuery is the paging part of list endpoints.
type ListQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q ListQuery) page() repository.Page {
	return repository.Page{Number: q.Page, Size: q.Limit}
}

func (q ListQuery) meta(total int64) utils.PageMeta {
	meta := utils.PageMeta{Page: q.Page, Limit: q.Limit, Total: total}
	if meta.Page < 1 {
		meta.Page = 1
	}
	if meta.Limit < 1 {
		meta.Limit = repository.DefaultPageSize
	}
	return meta
}

// currentUserID writes a 401 when the request carries no authenticated user.
func currentUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return userID, ok
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role not found in token")
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Role: role}, true
}

// currentDoctor returns the profile loaded by ApprovedDoctorMiddleware.
func currentDoctor(c *gin.Context) (*models.Doctor, bool) {
	doctor, ok := middleware.GetDoctorFromContext(c)
	if !ok {
		utils.Forbidden(c, "Doctor profile not loaded")
	}
	return doctor, ok
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := services.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func appointmentViews(list []models.Appointment) []models.AppointmentView {
	out := make([]models.AppointmentView, len(list))
	for i := range list {
		out[i] = list[i].View()
	}
	return out
}
