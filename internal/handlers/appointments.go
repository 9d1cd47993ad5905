package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Booking      Booking
	Appointments AppointmentReader
	Doctors      DoctorDirectory
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(booking Booking, appointments AppointmentReader, doctors DoctorDirectory) *AppointmentHandler {
	return &AppointmentHandler{Booking: booking, Appointments: appointments, Doctors: doctors}
}

// BookAppointmentRequest represents the request body for booking a slot.
type BookAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required,uuid"`
	Date     string `json:"date" binding:"required,date"`
	Time     string `json:"time" binding:"required,clock"`
	Reason   string `json:"reason" binding:"max=500"`
}

// BookAppointment books a free slot for the authenticated patient.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	patientID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	date, err := services.ParseDate(req.Date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	appointment, err := h.Booking.Book(c.Request.Context(), services.BookingRequest{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Date:      date,
		Time:      req.Time,
		Reason:    req.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appointment.View())
}

// AppointmentListQuery filters appointment listings.
type AppointmentListQuery struct {
	ListQuery
	Status    string `form:"status" binding:"omitempty,oneof=pending confirmed completed cancelled no_show"`
	From      string `form:"from" binding:"omitempty,date"`
	To        string `form:"to" binding:"omitempty,date"`
	PatientID string `form:"patientId" binding:"omitempty,uuid"`
	DoctorID  string `form:"doctorId" binding:"omitempty,uuid"`
}

// ListAppointments lists the caller's appointments: a patient's own, a
// doctor's own, or any for admins (optionally by patient or doctor).
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var q AppointmentListQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()

	filter := repository.AppointmentFilter{Status: models.AppointmentStatus(q.Status)}
	var err error
	if filter.From, err = parseOptionalDate(q.From); err != nil {
		utils.RespondError(c, err)
		return
	}
	if filter.To, err = parseOptionalDate(q.To); err != nil {
		utils.RespondError(c, err)
		return
	}

	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.UserID
	case models.RoleDoctor:
		doctor, err := h.Doctors.FindDoctorByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Forbidden(c, "No doctor profile for this account")
				return
			}
			utils.RespondError(c, err)
			return
		}
		filter.DoctorID = doctor.ID
	case models.RoleAdmin:
		filter.PatientID = q.PatientID
		filter.DoctorID = q.DoctorID
	default:
		utils.Forbidden(c, "You do not have permission to access this resource.")
		return
	}

	list, total, err := h.Appointments.ListAppointments(ctx, filter, q.page())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Paginated(c, "Appointments fetched successfully", appointmentViews(list), q.meta(total))
}

// GetAppointment returns one appointment to its patient, its doctor or an admin.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	appointment, err := h.Appointments.FindAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	allowed, err := canView(c.Request.Context(), h.Doctors, actor, appointment)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !allowed {
		utils.Forbidden(c, "You do not have permission to view this appointment.")
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment.View())
}

// StatusChangeRequest carries an optional reason for the change.
type StatusChangeRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelAppointment cancels an appointment and frees its slot.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	h.transition(c, models.StatusCancelled, "Appointment cancelled successfully")
}

// ConfirmAppointment confirms a pending appointment.
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	h.transition(c, models.StatusConfirmed, "Appointment confirmed successfully")
}

// CompleteAppointment marks a confirmed appointment as held.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	h.transition(c, models.StatusCompleted, "Appointment completed successfully")
}

// MarkNoShow records that the patient did not attend.
func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	h.transition(c, models.StatusNoShow, "Appointment marked as no-show")
}

func (h *AppointmentHandler) transition(c *gin.Context, to models.AppointmentStatus, message string) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req StatusChangeRequest
	if !utils.BindOptional(c, &req) {
		return
	}

	appointment, err := h.Booking.Transition(c.Request.Context(), actor, c.Param("id"), to, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, message, appointment.View())
}

// RescheduleRequest names the new slot.
type RescheduleRequest struct {
	Date string `json:"date" binding:"required,date"`
	Time string `json:"time" binding:"required,clock"`
}

// RescheduleAppointment moves an appointment to another free slot of the same doctor.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	date, err := services.ParseDate(req.Date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	appointment, err := h.Booking.Reschedule(c.Request.Context(), actor, c.Param("id"), date, req.Time)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", appointment.View())
}

// canView reports whether actor takes part in appointment or is an admin.
func canView(ctx context.Context, doctors DoctorDirectory, actor services.Actor, appointment *models.Appointment) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RolePatient:
		return appointment.PatientID == actor.UserID, nil
	case models.RoleDoctor:
		doctor, err := doctors.FindDoctorByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return doctor.ID == appointment.DoctorID, nil
	}
	return false, nil
}
