package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medical-booking-server/internal/mailer"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/scheduling"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID string
	Role   models.Role
}

// BookingRequest is a patient's request for a slot.
type BookingRequest struct {
	PatientID string
	DoctorID  string
	Date      time.Time
	Time      string
	Reason    string
}

// BookingService books appointments and moves them through their lifecycle.
type BookingService struct {
	availability *AvailabilityService
	doctors      DoctorStore
	appointments AppointmentStore
	notifier     Notifier
	logger       *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

// NewBookingService creates the service.
func NewBookingService(availability *AvailabilityService, doctors DoctorStore, appointments AppointmentStore, notifier Notifier, logger *zap.Logger) *BookingService {
	return &BookingService{
		availability: availability,
		doctors:      doctors,
		appointments: appointments,
		notifier:     notifier,
		logger:       logger,
		loc:          time.Local,
		now:          time.Now,
	}
}

// Book reserves a free slot for the patient with status pending.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*models.Appointment, error) {
	start, err := scheduling.ParseClock(req.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	day, err := s.availability.Availability(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, err
	}
	slot, ok := scheduling.Find(day.Slots, start)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", day.Date, req.Time, ErrSlotUnavailable)
	}

	appointment := &models.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      CalendarDate(req.Date),
		Time:      slot.Start.String(),
		Duration:  int(slot.End - slot.Start),
		Status:    models.StatusPending,
		Reason:    req.Reason,
	}
	appointment.Lock()
	if err := s.appointments.CreateAppointment(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appointment.ID),
		zap.String("doctor_id", appointment.DoctorID),
		zap.String("date", appointment.DateString()),
		zap.String("time", appointment.Time))

	if full, err := s.appointments.FindAppointment(ctx, appointment.ID); err == nil {
		appointment = full
		s.notify(ctx, doctorRecipient(full), mailer.Message{
			Kind:    models.NotifyAppointment,
			Subject: "New appointment request",
			Body: fmt.Sprintf("%s requested an appointment on %s at %s.\n\nReason: %s",
				full.Patient.FullName(), full.DateString(), full.Time, orDash(full.Reason)),
		})
	}
	return appointment, nil
}

// Transition changes an appointment's status on behalf of actor.
func (s *BookingService) Transition(ctx context.Context, actor Actor, appointmentID string, to models.AppointmentStatus, reason string) (*models.Appointment, error) {
	appointment, err := s.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, appointment, to); err != nil {
		return nil, err
	}
	if !models.CanTransition(appointment.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", appointment.Status, to, ErrInvalidTransition)
	}
	if to == models.StatusCompleted || to == models.StatusNoShow {
		startsAt, err := appointment.StartsAt(s.loc)
		if err != nil {
			return nil, fmt.Errorf("appointment time: %w", err)
		}
		if s.now().Before(startsAt) {
			return nil, fmt.Errorf("appointment has not started yet: %w", ErrInvalidTransition)
		}
	}

	from := appointment.Status
	appointment.Status = to
	if to == models.StatusCancelled {
		appointment.Release()
		appointment.CancelReason = reason
		cancelledBy := actor.UserID
		appointment.CancelledBy = &cancelledBy
	}
	if err := s.appointments.SaveAppointment(ctx, appointment); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", appointment.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.UserID))

	msg := transitionMessage(appointment, to, reason)
	switch actor.Role {
	case models.RolePatient:
		s.notify(ctx, doctorRecipient(appointment), msg)
	case models.RoleDoctor:
		s.notify(ctx, patientRecipient(appointment), msg)
	default:
		s.notify(ctx, patientRecipient(appointment), msg)
		s.notify(ctx, doctorRecipient(appointment), msg)
	}
	return appointment, nil
}

// Reschedule books the new slot and then cancels the old appointment.
func (s *BookingService) Reschedule(ctx context.Context, actor Actor, appointmentID string, date time.Time, clock string) (*models.Appointment, error) {
	old, err := s.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, old, models.StatusCancelled); err != nil {
		return nil, err
	}
	if !models.CanTransition(old.Status, models.StatusCancelled) {
		return nil, fmt.Errorf("%s appointment cannot be rescheduled: %w", old.Status, ErrInvalidTransition)
	}

	next, err := s.Book(ctx, BookingRequest{
		PatientID: old.PatientID,
		DoctorID:  old.DoctorID,
		Date:      date,
		Time:      clock,
		Reason:    old.Reason,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.Transition(ctx, actor, old.ID, models.StatusCancelled, "rescheduled to "+next.DateString()+" "+next.Time); err != nil {
		next.Status = models.StatusCancelled
		next.Release()
		if rbErr := s.appointments.SaveAppointment(ctx, next); rbErr != nil {
			s.logger.Error("release rescheduled slot", zap.String("appointment_id", next.ID), zap.Error(rbErr))
		}
		return nil, err
	}
	return next, nil
}

// authorize checks that actor may move appointment to status to.
func (s *BookingService) authorize(ctx context.Context, actor Actor, appointment *models.Appointment, to models.AppointmentStatus) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatient:
		if appointment.PatientID != actor.UserID {
			return fmt.Errorf("appointment %s: %w", appointment.ID, ErrForbidden)
		}
		if to != models.StatusCancelled {
			return fmt.Errorf("patients may only cancel: %w", ErrForbidden)
		}
		return nil
	case models.RoleDoctor:
		doctor, err := s.doctors.FindDoctorByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no doctor profile: %w", ErrForbidden)
			}
			return fmt.Errorf("load doctor: %w", err)
		}
		if doctor.ID != appointment.DoctorID {
			return fmt.Errorf("appointment %s: %w", appointment.ID, ErrForbidden)
		}
		return nil
	}
	return ErrForbidden
}

func (s *BookingService) findAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.FindAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appointment, nil
}

func (s *BookingService) notify(ctx context.Context, to mailer.Recipient, msg mailer.Message) {
	if to.UserID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, to, msg); err != nil {
		s.logger.Warn("notification failed", zap.String("user_id", to.UserID), zap.Error(err))
	}
}

func transitionMessage(a *models.Appointment, to models.AppointmentStatus, reason string) mailer.Message {
	when := a.DateString() + " at " + a.Time
	var subject, body string
	switch to {
	case models.StatusConfirmed:
		subject = "Appointment confirmed"
		body = fmt.Sprintf("The appointment on %s was confirmed.", when)
	case models.StatusCancelled:
		subject = "Appointment cancelled"
		body = fmt.Sprintf("The appointment on %s was cancelled.\n\nReason: %s", when, orDash(reason))
	case models.StatusCompleted:
		subject = "Appointment completed"
		body = fmt.Sprintf("The appointment on %s was marked as completed.", when)
	case models.StatusNoShow:
		subject = "Missed appointment"
		body = fmt.Sprintf("The appointment on %s was marked as a no-show.", when)
	default:
		subject = "Appointment updated"
		body = fmt.Sprintf("The appointment on %s is now %s.", when, to)
	}
	return mailer.Message{Kind: models.NotifyAppointment, Subject: subject, Body: body}
}

func patientRecipient(a *models.Appointment) mailer.Recipient {
	return mailer.Recipient{UserID: a.Patient.ID, Email: a.Patient.Email, Name: a.Patient.FirstName}
}

func doctorRecipient(a *models.Appointment) mailer.Recipient {
	u := a.Doctor.User
	return mailer.Recipient{UserID: u.ID, Email: u.Email, Name: "Dr. " + u.FullName()}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
