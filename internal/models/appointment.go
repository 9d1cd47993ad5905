package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// DateLayout is the wire and column format of appointment dates.
const DateLayout = "2006-01-02"

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OccupyingStatuses hold a slot; cancelled appointments free it.
var OccupyingStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusNoShow}

// Appointment represents a booked slot.
//
// SlotLock is true while the appointment holds its slot and NULL once
// cancelled, so the unique index on (doctor, date, time, slot_lock) only
// rejects a second live booking of the same slot.
type Appointment struct {
	BaseModel
	PatientID    string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID     string            `gorm:"size:36;not null;uniqueIndex:idx_appointment_slot" json:"doctorId"`
	Date         time.Time         `gorm:"type:date;not null;uniqueIndex:idx_appointment_slot" json:"-"`
	Time         string            `gorm:"size:5;not null;uniqueIndex:idx_appointment_slot" json:"time"`
	SlotLock     *bool             `gorm:"uniqueIndex:idx_appointment_slot" json:"-"`
	Duration     int               `gorm:"not null;default:30" json:"duration"`
	Status       AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Reason       string            `gorm:"size:255" json:"reason"`
	CancelReason string            `gorm:"size:255" json:"cancelReason,omitempty"`
	CancelledBy  *string           `gorm:"size:36" json:"cancelledBy,omitempty"`

	// Relations
	Patient User   `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  Doctor `gorm:"foreignKey:DoctorID" json:"-"`
}

// DateString returns the appointment date as YYYY-MM-DD.
func (a *Appointment) DateString() string {
	return a.Date.Format(DateLayout)
}

// StartsAt combines date and time in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" 15:04", a.DateString()+" "+a.Time, loc)
}

// Lock marks the appointment as holding its slot.
func (a *Appointment) Lock() {
	held := true
	a.SlotLock = &held
}

// Release frees the slot for new bookings.
func (a *Appointment) Release() {
	a.SlotLock = nil
}

// AppointmentView is the API representation of an appointment.
type AppointmentView struct {
	ID           string            `json:"id"`
	PatientID    string            `json:"patientId"`
	PatientName  string            `json:"patientName,omitempty"`
	DoctorID     string            `json:"doctorId"`
	DoctorName   string            `json:"doctorName,omitempty"`
	Specialty    string            `json:"specialty,omitempty"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	Duration     int               `json:"duration"`
	Status       AppointmentStatus `json:"status"`
	Reason       string            `json:"reason"`
	CancelReason string            `json:"cancelReason,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// View flattens the appointment; relations are used when preloaded.
func (a *Appointment) View() AppointmentView {
	return AppointmentView{
		ID:           a.ID,
		PatientID:    a.PatientID,
		PatientName:  a.Patient.FullName(),
		DoctorID:     a.DoctorID,
		DoctorName:   a.Doctor.User.FullName(),
		Specialty:    a.Doctor.Specialty.Name,
		Date:         a.DateString(),
		Time:         a.Time,
		Duration:     a.Duration,
		Status:       a.Status,
		Reason:       a.Reason,
		CancelReason: a.CancelReason,
		CreatedAt:    a.CreatedAt,
	}
}
