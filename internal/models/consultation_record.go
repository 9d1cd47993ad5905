package models

import (
	"time"
)

// ConsultationRecord is the doctor's note for an attended appointment.
type ConsultationRecord struct {
	BaseModel
	AppointmentID  string     `gorm:"uniqueIndex;size:36;not null" json:"appointmentId"`
	PatientID      string     `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID       string     `gorm:"size:36;index;not null" json:"doctorId"`
	ChiefComplaint string     `gorm:"type:text" json:"chiefComplaint"`
	Diagnosis      string     `gorm:"type:text" json:"diagnosis"`
	Prescription   string     `gorm:"type:text" json:"prescription,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	FollowUpDate   *time.Time `gorm:"type:date" json:"followUpDate,omitempty"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
	Patient     User        `gorm:"foreignKey:PatientID" json:"-"`
	Doctor      Doctor      `gorm:"foreignKey:DoctorID" json:"-"`
}
