package models

import (
	"time"
)

// DoctorStatus is the state of a doctor's application.
type DoctorStatus string

const (
	DoctorPending  DoctorStatus = "pending"
	DoctorApproved DoctorStatus = "approved"
	DoctorRejected DoctorStatus = "rejected"
)

// Specialty groups doctors for browsing.
type Specialty struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;size:120;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Active      bool   `gorm:"default:true" json:"active"`
}

// Doctor is the professional profile attached 1:1 to a user with the doctor role.
type Doctor struct {
	BaseModel
	UserID            string       `gorm:"uniqueIndex;size:36;not null" json:"userId"`
	CRM               string       `gorm:"size:10;not null;uniqueIndex:idx_doctor_crm" json:"crm"`
	CRMState          string       `gorm:"size:2;not null;uniqueIndex:idx_doctor_crm" json:"crmState"`
	SpecialtyID       string       `gorm:"size:36;index" json:"specialtyId"`
	Bio               string       `gorm:"type:text" json:"bio,omitempty"`
	ConsultationPrice int64        `gorm:"default:0" json:"consultationPrice"` // cents
	Status            DoctorStatus `gorm:"size:20;default:'pending';index" json:"status"`
	RejectionReason   string       `gorm:"type:text" json:"rejectionReason,omitempty"`
	ReviewedBy        *string      `gorm:"size:36" json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time   `json:"reviewedAt,omitempty"`

	// Relations
	User      User             `gorm:"foreignKey:UserID" json:"user"`
	Specialty Specialty        `gorm:"foreignKey:SpecialtyID" json:"specialty"`
	Documents []DoctorDocument `gorm:"foreignKey:DoctorID" json:"documents,omitempty"`
	Schedules []Schedule       `gorm:"foreignKey:DoctorID" json:"-"`
}

// IsApproved reports whether the doctor may be listed and booked.
func (d *Doctor) IsApproved() bool {
	return d.Status == DoctorApproved
}

// DoctorPublic is the listing view of an approved doctor.
type DoctorPublic struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CRM               string `json:"crm"`
	CRMState          string `json:"crmState"`
	Specialty         string `json:"specialty"`
	SpecialtySlug     string `json:"specialtySlug"`
	Bio               string `json:"bio,omitempty"`
	ConsultationPrice int64  `json:"consultationPrice"`
}

// Public builds the listing view; User and Specialty must be preloaded.
func (d *Doctor) Public() DoctorPublic {
	return DoctorPublic{
		ID:                d.ID,
		Name:              d.User.FullName(),
		CRM:               d.CRM,
		CRMState:          d.CRMState,
		Specialty:         d.Specialty.Name,
		SpecialtySlug:     d.Specialty.Slug,
		Bio:               d.Bio,
		ConsultationPrice: d.ConsultationPrice,
	}
}
