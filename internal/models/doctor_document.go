package models

import (
	"time"
)

// DocumentKind identifies what a verification file proves.
type DocumentKind string

const (
	DocumentCRMCard         DocumentKind = "crm_card"
	DocumentDiploma         DocumentKind = "diploma"
	DocumentIdentity        DocumentKind = "identity"
	DocumentSpecialistTitle DocumentKind = "specialist_title"
	DocumentOther           DocumentKind = "other"
)

// RequiredDocumentKinds must each have an approved document before a doctor is approved.
var RequiredDocumentKinds = []DocumentKind{DocumentCRMCard, DocumentDiploma, DocumentIdentity}

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentCRMCard, DocumentDiploma, DocumentIdentity, DocumentSpecialistTitle, DocumentOther:
		return true
	}
	return false
}

// DocumentStatus is the review state of a single document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// DoctorDocument is an uploaded verification file.
type DoctorDocument struct {
	BaseModel
	DoctorID     string         `gorm:"size:36;index;not null" json:"doctorId"`
	Kind         DocumentKind   `gorm:"size:30;not null" json:"kind"`
	FileURL      string         `gorm:"size:500;not null" json:"fileUrl"`
	PublicID     string         `gorm:"size:255" json:"-"`
	OriginalName string         `gorm:"size:255" json:"originalName"`
	MimeType     string         `gorm:"size:100" json:"mimeType"`
	Status       DocumentStatus `gorm:"size:20;default:'pending'" json:"status"`
	ReviewNote   string         `gorm:"type:text" json:"reviewNote,omitempty"`
	ReviewedBy   *string        `gorm:"size:36" json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time     `json:"reviewedAt,omitempty"`
}
