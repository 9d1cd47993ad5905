package models

import (
	"time"
)

// Schedule is a window of availability: weekly when DayOfWeek is set, or a
// single day when SpecificDate is set. Exactly one of the two is present.
type Schedule struct {
	BaseModel
	DoctorID     string     `gorm:"size:36;index;not null" json:"doctorId"`
	DayOfWeek    *int       `json:"dayOfWeek,omitempty"` // 0 = Sunday
	SpecificDate *time.Time `gorm:"type:date;index" json:"specificDate,omitempty"`
	StartTime    string     `gorm:"size:5;not null" json:"startTime"` // HH:MM
	EndTime      string     `gorm:"size:5;not null" json:"endTime"`   // HH:MM
	SlotDuration int        `gorm:"not null;default:30" json:"slotDuration"`
	Active       bool       `gorm:"default:true" json:"active"`
}

// IsWeekly reports whether the schedule repeats every week.
func (s *Schedule) IsWeekly() bool {
	return s.DayOfWeek != nil && s.SpecificDate == nil
}
