package models

// NamedCount is one row of a grouped count.
type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Stats is the admin dashboard overview.
type Stats struct {
	UsersByRole           map[string]int64 `json:"usersByRole"`
	DoctorsByStatus       map[string]int64 `json:"doctorsByStatus"`
	AppointmentsByStatus  map[string]int64 `json:"appointmentsByStatus"`
	AppointmentsBySpec    []NamedCount     `json:"appointmentsBySpecialty"`
	AppointmentsPerDay    []NamedCount     `json:"appointmentsPerDay"`
	PendingApplications   int64            `json:"pendingApplications"`
	TotalAppointments     int64            `json:"totalAppointments"`
	CompletionRatePercent float64          `json:"completionRatePercent"`
}
