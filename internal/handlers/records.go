package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/reports"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

// RecordHandler handles consultation record requests.
type RecordHandler struct {
	Records      RecordStore
	Appointments AppointmentReader
	Doctors      DoctorDirectory
	now          func() time.Time
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(records RecordStore, appointments AppointmentReader, doctors DoctorDirectory) *RecordHandler {
	return &RecordHandler{Records: records, Appointments: appointments, Doctors: doctors, now: time.Now}
}

// RecordView is a consultation record with the names of both parties.
type RecordView struct {
	models.ConsultationRecord
	PatientName     string `json:"patientName"`
	DoctorName      string `json:"doctorName"`
	Specialty       string `json:"specialty"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
}

func recordView(r *models.ConsultationRecord) RecordView {
	return RecordView{
		ConsultationRecord: *r,
		PatientName:        r.Patient.FullName(),
		DoctorName:         r.Doctor.User.FullName(),
		Specialty:          r.Doctor.Specialty.Name,
		AppointmentDate:    r.Appointment.DateString(),
		AppointmentTime:    r.Appointment.Time,
	}
}

// RecordRequest is the clinical content a doctor writes.
type RecordRequest struct {
	ChiefComplaint string `json:"chiefComplaint" binding:"required,max=5000"`
	Diagnosis      string `json:"diagnosis" binding:"required,max=5000"`
	Prescription   string `json:"prescription" binding:"max=5000"`
	Notes          string `json:"notes" binding:"max=10000"`
	FollowUpDate   string `json:"followUpDate" binding:"omitempty,date"`
}

// CreateRecordRequest attaches a record to an appointment.
type CreateRecordRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
	RecordRequest
}

// CreateRecord writes the record of one of the doctor's appointments.
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	var req CreateRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	appointment, err := h.Appointments.FindAppointment(ctx, req.AppointmentID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if appointment.DoctorID != doctor.ID {
		utils.Forbidden(c, "This appointment belongs to another doctor.")
		return
	}
	if appointment.Status != models.StatusConfirmed && appointment.Status != models.StatusCompleted {
		utils.RespondError(c, fmt.Errorf("%s appointment cannot have a record: %w", appointment.Status, services.ErrInvalidTransition))
		return
	}

	record := models.ConsultationRecord{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		DoctorID:      doctor.ID,
	}
	if err := applyRecord(&record, req.RecordRequest, appointment); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Records.CreateRecord(ctx, &record); err != nil {
		utils.RespondError(c, err)
		return
	}

	full, err := h.Records.FindRecord(ctx, record.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Consultation record created successfully", recordView(full))
}

// UpdateRecord edits a record written by the doctor.
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	var req RecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	record, err := h.Records.FindRecord(ctx, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if record.DoctorID != doctor.ID {
		utils.Forbidden(c, "Only the doctor who wrote this record can change it.")
		return
	}
	if err := applyRecord(record, req, &record.Appointment); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Records.SaveRecord(ctx, record); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Consultation record updated successfully", recordView(record))
}

// RecordListQuery lets admins narrow the listing.
type RecordListQuery struct {
	PatientID string `form:"patientId" binding:"omitempty,uuid"`
	DoctorID  string `form:"doctorId" binding:"omitempty,uuid"`
}

// ListRecords lists a patient's own records, a doctor's written records, or
// for admins the records of one patient or doctor.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var q RecordListQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()

	var patientID, doctorID string
	switch actor.Role {
	case models.RolePatient:
		patientID = actor.UserID
	case models.RoleDoctor:
		doctor, err := h.Doctors.FindDoctorByUser(ctx, actor.UserID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		doctorID = doctor.ID
		patientID = q.PatientID
	case models.RoleAdmin:
		if q.PatientID == "" && q.DoctorID == "" {
			utils.BadRequest(c, "patientId or doctorId is required")
			return
		}
		patientID, doctorID = q.PatientID, q.DoctorID
	}

	list, err := h.Records.ListRecords(ctx, patientID, doctorID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	out := make([]RecordView, len(list))
	for i := range list {
		out[i] = recordView(&list[i])
	}
	utils.Success(c, "Consultation records fetched successfully", out)
}

// GetRecord returns a record to its patient, its doctor or an admin.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	record, ok := h.visibleRecord(c)
	if !ok {
		return
	}
	utils.Success(c, "Consultation record fetched successfully", recordView(record))
}

// DownloadRecordPDF renders the record as a PDF attachment.
func (h *RecordHandler) DownloadRecordPDF(c *gin.Context) {
	record, ok := h.visibleRecord(c)
	if !ok {
		return
	}
	body, err := reports.ConsultationPDF(record, h.now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	filename := fmt.Sprintf("consultation-%s.pdf", record.Appointment.DateString())
	utils.File(c, filename, "application/pdf", body)
}

func (h *RecordHandler) visibleRecord(c *gin.Context) (*models.ConsultationRecord, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return nil, false
	}
	record, err := h.Records.FindRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}

	allowed := false
	switch actor.Role {
	case models.RoleAdmin:
		allowed = true
	case models.RolePatient:
		allowed = record.PatientID == actor.UserID
	case models.RoleDoctor:
		allowed = record.Doctor.UserID == actor.UserID
	}
	if !allowed {
		utils.Forbidden(c, "You do not have permission to view this record.")
		return nil, false
	}
	return record, true
}

func applyRecord(r *models.ConsultationRecord, req RecordRequest, appointment *models.Appointment) error {
	followUp, err := parseOptionalDate(req.FollowUpDate)
	if err != nil {
		return err
	}
	if followUp != nil && !followUp.After(appointment.Date) {
		return fmt.Errorf("%w: followUpDate must be after the appointment date", services.ErrValidation)
	}
	r.ChiefComplaint = req.ChiefComplaint
	r.Diagnosis = req.Diagnosis
	r.Prescription = req.Prescription
	r.Notes = req.Notes
	r.FollowUpDate = followUp
	return nil
}
