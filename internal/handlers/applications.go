package handlers

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

const maxDocumentSize = 10 << 20

var (
	documentKinds = []models.DocumentKind{
		models.DocumentCRMCard,
		models.DocumentDiploma,
		models.DocumentIdentity,
		models.DocumentSpecialistTitle,
		models.DocumentOther,
	}

	documentTypes = map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/png":       true,
	}
)

// ApplicationView is a doctor application as shown to its owner and to admins.
type ApplicationView struct {
	ID                string                  `json:"id"`
	Status            models.DoctorStatus     `json:"status"`
	RejectionReason   string                  `json:"rejectionReason,omitempty"`
	ReviewedAt        *time.Time              `json:"reviewedAt,omitempty"`
	CRM               string                  `json:"crm"`
	CRMState          string                  `json:"crmState"`
	SpecialtyID       string                  `json:"specialtyId"`
	Specialty         string                  `json:"specialty"`
	Bio               string                  `json:"bio,omitempty"`
	ConsultationPrice int64                   `json:"consultationPrice"`
	User              models.UserSanitized    `json:"user"`
	Documents         []models.DoctorDocument `json:"documents"`
	CreatedAt         time.Time               `json:"createdAt"`
}

func applicationView(d *models.Doctor) ApplicationView {
	docs := d.Documents
	if docs == nil {
		docs = []models.DoctorDocument{}
	}
	return ApplicationView{
		ID:                d.ID,
		Status:            d.Status,
		RejectionReason:   d.RejectionReason,
		ReviewedAt:        d.ReviewedAt,
		CRM:               d.CRM,
		CRMState:          d.CRMState,
		SpecialtyID:       d.SpecialtyID,
		Specialty:         d.Specialty.Name,
		Bio:               d.Bio,
		ConsultationPrice: d.ConsultationPrice,
		User:              d.User.Sanitize(),
		Documents:         docs,
		CreatedAt:         d.CreatedAt,
	}
}

// documentFiles opens the uploaded documents of a multipart request. Each
// kind is its own form field and may carry several files. The returned func
// closes every opened file.
func documentFiles(c *gin.Context) ([]services.UploadedFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, closeAll, fmt.Errorf("%w: multipart form with documents expected", services.ErrValidation)
	}

	var files []services.UploadedFile
	for _, kind := range documentKinds {
		for _, fh := range form.File[string(kind)] {
			if fh.Size > maxDocumentSize {
				closeAll()
				return nil, func() {}, fmt.Errorf("%w: %s exceeds %d MB", services.ErrValidation, fh.Filename, maxDocumentSize>>20)
			}
			mimeType := fh.Header.Get("Content-Type")
			if !documentTypes[mimeType] {
				closeAll()
				return nil, func() {}, fmt.Errorf("%w: %s must be a PDF, JPEG or PNG", services.ErrValidation, fh.Filename)
			}
			f, err := fh.Open()
			if err != nil {
				closeAll()
				return nil, func() {}, fmt.Errorf("open %s: %w", fh.Filename, err)
			}
			opened = append(opened, f)
			files = append(files, services.UploadedFile{
				Kind:     kind,
				Name:     filepath.Base(fh.Filename),
				MimeType: mimeType,
				Content:  f,
			})
		}
	}
	return files, closeAll, nil
}

// ApplicationHandler serves the review side of doctor onboarding.
type ApplicationHandler struct {
	Doctors      DoctorDirectory
	Applications Applications
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(doctors DoctorDirectory, applications Applications) *ApplicationHandler {
	return &ApplicationHandler{Doctors: doctors, Applications: applications}
}

// MyApplication returns the application of the authenticated doctor, in any status.
func (h *ApplicationHandler) MyApplication(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	doctor, err := h.Doctors.FindDoctorByUser(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Application fetched successfully", applicationView(doctor))
}

// Resubmit uploads new documents for a rejected application.
func (h *ApplicationHandler) Resubmit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	files, closeFiles, err := documentFiles(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer closeFiles()

	doctor, err := h.Applications.Resubmit(c.Request.Context(), userID, files)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Application resubmitted successfully", applicationView(doctor))
}

// ApplicationListQuery filters the admin application queue.
type ApplicationListQuery struct {
	ListQuery
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Name   string `form:"name" binding:"max=100"`
}

// ListApplications lists doctor applications, pending ones by default.
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	var q ApplicationListQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	if q.Status == "" {
		q.Status = string(models.DoctorPending)
	}

	doctors, total, err := h.Doctors.ListDoctors(c.Request.Context(), repository.DoctorFilter{
		Status: models.DoctorStatus(q.Status),
		Name:   q.Name,
	}, q.page())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	out := make([]ApplicationView, len(doctors))
	for i := range doctors {
		out[i] = applicationView(&doctors[i])
	}
	utils.Paginated(c, "Applications fetched successfully", out, q.meta(total))
}

// GetApplication returns one application with its documents.
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	doctor, err := h.Doctors.FindDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Application fetched successfully", applicationView(doctor))
}

// ReviewDocumentRequest is the admin's decision on one document.
type ReviewDocumentRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Note     string `json:"note" binding:"max=1000"`
}

// ReviewDocument approves or rejects one document.
func (h *ApplicationHandler) ReviewDocument(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ReviewDocumentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doc, err := h.Applications.ReviewDocument(c.Request.Context(), adminID, c.Param("id"), req.Decision == "approved", req.Note)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Document reviewed successfully", doc)
}

// Approve approves a pending application.
func (h *ApplicationHandler) Approve(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	doctor, err := h.Applications.Approve(c.Request.Context(), adminID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Application approved", applicationView(doctor))
}

// RejectRequest carries the reason shown to the doctor.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=2000"`
}

// Reject rejects a pending application.
func (h *ApplicationHandler) Reject(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req RejectRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, err := h.Applications.Reject(c.Request.Context(), adminID, c.Param("id"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Application rejected", applicationView(doctor))
}
