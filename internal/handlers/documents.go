package handlers

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/utils"
)

// DocumentFiles finds verification documents by their stored file name.
type DocumentFiles interface {
	FindDocumentByPublicID(ctx context.Context, publicID string) (*models.DoctorDocument, error)
}

// DocumentFileHandler serves documents kept on local disk to admins and to
// the doctor who uploaded them.
type DocumentFileHandler struct {
	Documents DocumentFiles
	Doctors   DoctorDirectory
	Dir       string
}

// NewDocumentFileHandler creates a new DocumentFileHandler reading from dir.
func NewDocumentFileHandler(documents DocumentFiles, doctors DoctorDirectory, dir string) *DocumentFileHandler {
	return &DocumentFileHandler{Documents: documents, Doctors: doctors, Dir: dir}
}

// ServeDocument sends one document file.
func (h *DocumentFileHandler) ServeDocument(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	name := filepath.Base(c.Param("name"))

	doc, err := h.Documents.FindDocumentByPublicID(ctx, name)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if actor.Role != models.RoleAdmin {
		doctor, err := h.Doctors.FindDoctorByUser(ctx, actor.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			utils.RespondError(c, err)
			return
		}
		if doctor == nil || doctor.ID != doc.DoctorID {
			utils.Forbidden(c, "You do not have access to this document")
			return
		}
	}

	c.FileAttachment(filepath.Join(h.Dir, name), doc.OriginalName)
}
