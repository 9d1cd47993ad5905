package handlers

import (
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/utils"
)

// SpecialtyHandler serves the specialty catalogue.
type SpecialtyHandler struct {
	Specialties SpecialtyStore
}

// NewSpecialtyHandler creates a new SpecialtyHandler.
func NewSpecialtyHandler(specialties SpecialtyStore) *SpecialtyHandler {
	return &SpecialtyHandler{Specialties: specialties}
}

// ListSpecialties lists active specialties.
func (h *SpecialtyHandler) ListSpecialties(c *gin.Context) {
	h.list(c, true)
}

// ListAllSpecialties lists every specialty including inactive ones (admin).
func (h *SpecialtyHandler) ListAllSpecialties(c *gin.Context) {
	h.list(c, false)
}

func (h *SpecialtyHandler) list(c *gin.Context, activeOnly bool) {
	list, err := h.Specialties.ListSpecialties(c.Request.Context(), activeOnly)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Specialties fetched successfully", list)
}

// CreateSpecialtyRequest is the body of a new specialty.
type CreateSpecialtyRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=2000"`
	Active      *bool  `json:"active"`
}

// CreateSpecialty adds a specialty. The slug is derived from the name.
func (h *SpecialtyHandler) CreateSpecialty(c *gin.Context) {
	var req CreateSpecialtyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	sp := models.Specialty{
		Name:        name,
		Slug:        Slugify(name),
		Description: req.Description,
		Active:      req.Active == nil || *req.Active,
	}
	if sp.Slug == "" {
		utils.BadRequest(c, "Validation failed: name must contain letters or digits")
		return
	}

	if err := h.Specialties.CreateSpecialty(c.Request.Context(), &sp); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Specialty created successfully", sp)
}

// UpdateSpecialtyRequest changes some fields of a specialty.
type UpdateSpecialtyRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Active      *bool   `json:"active"`
}

// UpdateSpecialty edits a specialty. Renaming also changes its slug.
func (h *SpecialtyHandler) UpdateSpecialty(c *gin.Context) {
	var req UpdateSpecialtyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	sp, err := h.Specialties.FindSpecialty(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if req.Name != nil {
		sp.Name = strings.TrimSpace(*req.Name)
		sp.Slug = Slugify(sp.Name)
	}
	if req.Description != nil {
		sp.Description = *req.Description
	}
	if req.Active != nil {
		sp.Active = *req.Active
	}

	if err := h.Specialties.SaveSpecialty(c.Request.Context(), sp); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Specialty updated successfully", sp)
}

// DeleteSpecialty removes a specialty no doctor uses.
func (h *SpecialtyHandler) DeleteSpecialty(c *gin.Context) {
	if err := h.Specialties.DeleteSpecialty(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Specialty deleted successfully", nil)
}

// Slugify lowercases s, drops accents and joins words with hyphens:
// "Ginecologia e Obstetrícia" becomes "ginecologia-e-obstetricia".
func Slugify(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
