package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

const defaultCalendarDays = 14

// DoctorHandler serves the public doctor directory and availability.
type DoctorHandler struct {
	Doctors      DoctorDirectory
	Availability Availability
	now          func() time.Time
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(doctors DoctorDirectory, availability Availability) *DoctorHandler {
	return &DoctorHandler{Doctors: doctors, Availability: availability, now: time.Now}
}

// DoctorSearchQuery filters the public directory.
type DoctorSearchQuery struct {
	ListQuery
	SpecialtyID string `form:"specialtyId" binding:"omitempty,uuid"`
	Specialty   string `form:"specialty" binding:"max=120"`
	Name        string `form:"name" binding:"max=100"`
}

// ListDoctors lists approved doctors, optionally by specialty or name.
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	var q DoctorSearchQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	doctors, total, err := h.Doctors.ListDoctors(c.Request.Context(), repository.DoctorFilter{
		Status:        models.DoctorApproved,
		SpecialtyID:   q.SpecialtyID,
		SpecialtySlug: q.Specialty,
		Name:          q.Name,
	}, q.page())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	out := make([]models.DoctorPublic, len(doctors))
	for i := range doctors {
		out[i] = doctors[i].Public()
	}
	utils.Paginated(c, "Doctors fetched successfully", out, q.meta(total))
}

// GetDoctor returns the public profile of an approved doctor.
func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	doctor, err := h.Doctors.FindDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFound(c, "Doctor not found")
			return
		}
		utils.RespondError(c, err)
		return
	}
	if !doctor.IsApproved() {
		utils.NotFound(c, "Doctor not found")
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor.Public())
}

// AvailabilityQuery selects the date to compute slots for.
type AvailabilityQuery struct {
	Date string `form:"date" binding:"required,date"`
}

// GetAvailability returns the free slots of a doctor on one date.
func (h *DoctorHandler) GetAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	date, err := services.ParseDate(q.Date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	day, err := h.Availability.Availability(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Availability fetched successfully", day)
}

// AvailableDaysQuery selects a calendar range.
type AvailableDaysQuery struct {
	From string `form:"from" binding:"omitempty,date"`
	Days int    `form:"days" binding:"omitempty,min=1,max=31"`
}

// GetAvailableDays returns how many slots are free on each day of a range.
// The range starts today and spans two weeks unless given.
func (h *DoctorHandler) GetAvailableDays(c *gin.Context) {
	var q AvailableDaysQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	from := services.CalendarDate(h.now())
	if q.From != "" {
		d, err := services.ParseDate(q.From)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		from = d
	}
	if q.Days == 0 {
		q.Days = defaultCalendarDays
	}

	days, err := h.Availability.AvailableDays(c.Request.Context(), c.Param("id"), from, q.Days)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Available days fetched successfully", days)
}
