package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/scheduling"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

// ScheduleHandler lets approved doctors manage their availability windows.
type ScheduleHandler struct {
	Schedules ScheduleStore
	now       func() time.Time
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(schedules ScheduleStore) *ScheduleHandler {
	return &ScheduleHandler{Schedules: schedules, now: time.Now}
}

// ScheduleRequest is a weekly window (dayOfWeek) or a one-off window (specificDate).
type ScheduleRequest struct {
	DayOfWeek    *int   `json:"dayOfWeek" binding:"omitempty,min=0,max=6"`
	SpecificDate string `json:"specificDate" binding:"omitempty,date"`
	StartTime    string `json:"startTime" binding:"required,clock"`
	EndTime      string `json:"endTime" binding:"required,clock"`
	SlotDuration int    `json:"slotDuration" binding:"required,min=5,max=240"`
	Active       *bool  `json:"active"`
}

// ListSchedules lists the doctor's schedules.
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	list, err := h.Schedules.ListSchedules(c.Request.Context(), doctor.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedules fetched successfully", list)
}

// CreateSchedule adds a window.
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	sc := models.Schedule{DoctorID: doctor.ID, Active: true}
	if err := h.apply(&sc, req); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.checkOverlap(c, &sc); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.Schedules.CreateSchedule(c.Request.Context(), &sc); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Schedule created successfully", sc)
}

// UpdateSchedule replaces a window. Existing appointments are kept.
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	sc, err := h.Schedules.FindSchedule(c.Request.Context(), doctor.ID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.apply(sc, req); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.checkOverlap(c, sc); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.Schedules.SaveSchedule(c.Request.Context(), sc); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule updated successfully", sc)
}

// DeleteSchedule removes a window.
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	doctor, ok := currentDoctor(c)
	if !ok {
		return
	}
	if err := h.Schedules.DeleteSchedule(c.Request.Context(), doctor.ID, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Schedule deleted successfully", nil)
}

// apply validates req and copies it onto sc.
func (h *ScheduleHandler) apply(sc *models.Schedule, req ScheduleRequest) error {
	if (req.DayOfWeek == nil) == (req.SpecificDate == "") {
		return fmt.Errorf("%w: exactly one of dayOfWeek or specificDate is required", services.ErrValidation)
	}
	start, err := scheduling.ParseClock(req.StartTime)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	end, err := scheduling.ParseClock(req.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	if end <= start {
		return fmt.Errorf("%w: endTime must be after startTime", services.ErrValidation)
	}
	if int(end-start) < req.SlotDuration {
		return fmt.Errorf("%w: window is shorter than one slot", services.ErrValidation)
	}

	sc.DayOfWeek = nil
	sc.SpecificDate = nil
	if req.DayOfWeek != nil {
		dow := *req.DayOfWeek
		sc.DayOfWeek = &dow
	} else {
		date, err := services.ParseDate(req.SpecificDate)
		if err != nil {
			return err
		}
		if date.Before(services.CalendarDate(h.now())) {
			return fmt.Errorf("%w: specificDate is in the past", services.ErrValidation)
		}
		sc.SpecificDate = &date
	}
	sc.StartTime = req.StartTime
	sc.EndTime = req.EndTime
	sc.SlotDuration = req.SlotDuration
	if req.Active != nil {
		sc.Active = *req.Active
	}
	return nil
}

// checkOverlap rejects an active window that overlaps another active window
// of the same weekday or date.
func (h *ScheduleHandler) checkOverlap(c *gin.Context, sc *models.Schedule) error {
	if !sc.Active {
		return nil
	}
	existing, err := h.Schedules.ListSchedules(c.Request.Context(), sc.DoctorID)
	if err != nil {
		return err
	}
	start, _ := scheduling.ParseClock(sc.StartTime)
	end, _ := scheduling.ParseClock(sc.EndTime)
	for _, other := range existing {
		if other.ID == sc.ID || !other.Active || !sameDayRule(sc, &other) {
			continue
		}
		oStart, err1 := scheduling.ParseClock(other.StartTime)
		oEnd, err2 := scheduling.ParseClock(other.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if start < oEnd && oStart < end {
			return fmt.Errorf("%w: overlaps schedule %s-%s", services.ErrConflict, other.StartTime, other.EndTime)
		}
	}
	return nil
}

func sameDayRule(a, b *models.Schedule) bool {
	switch {
	case a.SpecificDate != nil && b.SpecificDate != nil:
		return scheduling.SameDay(*a.SpecificDate, *b.SpecificDate)
	case a.DayOfWeek != nil && b.DayOfWeek != nil:
		return *a.DayOfWeek == *b.DayOfWeek
	}
	return false
}
