package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/scheduling"
)

// MaxAvailabilityDays bounds AvailableDays.
const MaxAvailabilityDays = 31

// DayAvailability lists the free slots of one doctor on one date.
type DayAvailability struct {
	DoctorID string            `json:"doctorId"`
	Date     string            `json:"date"`
	Slots    []scheduling.Slot `json:"slots"`
}

// DaySummary is a calendar cell: how many slots are still free.
type DaySummary struct {
	Date      string `json:"date"`
	FreeSlots int    `json:"freeSlots"`
}

// AvailabilityService computes bookable slots from schedules and appointments.
type AvailabilityService struct {
	doctors      DoctorStore
	schedules    ScheduleStore
	appointments AppointmentStore
	lead         time.Duration
	loc          *time.Location
	now          func() time.Time
}

// NewAvailabilityService creates the service. lead is the minimum notice for same-day bookings.
func NewAvailabilityService(doctors DoctorStore, schedules ScheduleStore, appointments AppointmentStore, lead time.Duration) *AvailabilityService {
	return &AvailabilityService{
		doctors:      doctors,
		schedules:    schedules,
		appointments: appointments,
		lead:         lead,
		loc:          time.Local,
		now:          time.Now,
	}
}

// Availability returns the free slots of an approved doctor on date.
func (s *AvailabilityService) Availability(ctx context.Context, doctorID string, date time.Time) (*DayAvailability, error) {
	if _, err := s.approvedDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	rules, err := s.rules(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	day := CalendarDate(date)
	occupied, err := s.appointments.OccupiedBetween(ctx, doctorID, day, day)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	return &DayAvailability{
		DoctorID: doctorID,
		Date:     day.Format(models.DateLayout),
		Slots:    s.freeSlots(rules, occupied, day),
	}, nil
}

// AvailableDays summarises free slots for days consecutive dates starting at from.
func (s *AvailabilityService) AvailableDays(ctx context.Context, doctorID string, from time.Time, days int) ([]DaySummary, error) {
	if days < 1 || days > MaxAvailabilityDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, MaxAvailabilityDays)
	}
	if _, err := s.approvedDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	rules, err := s.rules(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	first := CalendarDate(from)
	last := first.AddDate(0, 0, days-1)
	occupied, err := s.appointments.OccupiedBetween(ctx, doctorID, first, last)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	byDay := make(map[string][]models.Appointment)
	for _, a := range occupied {
		byDay[a.DateString()] = append(byDay[a.DateString()], a)
	}

	summary := make([]DaySummary, 0, days)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(models.DateLayout)
		summary = append(summary, DaySummary{
			Date:      key,
			FreeSlots: len(s.freeSlots(rules, byDay[key], d)),
		})
	}
	return summary, nil
}

func (s *AvailabilityService) freeSlots(rules []scheduling.Rule, occupied []models.Appointment, day time.Time) []scheduling.Slot {
	slots := scheduling.SlotsForDate(rules, day)
	slots = scheduling.FilterOccupied(slots, occupiedSlots(occupied))
	slots = scheduling.FilterPast(slots, day, s.now().In(s.loc), s.lead)
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	return slots
}

func (s *AvailabilityService) approvedDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	doctor, err := s.doctors.FindDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("doctor %s: %w", doctorID, ErrNotFound)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if !doctor.IsApproved() {
		return nil, fmt.Errorf("doctor %s is not approved: %w", doctorID, ErrNotFound)
	}
	return doctor, nil
}

func (s *AvailabilityService) rules(ctx context.Context, doctorID string) ([]scheduling.Rule, error) {
	schedules, err := s.schedules.ActiveSchedules(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	return RulesFromSchedules(schedules), nil
}

// RulesFromSchedules converts stored schedules, skipping inactive or malformed rows.
func RulesFromSchedules(schedules []models.Schedule) []scheduling.Rule {
	rules := make([]scheduling.Rule, 0, len(schedules))
	for _, sc := range schedules {
		if !sc.Active {
			continue
		}
		start, err := scheduling.ParseClock(sc.StartTime)
		if err != nil {
			continue
		}
		end, err := scheduling.ParseClock(sc.EndTime)
		if err != nil {
			continue
		}
		rule := scheduling.Rule{Window: scheduling.Window{Start: start, End: end, Duration: sc.SlotDuration}}
		switch {
		case sc.SpecificDate != nil:
			d := *sc.SpecificDate
			rule.Date = &d
		case sc.DayOfWeek != nil && *sc.DayOfWeek >= 0 && *sc.DayOfWeek <= 6:
			wd := time.Weekday(*sc.DayOfWeek)
			rule.Weekday = &wd
		default:
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

func occupiedSlots(appointments []models.Appointment) []scheduling.Slot {
	out := make([]scheduling.Slot, 0, len(appointments))
	for _, a := range appointments {
		start, err := scheduling.ParseClock(a.Time)
		if err != nil {
			continue
		}
		duration := a.Duration
		if duration <= 0 {
			duration = 1
		}
		out = append(out, scheduling.Slot{Start: start, End: start + scheduling.Clock(duration)})
	}
	return out
}

// CalendarDate drops the clock, keeping year, month and day as a UTC date.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return d, nil
}
