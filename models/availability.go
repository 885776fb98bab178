package models

import "time"

// TimeSlot is one configured window within a day, as wall-clock "HH:MM" times.
// The interval is half-open: [Start, End).
type TimeSlot struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// DaySchedule is the template for a single weekday.
type DaySchedule struct {
	Enabled bool       `bson:"enabled" json:"enabled"`
	Slots   []TimeSlot `bson:"slots" json:"slots"`
}

// WeekSchedule holds exactly seven day templates keyed by weekday.
type WeekSchedule struct {
	Monday    DaySchedule `bson:"monday" json:"monday"`
	Tuesday   DaySchedule `bson:"tuesday" json:"tuesday"`
	Wednesday DaySchedule `bson:"wednesday" json:"wednesday"`
	Thursday  DaySchedule `bson:"thursday" json:"thursday"`
	Friday    DaySchedule `bson:"friday" json:"friday"`
	Saturday  DaySchedule `bson:"saturday" json:"saturday"`
	Sunday    DaySchedule `bson:"sunday" json:"sunday"`
}

// Day returns the template for the given weekday.
func (w WeekSchedule) Day(d time.Weekday) DaySchedule {
	switch d {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

// Days yields the seven day templates in weekday order starting Monday.
func (w WeekSchedule) Days() []DaySchedule {
	return []DaySchedule{w.Monday, w.Tuesday, w.Wednesday, w.Thursday, w.Friday, w.Saturday, w.Sunday}
}

// AvailabilitySettings is one professional's recurring schedule plus ad-hoc
// exceptions. Lazily created with the default Monday-Friday 08:00-18:00
// template on first read.
type AvailabilitySettings struct {
	ProfessionalID string       `bson:"professional_id" json:"professionalId"`
	WeekSchedule   WeekSchedule `bson:"week_schedule" json:"weekSchedule"`
	// BlockedDates are "YYYY-MM-DD" dates that override the week schedule to
	// closed regardless of weekday configuration.
	BlockedDates []string `bson:"blocked_dates" json:"blockedDates"`
	// BufferTime is the minimum number of minutes between two bookings.
	BufferTime int `bson:"buffer_time" json:"bufferTime"`
	// AdvanceBookingDays limits how far ahead bookings are accepted.
	AdvanceBookingDays int `bson:"advance_booking_days" json:"advanceBookingDays"`
	// Timezone is the IANA zone used to interpret the professional's
	// wall-clock schedule.
	Timezone  string    `bson:"timezone" json:"timezone"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// DateBlocked reports whether the given "YYYY-MM-DD" date is in the blocked set.
func (s *AvailabilitySettings) DateBlocked(date string) bool {
	for _, d := range s.BlockedDates {
		if d == date {
			return true
		}
	}
	return false
}

// BlockedDate is the detail record behind a blocked calendar date.
type BlockedDate struct {
	ID             string    `bson:"id" json:"id"`
	ProfessionalID string    `bson:"professional_id" json:"professionalId"`
	Date           string    `bson:"date" json:"date"`
	Reason         string    `bson:"reason" json:"reason"`
	Type           string    `bson:"type" json:"type"` // vacation, personal, holiday, other
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// BookingWindow is the read-side projection of an active engagement the
// scheduler checks conflicts against. Start and End are minutes from midnight.
type BookingWindow struct {
	EngagementID string `json:"engagementId"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
}

// Overlaps reports whether two half-open minute intervals conflict.
func (w BookingWindow) Overlaps(start, end int) bool {
	return start < w.End && w.Start < end
}

// DefaultWeekSchedule returns the Monday-Friday 08:00-18:00 template used when
// a professional has never configured availability.
func DefaultWeekSchedule() WeekSchedule {
	workday := DaySchedule{
		Enabled: true,
		Slots:   []TimeSlot{{Start: "08:00", End: "18:00"}},
	}
	closed := DaySchedule{Enabled: false, Slots: []TimeSlot{}}
	return WeekSchedule{
		Monday:    workday,
		Tuesday:   workday,
		Wednesday: workday,
		Thursday:  workday,
		Friday:    workday,
		Saturday:  closed,
		Sunday:    closed,
	}
}
