package doctor

import (
	"time"

	"github.com/clinicore/clinicore/pkg/timex"
)

// Doctor maps to the doctor table. The id is the external doctor identifier
// used across the clinic (a string, not a surrogate key), paired with the
// clinic the doctor practices at.
type Doctor struct {
	ID        string    `db:"id" json:"id"`
	ClinicID  int       `db:"clinic_id" json:"clinic_id"`
	Name      string    `db:"name" json:"name"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Assignment is a (doctor, clinic) pair, the unit the daily generation batch
// fans out over.
type Assignment struct {
	DoctorID string `json:"doctor_id"`
	ClinicID int    `json:"clinic_id"`
}

// Weekday labels used in availability payloads.
const (
	Sunday    = "SUN"
	Monday    = "MON"
	Tuesday   = "TUE"
	Wednesday = "WED"
	Thursday  = "THU"
	Friday    = "FRI"
	Saturday  = "SAT"
)

var weekdayNames = map[string]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

// WeekdayLabel returns the payload label for a time.Weekday.
func WeekdayLabel(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return Sunday
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	default:
		return Saturday
	}
}

// RecurringAvailability is one weekly shift entry in a doctor's availability
// payload. Entries for the same day may describe multiple shifts (morning and
// evening, say) and are not guaranteed non-overlapping.
type RecurringAvailability struct {
	DayOfWeek           string          `json:"day_of_week"`
	ShiftLabel          string          `json:"shift_label"`
	ShiftStart          timex.TimeOfDay `json:"shift_start"`
	ShiftEnd            timex.TimeOfDay `json:"shift_end"`
	SlotDurationMinutes int             `json:"slot_duration_minutes"`
}

// KnownWeekday reports whether the entry's day label is valid.
func (a RecurringAvailability) KnownWeekday() bool {
	_, ok := weekdayNames[a.DayOfWeek]
	return ok
}

// MatchesDate reports whether the entry applies on the given calendar date.
func (a RecurringAvailability) MatchesDate(d timex.Date) bool {
	wd, ok := weekdayNames[a.DayOfWeek]
	return ok && wd == d.Weekday()
}

// AbsenceOverride is a date-specific exclusion of a doctor's normal
// availability. When both Start and End are nil the whole day is excluded.
type AbsenceOverride struct {
	ID           int64            `db:"id" json:"id"`
	DoctorID     string           `db:"doctor_id" json:"doctor_id"`
	ClinicID     int              `db:"clinic_id" json:"clinic_id"`
	AbsenceDate  timex.Date       `db:"absence_date" json:"absence_date"`
	AbsenceStart *timex.TimeOfDay `db:"absence_start" json:"absence_start,omitempty"`
	AbsenceEnd   *timex.TimeOfDay `db:"absence_end" json:"absence_end,omitempty"`
	Note         *string          `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// WholeDay reports whether the override suppresses the entire day.
func (a *AbsenceOverride) WholeDay() bool {
	return a.AbsenceStart == nil || a.AbsenceEnd == nil
}
