package doctor

import (
	"context"
	"fmt"

	"github.com/clinicore/clinicore/pkg/timex"
)

type Service struct {
	doctors  Repository
	absences AbsenceRepository
}

func NewService(doctors Repository, absences AbsenceRepository) *Service {
	return &Service{doctors: doctors, absences: absences}
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == "" {
		return fmt.Errorf("doctor id is required")
	}
	if d.ClinicID <= 0 {
		return fmt.Errorf("clinic_id must be positive")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.ClinicID <= 0 {
		return fmt.Errorf("clinic_id must be positive")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// -- Weekly availability --

func (s *Service) GetAvailability(ctx context.Context, doctorID string) ([]RecurringAvailability, error) {
	return s.doctors.GetRecurringAvailability(ctx, doctorID)
}

func (s *Service) SetAvailability(ctx context.Context, doctorID string, entries []RecurringAvailability) error {
	for i, e := range entries {
		if !e.KnownWeekday() {
			return fmt.Errorf("entry %d: unknown day_of_week %q", i, e.DayOfWeek)
		}
		if e.SlotDurationMinutes <= 0 {
			return fmt.Errorf("entry %d: slot_duration_minutes must be positive", i)
		}
		if !e.ShiftStart.Before(e.ShiftEnd) {
			return fmt.Errorf("entry %d: shift_start must be before shift_end", i)
		}
	}
	return s.doctors.SetRecurringAvailability(ctx, doctorID, entries)
}

// -- Absence overrides --

func (s *Service) CreateAbsence(ctx context.Context, a *AbsenceOverride) error {
	if a.DoctorID == "" {
		return fmt.Errorf("doctor_id is required")
	}
	if a.ClinicID <= 0 {
		return fmt.Errorf("clinic_id must be positive")
	}
	if a.AbsenceDate.IsZero() {
		return fmt.Errorf("absence_date is required")
	}
	// Either both bounds or neither; a half-open window is ambiguous.
	if (a.AbsenceStart == nil) != (a.AbsenceEnd == nil) {
		return fmt.Errorf("absence_start and absence_end must be set together")
	}
	if a.AbsenceStart != nil && !a.AbsenceStart.Before(*a.AbsenceEnd) {
		return fmt.Errorf("absence_start must be before absence_end")
	}
	return s.absences.Create(ctx, a)
}

func (s *Service) DeleteAbsence(ctx context.Context, id int64) error {
	return s.absences.Delete(ctx, id)
}

func (s *Service) ListAbsences(ctx context.Context, doctorID string, clinicID, limit, offset int) ([]*AbsenceOverride, int, error) {
	return s.absences.ListByDoctor(ctx, doctorID, clinicID, limit, offset)
}

func (s *Service) ListAbsencesForDate(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*AbsenceOverride, error) {
	return s.absences.ListByDate(ctx, doctorID, clinicID, date)
}
