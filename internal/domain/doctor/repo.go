package doctor

import (
	"context"

	"github.com/clinicore/clinicore/pkg/timex"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)

	// ListActiveAssignments enumerates (doctor, clinic) pairs for the daily
	// generation batch.
	ListActiveAssignments(ctx context.Context) ([]Assignment, error)

	// GetRecurringAvailability decodes the doctor's weekly availability
	// payload. A malformed payload returns an error wrapping
	// ErrMalformedAvailability.
	GetRecurringAvailability(ctx context.Context, doctorID string) ([]RecurringAvailability, error)
	SetRecurringAvailability(ctx context.Context, doctorID string, entries []RecurringAvailability) error
}

type AbsenceRepository interface {
	Create(ctx context.Context, a *AbsenceOverride) error
	Delete(ctx context.Context, id int64) error
	ListByDoctor(ctx context.Context, doctorID string, clinicID int, limit, offset int) ([]*AbsenceOverride, int, error)

	// ListByDate returns overrides for the exact (doctor, clinic, date) key,
	// ordered by record id ascending. At most one is expected; callers decide
	// how to handle anomalies.
	ListByDate(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*AbsenceOverride, error)
}
