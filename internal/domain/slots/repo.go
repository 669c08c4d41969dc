package slots

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/doctor"
	"github.com/clinicore/clinicore/pkg/timex"
)

// ErrAlreadyGenerated means the (doctor, clinic, date) key already holds a
// completed generation record. It is the normal second-call outcome, not a
// failure.
var ErrAlreadyGenerated = errors.New("slots already generated for this doctor and date")

type SlotRepository interface {
	InsertBatch(ctx context.Context, slots []*GeneratedSlot) error
	DeleteByKey(ctx context.Context, doctorID string, clinicID int, date timex.Date) error
	ListByKey(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*GeneratedSlot, error)

	// PurgeBefore removes slots for dates strictly before cutoff.
	PurgeBefore(ctx context.Context, cutoff timex.Date) (int64, error)
}

type LedgerRepository interface {
	// TryBegin atomically claims the key: it inserts a new record with the
	// given id, or reclaims an existing record whose run never completed and
	// whose claim lease has expired. It returns the claimed record's id, or
	// ErrAlreadyGenerated when a completed (or freshly claimed) record holds
	// the key.
	TryBegin(ctx context.Context, id uuid.UUID, doctorID string, clinicID int, date timex.Date) (uuid.UUID, error)

	// Complete marks the claimed record as done with the final slot count.
	Complete(ctx context.Context, recordID uuid.UUID, slotCount int) error

	// Release drops an incomplete claim so the key is immediately claimable
	// again. Completed records are never released.
	Release(ctx context.Context, recordID uuid.UUID) error

	Get(ctx context.Context, doctorID string, clinicID int, date timex.Date) (*GenerationRecord, error)

	// PurgeBefore removes records for dates strictly before cutoff.
	PurgeBefore(ctx context.Context, cutoff timex.Date) (int64, error)
}

// DoctorDirectory is the slice of the doctor repository the engine needs.
type DoctorDirectory interface {
	ListActiveAssignments(ctx context.Context) ([]doctor.Assignment, error)
	GetRecurringAvailability(ctx context.Context, doctorID string) ([]doctor.RecurringAvailability, error)
}

// AbsenceSource yields the absence overrides for an exact (doctor, clinic,
// date) key, ordered by record id ascending.
type AbsenceSource interface {
	ListByDate(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*doctor.AbsenceOverride, error)
}
