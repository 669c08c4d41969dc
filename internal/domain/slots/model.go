package slots

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timex"
)

// GeneratedSlot is one bookable appointment slot materialized for a concrete
// calendar date. SlotNo is 1-based and sequential across the whole day after
// merging all shifts.
type GeneratedSlot struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	DoctorID   string          `db:"doctor_id" json:"doctor_id"`
	ClinicID   int             `db:"clinic_id" json:"clinic_id"`
	SlotDate   timex.Date      `db:"slot_date" json:"slot_date"`
	SlotNo     int             `db:"slot_no" json:"slot_no"`
	ShiftLabel string          `db:"shift_label" json:"shift_label"`
	SlotTime   timex.TimeOfDay `db:"slot_time" json:"slot_time"`
	Available  bool            `db:"available" json:"available"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// GenerationRecord is the idempotency ledger entry for one
// (doctor, clinic, date) key. GeneratedAt nil means a generation run claimed
// the key but has not completed; such claims expire after a lease and become
// claimable again.
type GenerationRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	DoctorID    string     `db:"doctor_id" json:"doctor_id"`
	ClinicID    int        `db:"clinic_id" json:"clinic_id"`
	SlotDate    timex.Date `db:"slot_date" json:"slot_date"`
	BegunAt     time.Time  `db:"begun_at" json:"begun_at"`
	GeneratedAt *time.Time `db:"generated_at" json:"generated_at,omitempty"`
	SlotCount   *int       `db:"slot_count" json:"slot_count,omitempty"`
}

// Exclusion is the resolved absence for one day: either the whole day or a
// half-open [Start, End) time window.
type Exclusion struct {
	WholeDay bool
	Start    timex.TimeOfDay
	End      timex.TimeOfDay
}

// Covers reports whether a slot starting at t is suppressed by the exclusion.
func (e *Exclusion) Covers(t timex.TimeOfDay) bool {
	if e == nil {
		return false
	}
	if e.WholeDay {
		return true
	}
	m := t.Minutes()
	return m >= e.Start.Minutes() && m < e.End.Minutes()
}

// BatchResult summarizes one daily generation batch.
type BatchResult struct {
	Date      timex.Date `json:"date"`
	Generated int        `json:"generated"`
	Skipped   int        `json:"skipped"`
	Failed    int        `json:"failed"`
	SlotCount int        `json:"slot_count"`
}
