package slots

import (
	"errors"
	"fmt"
	"sort"

	"github.com/clinicore/clinicore/internal/domain/doctor"
	"github.com/clinicore/clinicore/pkg/timex"
)

// ErrInvalidAvailability marks a weekly availability entry that cannot be
// expanded (unknown weekday label, non-positive slot duration). It is a
// configuration problem for the doctor in question, never retried.
var ErrInvalidAvailability = errors.New("invalid availability entry")

// Expand materializes the slots for one calendar date from a doctor's weekly
// availability, minus the resolved exclusion. It is pure: no clock, no store.
//
// Rules: only entries whose weekday matches the date contribute; within a
// shift, slots are emitted at slot-duration steps from shift start and a slot
// is emitted only if it fits entirely before shift end; an exclusion drops
// slots whose start falls inside it. The merged day is ordered by slot time
// (ties keep input shift order) and numbered from 1.
func Expand(date timex.Date, entries []doctor.RecurringAvailability, excl *Exclusion) ([]*GeneratedSlot, error) {
	for i, e := range entries {
		if !e.KnownWeekday() {
			return nil, fmt.Errorf("%w: entry %d has unknown day_of_week %q", ErrInvalidAvailability, i, e.DayOfWeek)
		}
		if e.SlotDurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: entry %d has slot_duration_minutes %d", ErrInvalidAvailability, i, e.SlotDurationMinutes)
		}
	}

	var out []*GeneratedSlot
	for _, e := range entries {
		if !e.MatchesDate(date) {
			continue
		}
		end := e.ShiftEnd.Minutes()
		for cur := e.ShiftStart; cur.Minutes()+e.SlotDurationMinutes <= end; cur = cur.AddMinutes(e.SlotDurationMinutes) {
			if excl.Covers(cur) {
				continue
			}
			out = append(out, &GeneratedSlot{
				SlotDate:   date,
				ShiftLabel: e.ShiftLabel,
				SlotTime:   cur,
				Available:  true,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SlotTime.Minutes() < out[j].SlotTime.Minutes()
	})
	for i, s := range out {
		s.SlotNo = i + 1
	}
	return out, nil
}
