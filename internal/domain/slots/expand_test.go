package slots

import (
	"errors"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/domain/doctor"
	"github.com/clinicore/clinicore/pkg/timex"
)

// 2025-03-17 is a Monday.
var monday = timex.NewDate(2025, time.March, 17)

func tod(t *testing.T, s string) timex.TimeOfDay {
	t.Helper()
	v, err := timex.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func entry(t *testing.T, day, label, start, end string, dur int) doctor.RecurringAvailability {
	t.Helper()
	return doctor.RecurringAvailability{
		DayOfWeek:           day,
		ShiftLabel:          label,
		ShiftStart:          tod(t, start),
		ShiftEnd:            tod(t, end),
		SlotDurationMinutes: dur,
	}
}

func slotTimes(out []*GeneratedSlot) []string {
	var ts []string
	for _, s := range out {
		ts = append(ts, s.SlotTime.String())
	}
	return ts
}

func TestExpandNoEntriesForWeekday(t *testing.T) {
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Tuesday, "morning", "09:00", "11:00", 30),
	}
	out, err := Expand(monday, entries, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d slots for a day without entries, want 0", len(out))
	}
}

func TestExpandSingleShift(t *testing.T) {
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Monday, "morning", "09:00", "11:00", 30),
	}
	out, err := Expand(monday, entries, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"09:00", "09:30", "10:00", "10:30"}
	got := slotTimes(out)
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d time = %s, want %s", i, got[i], want[i])
		}
		if out[i].SlotNo != i+1 {
			t.Errorf("slot %d number = %d, want %d", i, out[i].SlotNo, i+1)
		}
		if !out[i].Available {
			t.Errorf("slot %d not available", i)
		}
	}
}

func TestExpandNoPartialSlot(t *testing.T) {
	// 09:00-10:15 with 30-minute slots: 10:00 would overrun the shift end.
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Monday, "morning", "09:00", "10:15", 30),
	}
	out, err := Expand(monday, entries, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	got := slotTimes(out)
	want := []string{"09:00", "09:30"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWholeDayAbsence(t *testing.T) {
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Monday, "morning", "09:00", "11:00", 30),
		entry(t, doctor.Monday, "evening", "17:00", "19:00", 30),
	}
	out, err := Expand(monday, entries, &Exclusion{WholeDay: true})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d slots under a whole-day absence, want 0", len(out))
	}
}

func TestExpandAbsenceWindow(t *testing.T) {
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Monday, "morning", "09:00", "11:00", 30),
	}
	excl := &Exclusion{Start: tod(t, "10:00"), End: tod(t, "10:30")}
	out, err := Expand(monday, entries, excl)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	got := slotTimes(out)
	want := []string{"09:00", "09:30", "10:30"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d time = %s, want %s", i, got[i], want[i])
		}
	}
	// Numbering stays dense after the window is removed.
	for i, s := range out {
		if s.SlotNo != i+1 {
			t.Errorf("slot %d number = %d, want %d", i, s.SlotNo, i+1)
		}
	}
}

func TestExpandMultiShiftOrdering(t *testing.T) {
	// Evening listed first; output must still be chronological with
	// continuous numbering across shifts.
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Monday, "evening", "17:00", "18:00", 30),
		entry(t, doctor.Monday, "morning", "09:00", "10:00", 30),
	}
	out, err := Expand(monday, entries, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"09:00", "09:30", "17:00", "17:30"}
	got := slotTimes(out)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d time = %s, want %s", i, got[i], want[i])
		}
		if out[i].SlotNo != i+1 {
			t.Errorf("slot %d number = %d, want %d", i, out[i].SlotNo, i+1)
		}
	}
	if out[0].ShiftLabel != "morning" || out[2].ShiftLabel != "evening" {
		t.Errorf("shift labels out of order: %s, %s", out[0].ShiftLabel, out[2].ShiftLabel)
	}
}

func TestExpandInvalidDuration(t *testing.T) {
	entries := []doctor.RecurringAvailability{
		entry(t, doctor.Monday, "morning", "09:00", "11:00", 0),
	}
	_, err := Expand(monday, entries, nil)
	if !errors.Is(err, ErrInvalidAvailability) {
		t.Fatalf("err = %v, want ErrInvalidAvailability", err)
	}
}

func TestExpandUnknownWeekdayLabel(t *testing.T) {
	entries := []doctor.RecurringAvailability{
		entry(t, "FUNDAY", "morning", "09:00", "11:00", 30),
	}
	_, err := Expand(monday, entries, nil)
	if !errors.Is(err, ErrInvalidAvailability) {
		t.Fatalf("err = %v, want ErrInvalidAvailability", err)
	}
}

func TestExclusionCovers(t *testing.T) {
	excl := &Exclusion{Start: tod(t, "10:00"), End: tod(t, "10:30")}
	if excl.Covers(tod(t, "09:30")) {
		t.Error("09:30 should not be covered")
	}
	if !excl.Covers(tod(t, "10:00")) {
		t.Error("window start should be covered")
	}
	if excl.Covers(tod(t, "10:30")) {
		t.Error("window end is exclusive")
	}
	var none *Exclusion
	if none.Covers(tod(t, "10:00")) {
		t.Error("nil exclusion should cover nothing")
	}
}
