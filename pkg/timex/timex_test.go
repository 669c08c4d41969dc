package timex

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.Hour != 9 || tod.Minute != 30 {
		t.Errorf("expected 09:30, got %s", tod)
	}
}

func TestParseTimeOfDay_WithSeconds(t *testing.T) {
	tod, err := ParseTimeOfDay("14:15:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.Hour != 14 || tod.Minute != 15 {
		t.Errorf("expected 14:15, got %s", tod)
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	if _, err := ParseTimeOfDay("25:99"); err == nil {
		t.Error("expected error for invalid time")
	}
}

func TestTimeOfDayAddMinutes(t *testing.T) {
	tod := TimeOfDay{Hour: 10, Minute: 45}
	next := tod.AddMinutes(30)
	if next.Hour != 11 || next.Minute != 15 {
		t.Errorf("expected 11:15, got %s", next)
	}
}

func TestTimeOfDayOrdering(t *testing.T) {
	a := TimeOfDay{Hour: 9, Minute: 0}
	b := TimeOfDay{Hour: 9, Minute: 30}
	if !a.Before(b) {
		t.Error("expected 09:00 before 09:30")
	}
	if !b.After(a) {
		t.Error("expected 09:30 after 09:00")
	}
	if a.Before(a) {
		t.Error("a time must not be before itself")
	}
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	tod := TimeOfDay{Hour: 8, Minute: 5}
	data, err := json.Marshal(tod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"08:05"` {
		t.Errorf(`expected "08:05", got %s`, data)
	}
	var back TimeOfDay
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != tod {
		t.Errorf("round trip mismatch: %s != %s", back, tod)
	}
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	if err := tod.Scan("16:20"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.Hour != 16 || tod.Minute != 20 {
		t.Errorf("expected 16:20, got %s", tod)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-17")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 2025 || d.Month != time.March || d.Day != 17 {
		t.Errorf("unexpected date: %s", d)
	}
	if d.Weekday() != time.Monday {
		t.Errorf("2025-03-17 is a Monday, got %s", d.Weekday())
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, time.December, 31)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"2025-12-31"` {
		t.Errorf(`expected "2025-12-31", got %s`, data)
	}
	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != d {
		t.Errorf("round trip mismatch: %s != %s", back, d)
	}
}

func TestDateScanTime(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2024, time.July, 4, 13, 45, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != NewDate(2024, time.July, 4) {
		t.Errorf("expected 2024-07-04, got %s", d)
	}
}
