package doctor

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/clinicore/clinicore/pkg/timex"
)

type mockRepo struct {
	doctors      map[string]*Doctor
	availability map[string][]RecurringAvailability
	malformed    map[string]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		doctors:      make(map[string]*Doctor),
		availability: make(map[string][]RecurringAvailability),
		malformed:    make(map[string]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; ok {
		return errors.New("duplicate doctor id")
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (m *mockRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return errors.New("not found")
	}
	d.UpdatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	delete(m.doctors, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	ids := make([]string, 0, len(m.doctors))
	for id := range m.doctors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var items []*Doctor
	for i, id := range ids {
		if i < offset || len(items) >= limit {
			continue
		}
		items = append(items, m.doctors[id])
	}
	return items, len(m.doctors), nil
}

func (m *mockRepo) ListActiveAssignments(_ context.Context) ([]Assignment, error) {
	ids := make([]string, 0, len(m.doctors))
	for id := range m.doctors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var items []Assignment
	for _, id := range ids {
		d := m.doctors[id]
		if d.Active {
			items = append(items, Assignment{DoctorID: d.ID, ClinicID: d.ClinicID})
		}
	}
	return items, nil
}

func (m *mockRepo) GetRecurringAvailability(_ context.Context, doctorID string) ([]RecurringAvailability, error) {
	if m.malformed[doctorID] {
		return nil, ErrMalformedAvailability
	}
	if _, ok := m.doctors[doctorID]; !ok {
		return nil, errors.New("not found")
	}
	return m.availability[doctorID], nil
}

func (m *mockRepo) SetRecurringAvailability(_ context.Context, doctorID string, entries []RecurringAvailability) error {
	if _, ok := m.doctors[doctorID]; !ok {
		return errors.New("not found")
	}
	m.availability[doctorID] = entries
	return nil
}

type mockAbsenceRepo struct {
	nextID int64
	items  map[int64]*AbsenceOverride
}

func newMockAbsenceRepo() *mockAbsenceRepo {
	return &mockAbsenceRepo{nextID: 1, items: make(map[int64]*AbsenceOverride)}
}

func (m *mockAbsenceRepo) Create(_ context.Context, a *AbsenceOverride) error {
	a.ID = m.nextID
	m.nextID++
	a.CreatedAt = time.Now()
	m.items[a.ID] = a
	return nil
}

func (m *mockAbsenceRepo) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *mockAbsenceRepo) ListByDoctor(_ context.Context, doctorID string, clinicID int, limit, offset int) ([]*AbsenceOverride, int, error) {
	var all []*AbsenceOverride
	for _, a := range m.items {
		if a.DoctorID == doctorID && a.ClinicID == clinicID {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	var page []*AbsenceOverride
	for i, a := range all {
		if i < offset || len(page) >= limit {
			continue
		}
		page = append(page, a)
	}
	return page, len(all), nil
}

func (m *mockAbsenceRepo) ListByDate(_ context.Context, doctorID string, clinicID int, date timex.Date) ([]*AbsenceOverride, error) {
	var out []*AbsenceOverride
	for _, a := range m.items {
		if a.DoctorID == doctorID && a.ClinicID == clinicID && a.AbsenceDate == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func mustTime(t *testing.T, s string) timex.TimeOfDay {
	t.Helper()
	tod, err := timex.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

func TestCreateDoctorValidation(t *testing.T) {
	svc := NewService(newMockRepo(), newMockAbsenceRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		d    Doctor
	}{
		{"missing id", Doctor{ClinicID: 1, Name: "Dr. Rao"}},
		{"missing name", Doctor{ID: "DOC-1", ClinicID: 1}},
		{"bad clinic", Doctor{ID: "DOC-1", ClinicID: 0, Name: "Dr. Rao"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.CreateDoctor(ctx, &tc.d); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}

	d := &Doctor{ID: "DOC-1", ClinicID: 1, Name: "Dr. Rao", Active: true}
	if err := svc.CreateDoctor(ctx, d); err != nil {
		t.Fatalf("create valid doctor: %v", err)
	}
	got, err := svc.GetDoctor(ctx, "DOC-1")
	if err != nil {
		t.Fatalf("get doctor: %v", err)
	}
	if got.Name != "Dr. Rao" {
		t.Errorf("name = %q, want %q", got.Name, "Dr. Rao")
	}
}

func TestSetAvailabilityValidation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newMockAbsenceRepo())
	ctx := context.Background()

	if err := svc.CreateDoctor(ctx, &Doctor{ID: "DOC-1", ClinicID: 1, Name: "Dr. Rao", Active: true}); err != nil {
		t.Fatalf("create doctor: %v", err)
	}

	valid := RecurringAvailability{
		DayOfWeek:           Monday,
		ShiftLabel:          "morning",
		ShiftStart:          mustTime(t, "09:00"),
		ShiftEnd:            mustTime(t, "12:00"),
		SlotDurationMinutes: 30,
	}

	bad := valid
	bad.DayOfWeek = "MONDAY"
	if err := svc.SetAvailability(ctx, "DOC-1", []RecurringAvailability{bad}); err == nil {
		t.Error("unknown weekday label accepted")
	}

	bad = valid
	bad.SlotDurationMinutes = 0
	if err := svc.SetAvailability(ctx, "DOC-1", []RecurringAvailability{bad}); err == nil {
		t.Error("zero slot duration accepted")
	}

	bad = valid
	bad.ShiftStart, bad.ShiftEnd = bad.ShiftEnd, bad.ShiftStart
	if err := svc.SetAvailability(ctx, "DOC-1", []RecurringAvailability{bad}); err == nil {
		t.Error("inverted shift window accepted")
	}

	if err := svc.SetAvailability(ctx, "DOC-1", []RecurringAvailability{valid}); err != nil {
		t.Fatalf("set valid availability: %v", err)
	}
	got, err := svc.GetAvailability(ctx, "DOC-1")
	if err != nil {
		t.Fatalf("get availability: %v", err)
	}
	if len(got) != 1 || got[0].ShiftLabel != "morning" {
		t.Errorf("availability round-trip mismatch: %+v", got)
	}
}

func TestCreateAbsenceValidation(t *testing.T) {
	svc := NewService(newMockRepo(), newMockAbsenceRepo())
	ctx := context.Background()
	date := timex.NewDate(2025, time.March, 17)
	start := mustTime(t, "10:00")
	end := mustTime(t, "11:00")

	wholeDay := AbsenceOverride{DoctorID: "DOC-1", ClinicID: 1, AbsenceDate: date}
	if err := svc.CreateAbsence(ctx, &wholeDay); err != nil {
		t.Fatalf("whole-day absence rejected: %v", err)
	}

	window := AbsenceOverride{DoctorID: "DOC-1", ClinicID: 1, AbsenceDate: date, AbsenceStart: &start, AbsenceEnd: &end}
	if err := svc.CreateAbsence(ctx, &window); err != nil {
		t.Fatalf("windowed absence rejected: %v", err)
	}

	half := AbsenceOverride{DoctorID: "DOC-1", ClinicID: 1, AbsenceDate: date, AbsenceStart: &start}
	if err := svc.CreateAbsence(ctx, &half); err == nil {
		t.Error("absence with only a start bound accepted")
	}

	inverted := AbsenceOverride{DoctorID: "DOC-1", ClinicID: 1, AbsenceDate: date, AbsenceStart: &end, AbsenceEnd: &start}
	if err := svc.CreateAbsence(ctx, &inverted); err == nil {
		t.Error("inverted absence window accepted")
	}

	got, err := svc.ListAbsencesForDate(ctx, "DOC-1", 1, date)
	if err != nil {
		t.Fatalf("list absences for date: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d absences, want 2", len(got))
	}
	if got[0].ID >= got[1].ID {
		t.Error("absences not ordered by id ascending")
	}
}

func TestWholeDay(t *testing.T) {
	start := timex.TimeOfDay{Hour: 10}
	end := timex.TimeOfDay{Hour: 11}

	if w := (&AbsenceOverride{}).WholeDay(); !w {
		t.Error("nil bounds should mean whole day")
	}
	if w := (&AbsenceOverride{AbsenceStart: &start, AbsenceEnd: &end}).WholeDay(); w {
		t.Error("bounded window flagged as whole day")
	}
	if w := (&AbsenceOverride{AbsenceStart: &start}).WholeDay(); !w {
		t.Error("missing end bound should degrade to whole day")
	}
}

func TestMatchesDate(t *testing.T) {
	// 2025-03-17 is a Monday.
	monday := timex.NewDate(2025, time.March, 17)
	entry := RecurringAvailability{DayOfWeek: Monday}
	if !entry.MatchesDate(monday) {
		t.Error("MON entry should match a Monday")
	}
	entry.DayOfWeek = Tuesday
	if entry.MatchesDate(monday) {
		t.Error("TUE entry matched a Monday")
	}
	entry.DayOfWeek = "NOPE"
	if entry.MatchesDate(monday) {
		t.Error("unknown label matched")
	}
}
