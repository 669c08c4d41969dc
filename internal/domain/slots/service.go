package slots

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/doctor"
	"github.com/clinicore/clinicore/pkg/timex"
)

const (
	retryBaseDelay      = 100 * time.Millisecond
	defaultStoreTimeout = 5 * time.Second
)

type Service struct {
	doctors  DoctorDirectory
	absences AbsenceSource
	slots    SlotRepository
	ledger   LedgerRepository
	log      zerolog.Logger

	workers       int
	retryAttempts int
	storeTimeout  time.Duration
}

func NewService(doctors DoctorDirectory, absences AbsenceSource, slotRepo SlotRepository,
	ledger LedgerRepository, log zerolog.Logger, workers, retryAttempts int,
	storeTimeout time.Duration) *Service {
	if workers < 1 {
		workers = 1
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Service{
		doctors:       doctors,
		absences:      absences,
		slots:         slotRepo,
		ledger:        ledger,
		log:           log,
		workers:       workers,
		retryAttempts: retryAttempts,
		storeTimeout:  storeTimeout,
	}
}

// withStoreTimeout bounds one store-touching phase so a hung database call
// cannot wedge a batch worker for good.
func (s *Service) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// resolveAbsence loads the absence overrides for the key and reduces them to
// at most one. More than one override per key is a data anomaly; the earliest
// record wins and the rest are logged.
func (s *Service) resolveAbsence(ctx context.Context, doctorID string, clinicID int, date timex.Date) (*doctor.AbsenceOverride, error) {
	overrides, err := s.absences.ListByDate(ctx, doctorID, clinicID, date)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return nil, nil
	}
	if len(overrides) > 1 {
		s.log.Warn().
			Str("doctor_id", doctorID).
			Int("clinic_id", clinicID).
			Str("date", date.String()).
			Int("count", len(overrides)).
			Msg("multiple absence overrides for one day, using the earliest")
	}
	return overrides[0], nil
}

func exclusionFor(o *doctor.AbsenceOverride) *Exclusion {
	if o == nil {
		return nil
	}
	if o.WholeDay() {
		return &Exclusion{WholeDay: true}
	}
	return &Exclusion{Start: *o.AbsenceStart, End: *o.AbsenceEnd}
}

// DayProjection is the read-only view of a doctor's day: the recurring shifts
// that apply, the absence override in effect (if any), and the slots the day
// expands to. It lets a caller tell a whole-day absence apart from a weekday
// with no shifts at all, both of which expand to zero slots.
type DayProjection struct {
	DoctorID  string                         `json:"doctor_id"`
	ClinicID  int                            `json:"clinic_id"`
	Date      timex.Date                     `json:"date"`
	DayOfWeek string                         `json:"day_of_week"`
	Shifts    []doctor.RecurringAvailability `json:"shifts"`
	Absence   *doctor.AbsenceOverride        `json:"absence,omitempty"`
	SlotCount int                            `json:"slot_count"`
	Slots     []*GeneratedSlot               `json:"slots"`
}

// ProjectDay expands the doctor's schedule for the date without touching the
// ledger or the slot store. It is safe to call any number of times and never
// conflicts with generation.
func (s *Service) ProjectDay(ctx context.Context, doctorID string, clinicID int, date timex.Date) (*DayProjection, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	entries, err := s.doctors.GetRecurringAvailability(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	absence, err := s.resolveAbsence(ctx, doctorID, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("load absences: %w", err)
	}
	out, err := Expand(date, entries, exclusionFor(absence))
	if err != nil {
		return nil, err
	}
	for _, sl := range out {
		sl.DoctorID = doctorID
		sl.ClinicID = clinicID
	}
	proj := &DayProjection{
		DoctorID:  doctorID,
		ClinicID:  clinicID,
		Date:      date,
		DayOfWeek: doctor.WeekdayLabel(date.Weekday()),
		Absence:   absence,
		SlotCount: len(out),
		Slots:     out,
	}
	for _, e := range entries {
		if e.MatchesDate(date) {
			proj.Shifts = append(proj.Shifts, e)
		}
	}
	return proj, nil
}

// GenerateForDate runs one generation for the (doctor, clinic, date) key:
// claim the key, replace any slots left by an expired earlier claim, expand,
// persist, complete. A second call for a completed key returns
// ErrAlreadyGenerated. An empty result is legitimate (no shifts that weekday,
// or a whole-day absence) and still completes the record with count zero.
// Every store phase runs under the configured store timeout.
func (s *Service) GenerateForDate(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*GeneratedSlot, error) {
	genCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	entries, err := s.doctors.GetRecurringAvailability(genCtx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	absence, err := s.resolveAbsence(genCtx, doctorID, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("load absences: %w", err)
	}

	recordID, err := s.ledger.TryBegin(genCtx, uuid.New(), doctorID, clinicID, date)
	if err != nil {
		return nil, err
	}

	out, err := s.writeSlots(genCtx, recordID, doctorID, clinicID, date, entries, exclusionFor(absence))
	if err != nil {
		// The generation context may already be dead (that can be why we
		// are here), so the claim release gets its own deadline.
		relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
		defer relCancel()
		if relErr := s.ledger.Release(relCtx, recordID); relErr != nil {
			s.log.Error().Err(relErr).
				Str("doctor_id", doctorID).
				Int("clinic_id", clinicID).
				Str("date", date.String()).
				Msg("failed to release generation claim")
		}
		return nil, err
	}
	return out, nil
}

func (s *Service) writeSlots(ctx context.Context, recordID uuid.UUID, doctorID string, clinicID int,
	date timex.Date, entries []doctor.RecurringAvailability, excl *Exclusion) ([]*GeneratedSlot, error) {
	// A reclaimed expired run may have written slots before dying.
	if err := s.slots.DeleteByKey(ctx, doctorID, clinicID, date); err != nil {
		return nil, fmt.Errorf("clear stale slots: %w", err)
	}
	out, err := Expand(date, entries, excl)
	if err != nil {
		return nil, err
	}
	for _, sl := range out {
		sl.ID = uuid.New()
		sl.DoctorID = doctorID
		sl.ClinicID = clinicID
	}
	if len(out) > 0 {
		if err := s.slots.InsertBatch(ctx, out); err != nil {
			return nil, fmt.Errorf("insert slots: %w", err)
		}
	}
	if err := s.ledger.Complete(ctx, recordID, len(out)); err != nil {
		return nil, fmt.Errorf("complete generation record: %w", err)
	}
	return out, nil
}

// ListSlots returns the persisted slots for the key, ordered by slot number.
func (s *Service) ListSlots(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*GeneratedSlot, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	return s.slots.ListByKey(ctx, doctorID, clinicID, date)
}

// GenerationStatus returns the ledger record for the key, if any.
func (s *Service) GenerationStatus(ctx context.Context, doctorID string, clinicID int, date timex.Date) (*GenerationRecord, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	return s.ledger.Get(ctx, doctorID, clinicID, date)
}

// RunBatch generates slots for every active (doctor, clinic) assignment for
// the date, fanning out over a bounded worker pool. Per-doctor failures are
// counted and logged but never abort the batch. Already-generated keys count
// as skipped.
func (s *Service) RunBatch(ctx context.Context, date timex.Date) (BatchResult, error) {
	listCtx, cancel := s.withStoreTimeout(ctx)
	assignments, err := s.doctors.ListActiveAssignments(listCtx)
	cancel()
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active assignments: %w", err)
	}

	res := BatchResult{Date: date}
	var mu sync.Mutex
	jobs := make(chan doctor.Assignment)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				generated, err := s.generateWithRetry(ctx, a, date)
				mu.Lock()
				switch {
				case err == nil:
					res.Generated++
					res.SlotCount += len(generated)
				case errors.Is(err, ErrAlreadyGenerated):
					res.Skipped++
				default:
					res.Failed++
					s.log.Error().Err(err).
						Str("doctor_id", a.DoctorID).
						Int("clinic_id", a.ClinicID).
						Str("date", date.String()).
						Msg("slot generation failed")
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, a := range assignments {
		select {
		case jobs <- a:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	s.log.Info().
		Str("date", date.String()).
		Int("generated", res.Generated).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("slot_count", res.SlotCount).
		Msg("daily slot generation batch finished")
	return res, nil
}

func (s *Service) generateWithRetry(ctx context.Context, a doctor.Assignment, date timex.Date) ([]*GeneratedSlot, error) {
	delay := retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		generated, err := s.GenerateForDate(ctx, a.DoctorID, a.ClinicID, date)
		if err == nil {
			return generated, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		if attempt < s.retryAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
	}
	return nil, lastErr
}

// isTransient separates store hiccups, which are worth retrying, from logical
// outcomes and configuration errors, which are not.
func isTransient(err error) bool {
	return !errors.Is(err, ErrAlreadyGenerated) &&
		!errors.Is(err, ErrInvalidAvailability) &&
		!errors.Is(err, doctor.ErrMalformedAvailability)
}

// PurgeBefore removes slots and ledger records older than the cutoff date.
// Used by the retention job.
func (s *Service) PurgeBefore(ctx context.Context, cutoff timex.Date) (slotsPurged, recordsPurged int64, err error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	slotsPurged, err = s.slots.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("purge slots: %w", err)
	}
	recordsPurged, err = s.ledger.PurgeBefore(ctx, cutoff)
	if err != nil {
		return slotsPurged, 0, fmt.Errorf("purge generation records: %w", err)
	}
	return slotsPurged, recordsPurged, nil
}
