package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/pkg/timex"
)

// ErrMalformedAvailability marks a weekly availability payload that cannot be
// decoded. It is a per-doctor data problem, not a store failure.
var ErrMalformedAvailability = errors.New("malformed weekly availability payload")

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Doctor Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, clinic_id, name, specialty, phone, active, created_at, updated_at`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.ClinicID, &d.Name, &d.Specialty, &d.Phone, &d.Active,
		&d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, clinic_id, name, specialty, phone, active, weekly_availability)
		VALUES ($1,$2,$3,$4,$5,$6,'[]'::jsonb)`,
		d.ID, d.ClinicID, d.Name, d.Specialty, d.Phone, d.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET clinic_id=$2, name=$3, specialty=$4, phone=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.ClinicID, d.Name, d.Specialty, d.Phone, d.Active)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *repoPG) ListActiveAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, clinic_id FROM doctor WHERE active ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.DoctorID, &a.ClinicID); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) GetRecurringAvailability(ctx context.Context, doctorID string) ([]RecurringAvailability, error) {
	var raw []byte
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT weekly_availability FROM doctor WHERE id = $1`, doctorID).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var entries []RecurringAvailability
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w for doctor %s: %v", ErrMalformedAvailability, doctorID, err)
	}
	return entries, nil
}

func (r *repoPG) SetRecurringAvailability(ctx context.Context, doctorID string, entries []RecurringAvailability) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode weekly availability: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET weekly_availability = $2, updated_at = NOW() WHERE id = $1`,
		doctorID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// =========== Absence Repository ===========

type absenceRepoPG struct{ pool *pgxpool.Pool }

func NewAbsenceRepoPG(pool *pgxpool.Pool) AbsenceRepository { return &absenceRepoPG{pool: pool} }

func (r *absenceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const absenceCols = `id, doctor_id, clinic_id, absence_date, absence_start, absence_end, note, created_at`

func (r *absenceRepoPG) scanAbsence(row pgx.Row) (*AbsenceOverride, error) {
	var a AbsenceOverride
	err := row.Scan(&a.ID, &a.DoctorID, &a.ClinicID, &a.AbsenceDate,
		&a.AbsenceStart, &a.AbsenceEnd, &a.Note, &a.CreatedAt)
	return &a, err
}

func (r *absenceRepoPG) Create(ctx context.Context, a *AbsenceOverride) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO absence_override (doctor_id, clinic_id, absence_date, absence_start, absence_end, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		a.DoctorID, a.ClinicID, a.AbsenceDate, a.AbsenceStart, a.AbsenceEnd, a.Note).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *absenceRepoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM absence_override WHERE id = $1`, id)
	return err
}

func (r *absenceRepoPG) ListByDoctor(ctx context.Context, doctorID string, clinicID int, limit, offset int) ([]*AbsenceOverride, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM absence_override WHERE doctor_id = $1 AND clinic_id = $2`,
		doctorID, clinicID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+absenceCols+` FROM absence_override
		WHERE doctor_id = $1 AND clinic_id = $2
		ORDER BY absence_date DESC, id ASC LIMIT $3 OFFSET $4`,
		doctorID, clinicID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AbsenceOverride
	for rows.Next() {
		a, err := r.scanAbsence(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *absenceRepoPG) ListByDate(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*AbsenceOverride, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+absenceCols+` FROM absence_override
		WHERE doctor_id = $1 AND clinic_id = $2 AND absence_date = $3
		ORDER BY id ASC`,
		doctorID, clinicID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AbsenceOverride
	for rows.Next() {
		a, err := r.scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
