package slots

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/pkg/timex"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Slot store ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *slotRepoPG) InsertBatch(ctx context.Context, items []*GeneratedSlot) error {
	batch := &pgx.Batch{}
	for _, s := range items {
		batch.Queue(`
			INSERT INTO generated_slot (id, doctor_id, clinic_id, slot_date, slot_no, shift_label, slot_time, available)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			s.ID, s.DoctorID, s.ClinicID, s.SlotDate, s.SlotNo, s.ShiftLabel, s.SlotTime, s.Available)
	}
	var br pgx.BatchResults
	if tx := db.TxFromContext(ctx); tx != nil {
		br = tx.SendBatch(ctx, batch)
	} else {
		br = r.pool.SendBatch(ctx, batch)
	}
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return br.Close()
}

func (r *slotRepoPG) DeleteByKey(ctx context.Context, doctorID string, clinicID int, date timex.Date) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM generated_slot WHERE doctor_id = $1 AND clinic_id = $2 AND slot_date = $3`,
		doctorID, clinicID, date)
	return err
}

func (r *slotRepoPG) ListByKey(ctx context.Context, doctorID string, clinicID int, date timex.Date) ([]*GeneratedSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, clinic_id, slot_date, slot_no, shift_label, slot_time, available, created_at
		FROM generated_slot
		WHERE doctor_id = $1 AND clinic_id = $2 AND slot_date = $3
		ORDER BY slot_no ASC`,
		doctorID, clinicID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*GeneratedSlot
	for rows.Next() {
		var s GeneratedSlot
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.ClinicID, &s.SlotDate, &s.SlotNo,
			&s.ShiftLabel, &s.SlotTime, &s.Available, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) PurgeBefore(ctx context.Context, cutoff timex.Date) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM generated_slot WHERE slot_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =========== Generation ledger ===========

// claimLease is how long an incomplete claim blocks the key. After it a
// crashed run's claim can be taken over.
const claimLease = "10 minutes"

type ledgerRepoPG struct{ pool *pgxpool.Pool }

func NewLedgerRepoPG(pool *pgxpool.Pool) LedgerRepository { return &ledgerRepoPG{pool: pool} }

func (r *ledgerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// TryBegin is the single atomic check-and-set the whole idempotency contract
// rests on. The conditional upsert either inserts a fresh record, reclaims an
// expired incomplete one, or affects no row at all; the driver reports the
// last case as no rows returned.
func (r *ledgerRepoPG) TryBegin(ctx context.Context, id uuid.UUID, doctorID string, clinicID int, date timex.Date) (uuid.UUID, error) {
	var claimed uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO generation_record (id, doctor_id, clinic_id, slot_date, begun_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (doctor_id, clinic_id, slot_date) DO UPDATE
			SET begun_at = NOW()
			WHERE generation_record.generated_at IS NULL
			  AND generation_record.begun_at < NOW() - INTERVAL '`+claimLease+`'
		RETURNING id`,
		id, doctorID, clinicID, date).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrAlreadyGenerated
	}
	if err != nil {
		return uuid.Nil, err
	}
	return claimed, nil
}

func (r *ledgerRepoPG) Complete(ctx context.Context, recordID uuid.UUID, slotCount int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE generation_record SET generated_at = NOW(), slot_count = $2 WHERE id = $1`,
		recordID, slotCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ledgerRepoPG) Release(ctx context.Context, recordID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM generation_record WHERE id = $1 AND generated_at IS NULL`, recordID)
	return err
}

func (r *ledgerRepoPG) Get(ctx context.Context, doctorID string, clinicID int, date timex.Date) (*GenerationRecord, error) {
	var rec GenerationRecord
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, doctor_id, clinic_id, slot_date, begun_at, generated_at, slot_count
		FROM generation_record
		WHERE doctor_id = $1 AND clinic_id = $2 AND slot_date = $3`,
		doctorID, clinicID, date).
		Scan(&rec.ID, &rec.DoctorID, &rec.ClinicID, &rec.SlotDate, &rec.BegunAt,
			&rec.GeneratedAt, &rec.SlotCount)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ledgerRepoPG) PurgeBefore(ctx context.Context, cutoff timex.Date) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM generation_record WHERE slot_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
