package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const jobCols = `job_id, name, cron_expression, enabled, last_run, updated_at`

func scanJob(row pgx.Row) (*JobConfig, error) {
	var j JobConfig
	err := row.Scan(&j.JobID, &j.Name, &j.CronExpression, &j.Enabled, &j.LastRun, &j.UpdatedAt)
	return &j, err
}

func (r *repoPG) List(ctx context.Context) ([]*JobConfig, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+jobCols+` FROM job_config ORDER BY job_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*JobConfig
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	return items, rows.Err()
}

func (r *repoPG) Get(ctx context.Context, jobID int) (*JobConfig, error) {
	return scanJob(r.conn(ctx).QueryRow(ctx,
		`SELECT `+jobCols+` FROM job_config WHERE job_id = $1`, jobID))
}

func (r *repoPG) Update(ctx context.Context, jobID int, cronExpression string, enabled bool) (*JobConfig, error) {
	return scanJob(r.conn(ctx).QueryRow(ctx, `
		UPDATE job_config SET cron_expression = $2, enabled = $3, updated_at = NOW()
		WHERE job_id = $1
		RETURNING `+jobCols,
		jobID, cronExpression, enabled))
}

func (r *repoPG) UpdateLastRun(ctx context.Context, jobID int, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE job_config SET last_run = $2 WHERE job_id = $1`, jobID, at)
	return err
}
