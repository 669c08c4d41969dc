package jobs

import "time"

// Well-known job ids, seeded by the migrations.
const (
	JobSlotGeneration = 1
	JobRetentionPurge = 2
)

// FallbackCron is used when a job's configuration is missing, disabled or
// unparseable: once a day at midnight.
const FallbackCron = "0 0 * * *"

// JobConfig is the stored schedule for one background job. The cron
// expression lives in the database so operators can retune cadence without a
// redeploy; the scheduler re-reads it between runs.
type JobConfig struct {
	JobID          int        `db:"job_id" json:"job_id"`
	Name           string     `db:"name" json:"name"`
	CronExpression string     `db:"cron_expression" json:"cron_expression"`
	Enabled        bool       `db:"enabled" json:"enabled"`
	LastRun        *time.Time `db:"last_run" json:"last_run,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
