package jobs

import (
	"context"
	"time"
)

type Repository interface {
	List(ctx context.Context) ([]*JobConfig, error)
	Get(ctx context.Context, jobID int) (*JobConfig, error)
	Update(ctx context.Context, jobID int, cronExpression string, enabled bool) (*JobConfig, error)
	UpdateLastRun(ctx context.Context, jobID int, at time.Time) error
}
