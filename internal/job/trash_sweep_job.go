package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type TrashSweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

// TrashSweepJob purges expired trash across all users.
type TrashSweepJob struct {
	sweeper TrashSweeper
}

func NewTrashSweepJob(sweeper TrashSweeper) *TrashSweepJob {
	return &TrashSweepJob{sweeper: sweeper}
}

func (j *TrashSweepJob) Name() string {
	return "trash_sweep"
}

func (j *TrashSweepJob) Run(ctx context.Context) error {
	if j.sweeper == nil {
		return nil
	}
	purged, err := j.sweeper.SweepAll(ctx)
	if purged > 0 || err != nil {
		logutil.GetLogger(ctx).Info("trash sweep done", zap.Int("purged", purged), zap.Error(err))
	}
	return err
}
