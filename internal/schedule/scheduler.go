package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Trigger(name string) bool
	Start(ctx context.Context)
	Stop()
}

// scheduledJob guards a job so cron ticks and manual triggers never overlap.
type scheduledJob struct {
	job     Job
	spec    string
	running atomic.Bool
}

type CronScheduler struct {
	mu   sync.RWMutex
	cron *cron.Cron
	jobs map[string]*scheduledJob
	ctx  context.Context
	wg   sync.WaitGroup
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]*scheduledJob),
		ctx:  context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	entry := &scheduledJob{job: job, spec: spec}
	if _, err := c.cron.AddFunc(spec, func() { c.run(entry) }); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.jobs[name] = entry
	logger.Info("job scheduled")
	return nil
}

// Trigger runs a scheduled job once in the background. It reports false when
// the job is unknown or already running.
func (c *CronScheduler) Trigger(name string) bool {
	c.mu.RLock()
	entry, ok := c.jobs[name]
	c.mu.RUnlock()
	if !ok || entry.running.Load() {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(entry)
	}()
	return true
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

// Stop waits for running jobs to return.
func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
	c.wg.Wait()
}

func (c *CronScheduler) run(entry *scheduledJob) {
	logger := logutil.GetLogger(context.Background()).With(
		zap.String("job", entry.job.Name()),
		zap.String("spec", entry.spec),
	)
	if !entry.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return
	}
	defer entry.running.Store(false)

	c.mu.RLock()
	ctx := c.ctx
	c.mu.RUnlock()
	start := time.Now()
	logger.Info("job started")
	err := entry.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
}
