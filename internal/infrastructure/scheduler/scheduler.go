package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type Scheduler struct {
	cron   *cron.Cron
	logger Logger
	ctx    context.Context
}

// New returns a seconds-resolution scheduler that never overlaps runs of the same job.
func New(logger Logger) *Scheduler {
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    context.Background(),
	}
}

// AddJob registers job under spec. Errors returned by job are logged.
func (s *Scheduler) AddJob(spec, name string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil {
			s.logger.Errorf("Scheduled %s failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

// Start runs registered jobs with ctx until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

type cronLogger struct {
	logger Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		c.logger.Infof("Previous run still in progress, skipping %v", keysAndValues)
	}
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Errorf("cron %s: %v %v", msg, err, keysAndValues)
}
