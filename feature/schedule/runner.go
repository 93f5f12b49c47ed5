package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner executes due tasks on a cron tick.
type Runner struct {
	cron    *cron.Cron
	service *Service
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRunner creates a runner ticking on spec, e.g. "@every 1m". A tick that is still
// running when the next one fires is skipped.
func NewRunner(service *Service, spec string, logger *zap.Logger) (*Runner, error) {
	cl := cronLogger{logger.Sugar()}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{cron: c, service: service, logger: logger, ctx: ctx, cancel: cancel}
	if _, err := c.AddFunc(spec, r.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule tick %q: %w", spec, err)
	}
	return r, nil
}

// Start begins ticking in the background.
func (r *Runner) Start() {
	r.logger.Info("Schedule runner started")
	r.cron.Start()
}

// Stop cancels the current tick and waits for it to return.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("Schedule runner stopped")
}

func (r *Runner) tick() {
	n, err := r.service.RunDue(r.ctx, time.Now())
	if err != nil {
		r.logger.Error("Scheduled task pass failed", zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("Scheduled task pass finished", zap.Int("executed", n))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
