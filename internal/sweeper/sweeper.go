package sweeper

import (
	"context"
	"time"

	"donation-settlement-engine/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper runs the reconciliation sweep on a cron schedule so transfers that
// were confirmed on chain but never reconciled locally eventually converge.
type Sweeper struct {
	cron     *cron.Cron
	recon    ports.ReconciliationService
	schedule string
	timeout  time.Duration
	log      zerolog.Logger
}

// New creates a Sweeper. schedule is a cron expression ("@every 5m" works).
func New(recon ports.ReconciliationService, schedule string, timeout time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		recon:    recon,
		schedule: schedule,
		timeout:  timeout,
		log:      log,
	}
}

// Start registers the job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("reconciliation sweeper started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("reconciliation sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := s.recon.Sweep(ctx); err != nil {
		s.log.Error().Err(err).Msg("reconciliation sweep failed")
		return
	}
	s.log.Debug().Dur("elapsed", time.Since(started)).Msg("reconciliation sweep finished")
}
