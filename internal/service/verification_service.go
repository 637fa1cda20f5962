package service

import (
	"context"
	"time"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"
	"donation-settlement-engine/pkg/metrics"

	"github.com/rs/zerolog"
)

// VerificationServiceImpl implements ports.VerificationService against the
// mirror observer. Freshly submitted transactions take a few seconds to be
// indexed, so a probe that misses is retried on a schedule rather than
// reported as a failure.
type VerificationServiceImpl struct {
	observer    ports.ObserverClient
	runner      ports.TaskRunner
	gracePeriod time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	log         zerolog.Logger
}

// NewVerificationService creates a new VerificationServiceImpl. gracePeriod
// is waited once before the first probe; maxAttempts bounds the probes per
// id form.
func NewVerificationService(
	observer ports.ObserverClient,
	runner ports.TaskRunner,
	gracePeriod time.Duration,
	maxAttempts int,
	log zerolog.Logger,
) *VerificationServiceImpl {
	return &VerificationServiceImpl{
		observer:    observer,
		runner:      runner,
		gracePeriod: gracePeriod,
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
		log:         log,
	}
}

// Verify resolves a transfer's finality. An exhausted search returns a
// result with Valid == false and Error set, not an error: the transaction's
// fate is unknown, which is a legitimate answer the caller must handle.
func (s *VerificationServiceImpl) Verify(ctx context.Context, txID string) (*domain.VerificationResult, error) {
	parsed, err := domain.ParseTransactionID(txID)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	if s.gracePeriod > 0 {
		if err := s.sleep(ctx, s.gracePeriod); err != nil {
			return nil, err
		}
	}

	for _, form := range parsed.QueryForms() {
		rec, outcome, err := s.probeForm(ctx, form)
		if err != nil {
			return nil, err
		}
		if outcome == domain.ProbeFound {
			res := domain.Resolve(rec)
			s.log.Info().
				Str("transaction_id", txID).
				Str("form", form).
				Bool("valid", res.Valid).
				Int64("amount_tinybar", res.AmountTinybar).
				Msg("transaction resolved by observer")
			return res, nil
		}
	}

	metrics.VerificationProbes.WithLabelValues("exhausted").Inc()
	s.log.Warn().Str("transaction_id", txID).Msg("observer never indexed transaction within retry budget")
	return &domain.VerificationResult{
		Valid:         false,
		TransactionID: txID,
		Error:         "transaction not found",
	}, nil
}

// probeForm runs the retry loop for one textual id form. It returns
// ProbeFound with the record, or ProbeNotFoundExhausted once the attempt
// budget for this form is spent. Transient observer errors consume an
// attempt like a miss; only context cancellation aborts early.
func (s *VerificationServiceImpl) probeForm(ctx context.Context, form string) (*domain.ObserverRecord, domain.ProbeOutcome, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			if err := s.sleep(ctx, backoff); err != nil {
				return nil, domain.ProbeTransientError, err
			}
		}

		var (
			rec   *domain.ObserverRecord
			found bool
		)
		err := s.runner.Do(ctx, func(ctx context.Context) error {
			var probeErr error
			rec, found, probeErr = s.observer.FindTransaction(ctx, form)
			return probeErr
		})
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, domain.ProbeTransientError, ctx.Err()
		case err != nil:
			metrics.VerificationProbes.WithLabelValues("transient_error").Inc()
			s.log.Warn().Err(err).Str("form", form).Int("attempt", attempt+1).Msg("observer probe failed")
		case found:
			metrics.VerificationProbes.WithLabelValues("found").Inc()
			return rec, domain.ProbeFound, nil
		default:
			metrics.VerificationProbes.WithLabelValues("not_found").Inc()
			s.log.Debug().Str("form", form).Int("attempt", attempt+1).Msg("observer has not indexed id form")
		}
	}
	return nil, domain.ProbeNotFoundExhausted, nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
