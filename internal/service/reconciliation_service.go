package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"
	"donation-settlement-engine/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconciliationServiceImpl implements ports.ReconciliationService. Every
// operation is keyed on the unique transaction id, so a crash between the
// network confirming a transfer and the local ledger recording it is repaired
// by simply running the operation again.
type ReconciliationServiceImpl struct {
	transactor ports.DBTransactor
	donations  ports.DonationRepository
	projects   ports.ProjectRepository
	pending    ports.PendingStore
	verifier   ports.VerificationService
	notifier   ports.Notifier
	olderThan  time.Duration
	batchSize  int
	log        zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationServiceImpl. notifier
// may be nil when no notification backend is configured. olderThan and
// batchSize bound the sweep: only pending entries at least olderThan old are
// re-verified, at most batchSize per run.
func NewReconciliationService(
	transactor ports.DBTransactor,
	donations ports.DonationRepository,
	projects ports.ProjectRepository,
	pending ports.PendingStore,
	verifier ports.VerificationService,
	notifier ports.Notifier,
	olderThan time.Duration,
	batchSize int,
	log zerolog.Logger,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		transactor: transactor,
		donations:  donations,
		projects:   projects,
		pending:    pending,
		verifier:   verifier,
		notifier:   notifier,
		olderThan:  olderThan,
		batchSize:  batchSize,
		log:        log,
	}
}

// RecordTransfer persists the ledger entry for a submitted transfer and
// routes it to its terminal state when the outcome is already known. A
// duplicate transaction id means the transfer was recorded before; the
// existing entry is reused and the outcome is still applied, which makes
// retried submissions converge instead of double-counting.
func (s *ReconciliationServiceImpl) RecordTransfer(ctx context.Context, intent *domain.TransferIntent, txID string, outcome domain.TransferOutcome) (*domain.Donation, error) {
	donation := &domain.Donation{
		ID:            uuid.New(),
		DonorID:       intent.DonorID,
		ProjectID:     intent.ProjectID,
		AmountTinybar: intent.AmountTinybar,
		TransactionID: txID,
		Status:        domain.DonationStatusPending,
	}

	if err := s.insertDonation(ctx, donation); err != nil {
		if !errors.Is(err, ports.ErrDuplicateTransaction) {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("record transfer: %w", err))
		}
		existing, getErr := s.donations.GetByTransactionID(ctx, txID)
		if getErr != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load duplicate transfer: %w", getErr))
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("transaction %s reported duplicate but not found", txID))
		}
		s.log.Info().Str("transaction_id", txID).Msg("transfer already recorded, reusing entry")
		donation = existing
	}

	switch outcome {
	case domain.OutcomeConfirmed:
		if err := s.Complete(ctx, txID); err != nil {
			// The transfer is on chain; parking the id lets the sweep
			// finish the local side later.
			s.log.Error().Err(err).Str("transaction_id", txID).Msg("completion failed, parking for sweep")
			s.park(ctx, txID)
		}
	case domain.OutcomeFailed:
		if err := s.Fail(ctx, txID); err != nil {
			return nil, err
		}
	default:
		s.park(ctx, txID)
	}

	final, err := s.donations.GetByTransactionID(ctx, txID)
	if err != nil || final == nil {
		return donation, nil
	}
	return final, nil
}

// Complete transitions the entry to COMPLETED and credits the project's
// running totals, atomically in one database transaction. Entries already in
// a terminal state are left untouched, so totals are incremented at most
// once per transaction id.
func (s *ReconciliationServiceImpl) Complete(ctx context.Context, txID string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin completion: %w", err))
	}
	defer dbTx.Rollback(ctx)

	donation, err := s.donations.GetByTransactionIDForUpdate(ctx, dbTx, txID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock entry %s: %w", txID, err))
	}
	if donation == nil {
		return apperror.ErrNotFound(fmt.Sprintf("Ledger entry for transaction %s", txID))
	}
	if donation.IsTerminal() {
		metrics.ReconciliationRuns.WithLabelValues("noop").Inc()
		s.log.Debug().Str("transaction_id", txID).Str("status", string(donation.Status)).Msg("entry already terminal")
		s.unpark(ctx, txID)
		return nil
	}

	if err := s.donations.UpdateStatus(ctx, dbTx, donation.ID, domain.DonationStatusCompleted); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark completed: %w", err))
	}
	if err := s.projects.AddToTotals(ctx, dbTx, donation.ProjectID, donation.AmountTinybar); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("credit project totals: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit completion: %w", err))
	}

	metrics.ReconciliationRuns.WithLabelValues("completed").Inc()
	s.unpark(ctx, txID)
	s.notify(ctx, ports.NotificationEvent{
		Kind:          "donation.completed",
		UserID:        donation.DonorID,
		TransactionID: txID,
		Amount:        donation.Amount(),
	})
	s.log.Info().
		Str("transaction_id", txID).
		Str("project_id", donation.ProjectID.String()).
		Int64("amount_tinybar", donation.AmountTinybar).
		Msg("donation completed and project totals credited")
	return nil
}

// Fail transitions the entry to FAILED. A completed entry is never
// downgraded: project totals only ever grow.
func (s *ReconciliationServiceImpl) Fail(ctx context.Context, txID string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin failure: %w", err))
	}
	defer dbTx.Rollback(ctx)

	donation, err := s.donations.GetByTransactionIDForUpdate(ctx, dbTx, txID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock entry %s: %w", txID, err))
	}
	if donation == nil {
		return apperror.ErrNotFound(fmt.Sprintf("Ledger entry for transaction %s", txID))
	}
	if donation.IsTerminal() {
		metrics.ReconciliationRuns.WithLabelValues("noop").Inc()
		s.unpark(ctx, txID)
		return nil
	}

	if err := s.donations.UpdateStatus(ctx, dbTx, donation.ID, domain.DonationStatusFailed); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark failed: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit failure: %w", err))
	}

	metrics.ReconciliationRuns.WithLabelValues("failed").Inc()
	s.unpark(ctx, txID)
	s.notify(ctx, ports.NotificationEvent{
		Kind:          "donation.failed",
		UserID:        donation.DonorID,
		TransactionID: txID,
		Amount:        donation.Amount(),
	})
	s.log.Warn().Str("transaction_id", txID).Msg("donation marked failed")
	return nil
}

// Sweep re-verifies entries whose outcome never reached a terminal state:
// ids parked in the pending store plus PENDING rows old enough to be past
// the observer's indexing lag. An id the observer still cannot resolve stays
// pending for the next run.
func (s *ReconciliationServiceImpl) Sweep(ctx context.Context) error {
	ids := make(map[string]struct{})

	parked, err := s.pending.Members(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("pending store unavailable, sweeping from database only")
	}
	for _, id := range parked {
		ids[id] = struct{}{}
	}

	cutoff := time.Now().Add(-s.olderThan)
	stale, err := s.donations.ListPending(ctx, cutoff, s.batchSize)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("list pending entries: %w", err))
	}
	for _, d := range stale {
		ids[d.TransactionID] = struct{}{}
	}

	if len(ids) == 0 {
		return nil
	}
	s.log.Info().Int("count", len(ids)).Msg("sweeping unreconciled transfers")

	for id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := s.verifier.Verify(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("transaction_id", id).Msg("sweep verification errored, will retry next run")
			continue
		}
		switch {
		case res.Valid:
			if err := s.Complete(ctx, id); err != nil {
				s.log.Error().Err(err).Str("transaction_id", id).Msg("sweep completion failed")
			}
		case res.Error == "":
			// The observer found the transaction and it did not succeed.
			if err := s.Fail(ctx, id); err != nil {
				s.log.Error().Err(err).Str("transaction_id", id).Msg("sweep failure transition failed")
			}
		default:
			s.log.Debug().Str("transaction_id", id).Msg("still unresolved, leaving pending")
		}
	}
	return nil
}

func (s *ReconciliationServiceImpl) insertDonation(ctx context.Context, donation *domain.Donation) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbTx.Rollback(ctx)
	if err := s.donations.Create(ctx, dbTx, donation); err != nil {
		return err
	}
	return dbTx.Commit(ctx)
}

func (s *ReconciliationServiceImpl) park(ctx context.Context, txID string) {
	if err := s.pending.Add(ctx, txID); err != nil {
		s.log.Error().Err(err).Str("transaction_id", txID).Msg("failed to park transaction for sweep")
	}
}

func (s *ReconciliationServiceImpl) unpark(ctx context.Context, txID string) {
	if err := s.pending.Remove(ctx, txID); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txID).Msg("failed to remove parked transaction")
	}
}

func (s *ReconciliationServiceImpl) notify(ctx context.Context, event ports.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("kind", event.Kind).Msg("notification publish failed")
	}
}
