package service

import (
	"context"
	"fmt"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// TraceServiceImpl implements ports.TraceService: the public audit view that
// joins what the observer saw on chain with what the donation ledger
// recorded locally.
type TraceServiceImpl struct {
	verifier  ports.VerificationService
	donations ports.DonationRepository
	log       zerolog.Logger
}

// NewTraceService creates a new TraceServiceImpl.
func NewTraceService(verifier ports.VerificationService, donations ports.DonationRepository, log zerolog.Logger) *TraceServiceImpl {
	return &TraceServiceImpl{
		verifier:  verifier,
		donations: donations,
		log:       log,
	}
}

// Trace verifies the transaction against the observer and attaches the local
// ledger entry when one exists. Peer transfers trace with a verification
// result only.
func (s *TraceServiceImpl) Trace(ctx context.Context, txID string) (*ports.TraceResult, error) {
	parsed, err := domain.ParseTransactionID(txID)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	verification, err := s.verifier.Verify(ctx, txID)
	if err != nil {
		return nil, err
	}

	donation, err := s.donations.GetByTransactionID(ctx, parsed.Storage())
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load ledger entry: %w", err))
	}

	// Nothing on chain and nothing in the ledger: the transaction may still
	// be in flight, so report it pending rather than absent.
	if verification.Unresolved() && donation == nil {
		return nil, apperror.ErrVerificationUnresolved(txID)
	}

	return &ports.TraceResult{
		Verification: verification,
		Donation:     donation,
	}, nil
}
