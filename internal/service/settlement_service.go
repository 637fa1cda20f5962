package service

import (
	"context"
	"fmt"
	"sync"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"
	"donation-settlement-engine/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementServiceImpl implements ports.SettlementService. Submissions from
// the same sender are serialized with a per-address lock so concurrent
// requests cannot race the sender's valid-start window on the network.
type SettlementServiceImpl struct {
	wallets    ports.WalletRepository
	projects   ports.ProjectRepository
	custody    ports.CustodyService
	ledger     ports.LedgerClient
	runner     ports.TaskRunner
	recon      ports.ReconciliationService
	maxTinybar int64
	locks      senderLocks
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl. maxHbar caps a
// single transfer; zero disables the cap.
func NewSettlementService(
	wallets ports.WalletRepository,
	projects ports.ProjectRepository,
	custody ports.CustodyService,
	ledger ports.LedgerClient,
	runner ports.TaskRunner,
	recon ports.ReconciliationService,
	maxHbar float64,
	log zerolog.Logger,
) (*SettlementServiceImpl, error) {
	var maxTinybar int64
	if maxHbar > 0 {
		var err error
		maxTinybar, err = domain.ToTinybar(maxHbar)
		if err != nil {
			return nil, apperror.ErrConfiguration(fmt.Errorf("max transfer amount: %w", err))
		}
	}
	return &SettlementServiceImpl{
		wallets:    wallets,
		projects:   projects,
		custody:    custody,
		ledger:     ledger,
		runner:     runner,
		recon:      recon,
		maxTinybar: maxTinybar,
		log:        log,
	}, nil
}

// Donate moves funds from the donor's custodied wallet to the project's
// wallet and records the result in the donation ledger. The returned entry
// is already reconciled when the network confirmed synchronously.
func (s *SettlementServiceImpl) Donate(ctx context.Context, req ports.DonationRequest) (*domain.Donation, error) {
	amount, err := s.checkAmount(req.AmountHbar)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetByOwner(ctx, req.DonorID, domain.WalletRoleUser)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load donor wallet: %w", err))
	}
	if wallet == nil || !wallet.CanSign() {
		return nil, apperror.ErrWalletNotConfigured()
	}

	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load project: %w", err))
	}
	if project == nil {
		return nil, apperror.ErrNotFound("Project")
	}
	if !domain.IsAccountID(project.WalletAddress) {
		return nil, apperror.ErrWalletNotConfigured()
	}

	intent := &domain.TransferIntent{
		SenderAddress:    wallet.Address,
		SenderEnvelope:   *wallet.EncryptedKey,
		RecipientAddress: project.WalletAddress,
		AmountTinybar:    amount,
		Memo:             req.Memo,
		DonorID:          req.DonorID,
		ProjectID:        req.ProjectID,
	}

	txID, err := s.submit(ctx, intent, "donation")
	if err != nil {
		return nil, err
	}

	return s.recon.RecordTransfer(ctx, intent, txID.Storage(), domain.OutcomeConfirmed)
}

// TransferP2P moves funds from the sender's custodied wallet to an arbitrary
// ledger address. Peer transfers do not touch the donation ledger.
func (s *SettlementServiceImpl) TransferP2P(ctx context.Context, req ports.P2PRequest) (*ports.P2PResult, error) {
	amount, err := s.checkAmount(req.AmountHbar)
	if err != nil {
		return nil, err
	}
	if !domain.IsAccountID(req.RecipientAddress) {
		return nil, apperror.ErrInvalidAddress(req.RecipientAddress)
	}

	wallet, err := s.wallets.GetByOwner(ctx, req.SenderID, domain.WalletRoleUser)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load sender wallet: %w", err))
	}
	if wallet == nil || !wallet.CanSign() {
		return nil, apperror.ErrWalletNotConfigured()
	}
	if wallet.Address == req.RecipientAddress {
		return nil, apperror.ErrSelfTransfer()
	}

	memo := req.Memo
	if memo == "" {
		memo = "P2P transfer"
	}

	intent := &domain.TransferIntent{
		SenderAddress:    wallet.Address,
		SenderEnvelope:   *wallet.EncryptedKey,
		RecipientAddress: req.RecipientAddress,
		AmountTinybar:    amount,
		Memo:             memo,
	}

	txID, err := s.submit(ctx, intent, "p2p")
	if err != nil {
		return nil, err
	}

	return &ports.P2PResult{
		TransactionID: txID.Storage(),
		FromAddress:   wallet.Address,
		ToAddress:     req.RecipientAddress,
		AmountHbar:    domain.FromTinybar(amount),
		Memo:          memo,
	}, nil
}

// Balance returns the live network balance of the user's wallet.
func (s *SettlementServiceImpl) Balance(ctx context.Context, userID uuid.UUID) (*ports.WalletBalance, error) {
	wallet, err := s.wallets.GetByOwner(ctx, userID, domain.WalletRoleUser)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotConfigured()
	}
	return s.queryBalance(ctx, wallet.Address)
}

// ValidateWallet reports whether address resolves to a live account on the
// network. A malformed or unknown address yields exists == false without an
// error; only transport problems surface as errors.
func (s *SettlementServiceImpl) ValidateWallet(ctx context.Context, address string) (*ports.WalletBalance, bool, error) {
	if !domain.IsAccountID(address) {
		return nil, false, nil
	}
	balance, err := s.queryBalance(ctx, address)
	if err != nil {
		s.log.Debug().Err(err).Str("address", address).Msg("balance query failed during wallet validation")
		return nil, false, nil
	}
	return balance, true, nil
}

// submit decrypts the sender's key, serializes on the sender address and
// runs the network round trip on the bounded pool.
func (s *SettlementServiceImpl) submit(ctx context.Context, intent *domain.TransferIntent, kind string) (domain.TransactionID, error) {
	if err := intent.Validate(s.maxTinybar); err != nil {
		return domain.TransactionID{}, apperror.Validation(err.Error())
	}

	balance, err := s.queryBalance(ctx, intent.SenderAddress)
	if err != nil {
		return domain.TransactionID{}, err
	}
	if balance.BalanceTinybar < intent.AmountTinybar {
		return domain.TransactionID{}, apperror.ErrInsufficientBalance(balance.BalanceHbar, domain.FromTinybar(intent.AmountTinybar))
	}

	rawKey, format, err := s.custody.Decrypt(intent.SenderEnvelope)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrInvalidCustodyState(err)
	}

	unlock := s.locks.lock(intent.SenderAddress)
	defer unlock()

	metrics.TransfersSubmitted.WithLabelValues(kind).Inc()
	var txID domain.TransactionID
	err = s.runner.Do(ctx, func(ctx context.Context) error {
		var submitErr error
		txID, submitErr = s.ledger.SubmitTransfer(ctx, ports.SubmitTransferRequest{
			SenderAddress:    intent.SenderAddress,
			SenderKey:        rawKey,
			SenderKeyFormat:  format,
			RecipientAddress: intent.RecipientAddress,
			AmountTinybar:    intent.AmountTinybar,
			Memo:             intent.Memo,
		})
		return submitErr
	})
	if err != nil {
		metrics.TransfersFailed.WithLabelValues(kind).Inc()
		s.log.Error().Err(err).
			Str("sender", intent.SenderAddress).
			Str("recipient", intent.RecipientAddress).
			Int64("amount_tinybar", intent.AmountTinybar).
			Msg("transfer submission failed")
		return domain.TransactionID{}, err
	}

	s.log.Info().
		Str("transaction_id", txID.Storage()).
		Str("sender", intent.SenderAddress).
		Str("recipient", intent.RecipientAddress).
		Int64("amount_tinybar", intent.AmountTinybar).
		Str("kind", kind).
		Msg("transfer confirmed by network")
	return txID, nil
}

func (s *SettlementServiceImpl) queryBalance(ctx context.Context, address string) (*ports.WalletBalance, error) {
	var tinybar int64
	err := s.runner.Do(ctx, func(ctx context.Context) error {
		var qErr error
		tinybar, qErr = s.ledger.Balance(ctx, address)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return &ports.WalletBalance{
		Address:        address,
		BalanceHbar:    domain.FromTinybar(tinybar),
		BalanceTinybar: tinybar,
	}, nil
}

func (s *SettlementServiceImpl) checkAmount(hbar float64) (int64, error) {
	amount, err := domain.ToTinybar(hbar)
	if err != nil || amount <= 0 {
		return 0, apperror.ErrInvalidAmount()
	}
	if s.maxTinybar > 0 && amount > s.maxTinybar {
		return 0, apperror.ErrAmountTooLarge(domain.FromTinybar(s.maxTinybar))
	}
	return amount, nil
}

// senderLocks serializes submissions per sender address. Entries are never
// evicted; the key space is bounded by the number of custodied wallets.
type senderLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *senderLocks) lock(key string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	kl, ok := l.m[key]
	if !ok {
		kl = &sync.Mutex{}
		l.m[key] = kl
	}
	l.mu.Unlock()

	kl.Lock()
	return kl.Unlock
}
