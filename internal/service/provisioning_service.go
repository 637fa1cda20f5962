package service

import (
	"context"
	"fmt"
	"time"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"
	"donation-settlement-engine/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProvisioningServiceImpl implements ports.ProvisioningService. Raw key
// material exists only inside the provisioning call: it is generated by the
// network client and handed straight to custody before anything is persisted.
type ProvisioningServiceImpl struct {
	wallets            ports.WalletRepository
	custody            ports.CustodyService
	ledger             ports.LedgerClient
	runner             ports.TaskRunner
	notifier           ports.Notifier
	initialBalanceHbar float64
	log                zerolog.Logger
}

// NewProvisioningService creates a new ProvisioningServiceImpl. notifier may
// be nil. initialBalanceHbar funds each new account from the operator.
func NewProvisioningService(
	wallets ports.WalletRepository,
	custody ports.CustodyService,
	ledger ports.LedgerClient,
	runner ports.TaskRunner,
	notifier ports.Notifier,
	initialBalanceHbar float64,
	log zerolog.Logger,
) *ProvisioningServiceImpl {
	return &ProvisioningServiceImpl{
		wallets:            wallets,
		custody:            custody,
		ledger:             ledger,
		runner:             runner,
		notifier:           notifier,
		initialBalanceHbar: initialBalanceHbar,
		log:                log,
	}
}

// CreateUserWallet issues a ledger account for the user. Calling it again
// for the same user returns the wallet issued the first time.
func (s *ProvisioningServiceImpl) CreateUserWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.provision(ctx, userID, domain.WalletRoleUser)
}

// CreateProjectWallet issues a receiving account for a fundraising project.
func (s *ProvisioningServiceImpl) CreateProjectWallet(ctx context.Context, projectID uuid.UUID) (*domain.Wallet, error) {
	return s.provision(ctx, projectID, domain.WalletRoleProject)
}

func (s *ProvisioningServiceImpl) provision(ctx context.Context, ownerID uuid.UUID, role domain.WalletRole) (*domain.Wallet, error) {
	existing, err := s.wallets.GetByOwner(ctx, ownerID, role)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check existing wallet: %w", err))
	}
	if existing != nil {
		s.log.Info().
			Str("owner_id", ownerID.String()).
			Str("role", string(role)).
			Str("address", existing.Address).
			Msg("wallet already provisioned")
		return existing, nil
	}

	initialBalance, err := domain.ToTinybar(s.initialBalanceHbar)
	if err != nil {
		return nil, apperror.ErrConfiguration(fmt.Errorf("initial balance: %w", err))
	}

	memo := fmt.Sprintf("wallet:%s:%s", role, ownerID)
	var account *ports.CreateAccountResult
	err = s.runner.Do(ctx, func(ctx context.Context) error {
		var createErr error
		account, createErr = s.ledger.CreateAccount(ctx, initialBalance, memo)
		return createErr
	})
	if err != nil {
		return nil, err
	}

	envelope, err := s.custody.Encrypt(account.RawKey, account.KeyFormat)
	if err != nil {
		// The account exists on the network but its key cannot be custodied;
		// nothing is persisted and the operator must recover manually.
		s.log.Error().Err(err).Str("address", account.Address).Msg("custody of fresh key failed, account orphaned")
		return nil, apperror.ErrInvalidCustodyState(err)
	}

	wallet := &domain.Wallet{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Role:         role,
		Address:      account.Address,
		EncryptedKey: &envelope,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("persist wallet: %w", err))
	}

	metrics.AccountsCreated.Inc()
	s.notify(ctx, ports.NotificationEvent{
		Kind:    "wallet.created",
		UserID:  ownerID,
		Address: wallet.Address,
	})
	s.log.Info().
		Str("owner_id", ownerID.String()).
		Str("role", string(role)).
		Str("address", wallet.Address).
		Str("key_format", string(account.KeyFormat)).
		Msg("wallet provisioned")
	return wallet, nil
}

// notify publishes the event off the request goroutine. The wallet is already
// provisioned; a failed or slow publish must not affect the response.
func (s *ProvisioningServiceImpl) notify(ctx context.Context, event ports.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	err := s.runner.Go(ctx, func(ctx context.Context) {
		if err := s.notifier.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("kind", event.Kind).Msg("notification publish failed")
		}
	})
	if err != nil {
		s.log.Warn().Err(err).Str("kind", event.Kind).Msg("notification dispatch failed")
	}
}
