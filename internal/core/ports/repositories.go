package ports

import (
	"context"
	"errors"
	"time"

	"donation-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateTransaction reports an insert that collided with the unique
// transaction id constraint.
var ErrDuplicateTransaction = errors.New("duplicate transaction id")

// WalletRepository defines persistence operations for custodied wallets.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByOwner(ctx context.Context, ownerID uuid.UUID, role domain.WalletRole) (*domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
}

// DonationRepository defines persistence operations for donation ledger
// entries. The transaction id column carries a unique constraint; Create
// reports a duplicate via ErrDuplicateTransaction so reconciliation can
// treat the repeat as a no-op.
type DonationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, donation *domain.Donation) error
	GetByTransactionID(ctx context.Context, txID string) (*domain.Donation, error)
	// GetByTransactionIDForUpdate locks the entry for the duration of the
	// enclosing database transaction.
	GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, txID string) (*domain.Donation, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.DonationStatus) error
	ListCompletedByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)
	// ListPending returns pending entries created before the cutoff, oldest
	// first, for the reconciliation sweep.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error)
}

// ProjectRepository defines persistence operations for fundraising projects.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetByWalletAddress(ctx context.Context, address string) (*domain.Project, error)
	// AddToTotals increments amount_raised and the backer count inside the
	// given database transaction; it must commit atomically with the
	// donation's status transition.
	AddToTotals(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, amountTinybar int64) error
}

// PendingStore parks transaction ids whose on-chain outcome is known but
// whose local reconciliation has not committed, so a later sweep can retry
// keyed by id uniqueness.
type PendingStore interface {
	Add(ctx context.Context, txID string) error
	Members(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, txID string) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
