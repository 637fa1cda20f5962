package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donation-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	query := `INSERT INTO wallets (id, owner_id, role, address, encrypted_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerID, w.Role, w.Address, w.EncryptedKey,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByOwner fetches the wallet held for an owner in the given role.
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, role domain.WalletRole) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, role, address, encrypted_key, created_at, updated_at
		FROM wallets WHERE owner_id = $1 AND role = $2`

	return r.scanWallet(r.pool.QueryRow(ctx, query, ownerID, role))
}

// GetByAddress fetches a wallet by its ledger address.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, role, address, encrypted_key, created_at, updated_at
		FROM wallets WHERE address = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, address))
}

func (r *WalletRepo) scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Role, &w.Address, &w.EncryptedKey,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
