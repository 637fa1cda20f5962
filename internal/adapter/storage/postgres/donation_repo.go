package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// DonationRepo implements ports.DonationRepository.
type DonationRepo struct {
	pool Pool
}

// NewDonationRepo creates a new DonationRepo.
func NewDonationRepo(pool Pool) *DonationRepo {
	return &DonationRepo{pool: pool}
}

// Create inserts a new donation ledger entry within a database transaction.
// A collision on the unique transaction id is reported as
// ports.ErrDuplicateTransaction.
func (r *DonationRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Donation) error {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `INSERT INTO donations (id, donor_id, project_id, amount_tinybar, transaction_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		d.ID, d.DonorID, d.ProjectID, d.AmountTinybar,
		d.TransactionID, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ports.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// GetByTransactionID fetches a donation by its transaction id (non-locking).
func (r *DonationRepo) GetByTransactionID(ctx context.Context, txID string) (*domain.Donation, error) {
	query := `SELECT id, donor_id, project_id, amount_tinybar, transaction_id, status, created_at, updated_at
		FROM donations WHERE transaction_id = $1`

	return scanDonation(r.pool.QueryRow(ctx, query, txID))
}

// GetByTransactionIDForUpdate fetches a donation with pessimistic locking.
// This MUST be called within a transaction.
func (r *DonationRepo) GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, txID string) (*domain.Donation, error) {
	query := `SELECT id, donor_id, project_id, amount_tinybar, transaction_id, status, created_at, updated_at
		FROM donations WHERE transaction_id = $1 FOR UPDATE`

	return scanDonation(tx.QueryRow(ctx, query, txID))
}

// UpdateStatus updates a donation's status within a database transaction.
func (r *DonationRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.DonationStatus) error {
	query := `UPDATE donations SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update donation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("donation not found: %s", id)
	}
	return nil
}

// ListCompletedByDonor fetches a donor's completed donations, newest first.
func (r *DonationRepo) ListCompletedByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	query := `SELECT id, donor_id, project_id, amount_tinybar, transaction_id, status, created_at, updated_at
		FROM donations WHERE donor_id = $1 AND status = $2 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, donorID, domain.DonationStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list donations by donor: %w", err)
	}
	defer rows.Close()

	return collectDonations(rows)
}

// ListPending fetches pending entries created before the cutoff, oldest
// first, bounded by limit.
func (r *DonationRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error) {
	query := `SELECT id, donor_id, project_id, amount_tinybar, transaction_id, status, created_at, updated_at
		FROM donations WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.DonationStatusPending, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending donations: %w", err)
	}
	defer rows.Close()

	return collectDonations(rows)
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	d := &domain.Donation{}
	err := row.Scan(
		&d.ID, &d.DonorID, &d.ProjectID, &d.AmountTinybar,
		&d.TransactionID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}
	return d, nil
}

func collectDonations(rows pgx.Rows) ([]domain.Donation, error) {
	var donations []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(
			&d.ID, &d.DonorID, &d.ProjectID, &d.AmountTinybar,
			&d.TransactionID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan donation row: %w", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return donations, nil
}
