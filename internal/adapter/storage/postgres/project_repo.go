package postgres

import (
	"context"
	"errors"
	"fmt"

	"donation-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProjectRepo implements ports.ProjectRepository.
type ProjectRepo struct {
	pool Pool
}

// NewProjectRepo creates a new ProjectRepo.
func NewProjectRepo(pool Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

// GetByID fetches a project by UUID.
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT id, title, category, wallet_address, amount_raised_tinybar, backers, created_at, updated_at
		FROM projects WHERE id = $1`

	return r.scanProject(r.pool.QueryRow(ctx, query, id))
}

// GetByWalletAddress fetches a project by its receiving wallet address.
func (r *ProjectRepo) GetByWalletAddress(ctx context.Context, address string) (*domain.Project, error) {
	query := `SELECT id, title, category, wallet_address, amount_raised_tinybar, backers, created_at, updated_at
		FROM projects WHERE wallet_address = $1`

	return r.scanProject(r.pool.QueryRow(ctx, query, address))
}

// AddToTotals increments the running totals within a database transaction.
// This MUST be called within the same transaction that marks the donation
// COMPLETED.
func (r *ProjectRepo) AddToTotals(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, amountTinybar int64) error {
	query := `UPDATE projects
		SET amount_raised_tinybar = amount_raised_tinybar + $1, backers = backers + 1, updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amountTinybar, projectID)
	if err != nil {
		return fmt.Errorf("update project totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

func (r *ProjectRepo) scanProject(row pgx.Row) (*domain.Project, error) {
	p := &domain.Project{}
	err := row.Scan(
		&p.ID, &p.Title, &p.Category, &p.WalletAddress,
		&p.AmountRaisedTinybar, &p.Backers, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return p, nil
}
