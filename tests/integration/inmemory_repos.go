package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.Role == w.Role {
			return fmt.Errorf("wallet already exists for owner")
		}
	}
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, role domain.WalletRole) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.Role == role {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.Address == address {
			return w, nil
		}
	}
	return nil, nil
}

// --- In-Memory Donation Repo ---

type inMemoryDonationRepo struct {
	mu        sync.RWMutex
	donations map[uuid.UUID]*domain.Donation
	byTxID    map[string]uuid.UUID
}

func newInMemoryDonationRepo() *inMemoryDonationRepo {
	return &inMemoryDonationRepo{
		donations: make(map[uuid.UUID]*domain.Donation),
		byTxID:    make(map[string]uuid.UUID),
	}
}

func (r *inMemoryDonationRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTxID[d.TransactionID]; exists {
		return ports.ErrDuplicateTransaction
	}
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	r.donations[d.ID] = &cp
	r.byTxID[d.TransactionID] = d.ID
	return nil
}

func (r *inMemoryDonationRepo) GetByTransactionID(ctx context.Context, txID string) (*domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTxID[txID]
	if !ok {
		return nil, nil
	}
	cp := *r.donations[id]
	return &cp, nil
}

func (r *inMemoryDonationRepo) GetByTransactionIDForUpdate(ctx context.Context, tx pgx.Tx, txID string) (*domain.Donation, error) {
	return r.GetByTransactionID(ctx, txID)
}

func (r *inMemoryDonationRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.DonationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.donations[id]
	if !ok {
		return fmt.Errorf("donation not found")
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryDonationRepo) ListCompletedByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Donation
	for _, d := range r.donations {
		if d.DonorID == donorID && d.Status == domain.DonationStatusCompleted {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *inMemoryDonationRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Donation
	for _, d := range r.donations {
		if d.Status == domain.DonationStatusPending && d.CreatedAt.Before(createdBefore) {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Project Repo ---

type inMemoryProjectRepo struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*domain.Project
}

func newInMemoryProjectRepo() *inMemoryProjectRepo {
	return &inMemoryProjectRepo{projects: make(map[uuid.UUID]*domain.Project)}
}

func (r *inMemoryProjectRepo) seed(p *domain.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
}

func (r *inMemoryProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryProjectRepo) GetByWalletAddress(ctx context.Context, address string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.projects {
		if p.WalletAddress == address {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryProjectRepo) AddToTotals(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, amountTinybar int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	p.AmountRaisedTinybar += amountTinybar
	p.Backers++
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
