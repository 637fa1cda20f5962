package postgres

import (
	"context"
	"testing"
	"time"

	"donation-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject() *domain.Project {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Project{
		ID:                  uuid.New(),
		Title:               "Clean Water Initiative",
		Category:            "infrastructure",
		WalletAddress:       "0.0.5678",
		AmountRaisedTinybar: 1500000000,
		Backers:             3,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func projectColumns() []string {
	return []string{"id", "title", "category", "wallet_address", "amount_raised_tinybar",
		"backers", "created_at", "updated_at"}
}

func projectRow(p *domain.Project) *pgxmock.Rows {
	return pgxmock.NewRows(projectColumns()).AddRow(
		p.ID, p.Title, p.Category, p.WalletAddress,
		p.AmountRaisedTinybar, p.Backers, p.CreatedAt, p.UpdatedAt,
	)
}

func TestProjectRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProjectRepo(mock)
	p := newTestProject()

	mock.ExpectQuery("SELECT .+ FROM projects WHERE id").
		WithArgs(p.ID).
		WillReturnRows(projectRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.WalletAddress, result.WalletAddress)
	assert.Equal(t, 15.0, result.AmountRaised())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProjectRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM projects WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(projectColumns()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestProjectRepo_GetByWalletAddress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProjectRepo(mock)
	p := newTestProject()

	mock.ExpectQuery("SELECT .+ FROM projects WHERE wallet_address").
		WithArgs(p.WalletAddress).
		WillReturnRows(projectRow(p))

	result, err := repo.GetByWalletAddress(context.Background(), p.WalletAddress)
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_AddToTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProjectRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE projects").
		WithArgs(int64(500000000), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AddToTotals(context.Background(), dbTx, id, 500000000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_AddToTotals_UnknownProject(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProjectRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE projects").
		WithArgs(int64(100), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.AddToTotals(context.Background(), dbTx, id, 100)
	assert.Error(t, err)
}
