package ports

import (
	"context"
	"time"

	"donation-settlement-engine/internal/core/domain"

	"github.com/google/uuid"
)

// CustodyService encrypts signing keys for storage and decrypts them for
// the duration of a single signing operation. The returned envelope embeds a
// key-format tag so callers never guess how to re-parse the plaintext.
type CustodyService interface {
	Encrypt(rawKey string, format domain.KeyFormat) (string, error)
	Decrypt(envelope string) (string, domain.KeyFormat, error)
}

// CreateAccountResult is the issued account plus its raw key material.
// The raw key must pass through custody before it is persisted anywhere.
type CreateAccountResult struct {
	Address   string
	RawKey    string
	KeyFormat domain.KeyFormat
}

// SubmitTransferRequest carries a decrypted signing key for one submission.
type SubmitTransferRequest struct {
	SenderAddress    string
	SenderKey        string
	SenderKeyFormat  domain.KeyFormat
	RecipientAddress string
	AmountTinybar    int64
	Memo             string
}

// LedgerClient submits signed transactions to the ledger network. One
// long-lived client is shared process-wide; implementations must be safe
// for concurrent use.
type LedgerClient interface {
	// CreateAccount issues a new account funded from the operator balance
	// and returns the issued address with its raw key material.
	CreateAccount(ctx context.Context, initialBalanceTinybar int64, memo string) (*CreateAccountResult, error)
	// SubmitTransfer signs and submits a value transfer, awaiting the
	// network receipt. A returned id means the receipt reported success.
	SubmitTransfer(ctx context.Context, req SubmitTransferRequest) (domain.TransactionID, error)
	// Balance returns an account's balance in tinybars.
	Balance(ctx context.Context, address string) (int64, error)
}

// ObserverClient queries the mirror service for a transaction by one
// textual id form. found == false with a nil error means the observer has
// not indexed the id (retryable); a non-nil error is transient.
type ObserverClient interface {
	FindTransaction(ctx context.Context, id string) (rec *domain.ObserverRecord, found bool, err error)
}

// TaskRunner bounds the concurrency of blocking network round trips.
type TaskRunner interface {
	// Do runs fn on the pool and waits for it, returning fn's error.
	// Blocks until a slot frees or ctx is done.
	Do(ctx context.Context, fn func(context.Context) error) error
	// Go runs fn on the pool without waiting for a result. Returns an
	// error only if no slot frees before ctx is done.
	Go(ctx context.Context, fn func(context.Context)) error
}

// TokenService issues and validates bearer tokens identifying end users.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (uuid.UUID, error)
}

// NotificationEvent is a fire-and-forget message for the notification
// collaborator. Delivery is never awaited.
type NotificationEvent struct {
	Kind          string    `json:"kind"` // wallet.created, donation.completed, donation.failed
	UserID        uuid.UUID `json:"user_id"`
	Address       string    `json:"address,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notifier publishes notification events.
type Notifier interface {
	Publish(ctx context.Context, event NotificationEvent) error
}

// --- Service Ports (Business Logic) ---

// DonationRequest holds validated input for a donation transfer.
type DonationRequest struct {
	DonorID    uuid.UUID
	ProjectID  uuid.UUID
	AmountHbar float64
	Memo       string
}

// P2PRequest holds validated input for a peer transfer.
type P2PRequest struct {
	SenderID         uuid.UUID
	RecipientAddress string
	AmountHbar       float64
	Memo             string
}

// P2PResult is the caller-visible outcome of a peer transfer.
type P2PResult struct {
	TransactionID string
	FromAddress   string
	ToAddress     string
	AmountHbar    float64
	Memo          string
}

// WalletBalance is a balance in both denominations.
type WalletBalance struct {
	Address        string
	BalanceHbar    float64
	BalanceTinybar int64
}

// SettlementService executes value transfers on the ledger network.
type SettlementService interface {
	Donate(ctx context.Context, req DonationRequest) (*domain.Donation, error)
	TransferP2P(ctx context.Context, req P2PRequest) (*P2PResult, error)
	Balance(ctx context.Context, userID uuid.UUID) (*WalletBalance, error)
	ValidateWallet(ctx context.Context, address string) (*WalletBalance, bool, error)
}

// VerificationService resolves a transfer's finality against the observer.
type VerificationService interface {
	Verify(ctx context.Context, txID string) (*domain.VerificationResult, error)
}

// ReconciliationService keeps the donation ledger consistent with the
// network. All operations are idempotent per transaction id.
type ReconciliationService interface {
	RecordTransfer(ctx context.Context, intent *domain.TransferIntent, txID string, outcome domain.TransferOutcome) (*domain.Donation, error)
	Complete(ctx context.Context, txID string) error
	Fail(ctx context.Context, txID string) error
	// Sweep re-verifies pending entries and drains the pending store.
	Sweep(ctx context.Context) error
}

// ProvisioningService issues ledger accounts.
type ProvisioningService interface {
	CreateUserWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	CreateProjectWallet(ctx context.Context, projectID uuid.UUID) (*domain.Wallet, error)
}

// TraceService joins a verification result with the stored ledger entry.
type TraceService interface {
	Trace(ctx context.Context, txID string) (*TraceResult, error)
}

// TraceResult is the public view of a traced transaction.
type TraceResult struct {
	Verification *domain.VerificationResult `json:"verification"`
	Donation     *domain.Donation           `json:"donation,omitempty"`
}
