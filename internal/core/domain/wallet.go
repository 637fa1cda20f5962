package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletRole distinguishes custodial user wallets from project wallets.
type WalletRole string

const (
	WalletRoleUser    WalletRole = "USER"
	WalletRoleProject WalletRole = "PROJECT"
)

// KeyFormat tags the encoding of a signing key so decryption never has to
// guess how to re-parse the plaintext.
type KeyFormat string

const (
	KeyFormatECDSA   KeyFormat = "ecdsa"
	KeyFormatED25519 KeyFormat = "ed25519"
)

// Wallet is a ledger account held on behalf of a user or project.
//
// Every wallet carries its signing key encrypted at rest. The engine only
// ever signs with user wallets; project wallets receive donations and their
// key stays in custody untouched.
type Wallet struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	Role         WalletRole `json:"role"`
	Address      string     `json:"address"`
	EncryptedKey *string    `json:"-"` // custody envelope, never expose
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanSign reports whether this wallet has custodied key material.
func (w *Wallet) CanSign() bool {
	return w.Role == WalletRoleUser && w.EncryptedKey != nil && *w.EncryptedKey != ""
}
