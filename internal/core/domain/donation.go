package domain

import (
	"time"

	"github.com/google/uuid"
)

// DonationStatus is the reconciliation state of a ledger entry.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "PENDING"
	DonationStatusCompleted DonationStatus = "COMPLETED"
	DonationStatusFailed    DonationStatus = "FAILED"
)

// Donation is the application-level ledger entry for a settled transfer.
// TransactionID (storage form) is unique, which is what makes repeated
// reconciliation of the same transfer idempotent.
type Donation struct {
	ID            uuid.UUID      `json:"id"`
	DonorID       uuid.UUID      `json:"donor_id"`
	ProjectID     uuid.UUID      `json:"project_id"`
	AmountTinybar int64          `json:"amount_tinybar"`
	TransactionID string         `json:"transaction_id"`
	Status        DonationStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Amount returns the donation amount in the display denomination.
func (d *Donation) Amount() float64 {
	return FromTinybar(d.AmountTinybar)
}

// IsTerminal reports whether the entry has reached a final state.
func (d *Donation) IsTerminal() bool {
	return d.Status == DonationStatusCompleted || d.Status == DonationStatusFailed
}
