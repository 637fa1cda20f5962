package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TransferOutcome is what the caller knows about a submission when it hands
// the transfer to reconciliation.
type TransferOutcome string

const (
	OutcomeSubmitted TransferOutcome = "SUBMITTED"
	OutcomeConfirmed TransferOutcome = "CONFIRMED"
	OutcomeFailed    TransferOutcome = "FAILED"
	OutcomeUnknown   TransferOutcome = "UNKNOWN"
)

// TransferIntent captures a value transfer before submission.
type TransferIntent struct {
	SenderAddress    string
	SenderEnvelope   string // custody envelope of the sender's signing key
	RecipientAddress string
	AmountTinybar    int64
	Memo             string

	// Donation linkage; zero UUIDs for peer transfers.
	DonorID   uuid.UUID
	ProjectID uuid.UUID
}

// Validate enforces the invariants that must hold before any network call:
// a positive amount no larger than maxTinybar, distinct parties, and
// well-formed addresses.
func (i *TransferIntent) Validate(maxTinybar int64) error {
	if i.AmountTinybar <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if maxTinybar > 0 && i.AmountTinybar > maxTinybar {
		return fmt.Errorf("amount exceeds the per-transaction maximum of %g", FromTinybar(maxTinybar))
	}
	if !IsAccountID(i.SenderAddress) {
		return fmt.Errorf("invalid sender address %q", i.SenderAddress)
	}
	if !IsAccountID(i.RecipientAddress) {
		return fmt.Errorf("invalid recipient address %q", i.RecipientAddress)
	}
	if i.SenderAddress == i.RecipientAddress {
		return fmt.Errorf("sender and recipient must differ")
	}
	return nil
}
