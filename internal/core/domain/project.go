package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project is a fundraising project with its receiving wallet and running
// totals. Totals are mutated only by reconciliation, on the transition into
// COMPLETED, and never decremented.
type Project struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Category            string    `json:"category"`
	WalletAddress       string    `json:"wallet_address"`
	AmountRaisedTinybar int64     `json:"amount_raised_tinybar"`
	Backers             int64     `json:"backers"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AmountRaised returns the cumulative total in the display denomination.
func (p *Project) AmountRaised() float64 {
	return FromTinybar(p.AmountRaisedTinybar)
}
