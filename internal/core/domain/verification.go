package domain

// ProbeOutcome classifies a single observer query inside the verification
// retry state machine.
type ProbeOutcome int

const (
	ProbeFound ProbeOutcome = iota
	ProbeNotFoundRetryable
	ProbeNotFoundExhausted
	ProbeTransientError
)

// ObserverRecord is one transaction as reported by the mirror observer.
type ObserverRecord struct {
	TransactionID      string
	Result             string
	ConsensusTimestamp string
	Transfers          []ObserverTransfer
}

// ObserverTransfer is a single signed balance change within a transaction.
// Positive amounts are credits, negative amounts debits.
type ObserverTransfer struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// ObserverResultSuccess is the mirror node's canonical success result.
const ObserverResultSuccess = "SUCCESS"

// VerificationResult is the resolved view of a transfer's finality.
// Valid == false with Error set means "unknown, not necessarily failed":
// the observer never confirmed within the retry budget.
type VerificationResult struct {
	Valid              bool   `json:"valid"`
	TransactionID      string `json:"transaction_id"`
	AmountTinybar      int64  `json:"amount_tinybar"`
	FromAddress        string `json:"from_address,omitempty"`
	ToAddress          string `json:"to_address,omitempty"`
	ConsensusTimestamp string `json:"consensus_timestamp,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Resolve derives a VerificationResult from an observer record. The credited
// and debited parties are identified by the sign of their transfer amount;
// the amount is the sum of positive transfers, which also covers
// multi-recipient transactions.
func Resolve(rec *ObserverRecord) *VerificationResult {
	res := &VerificationResult{
		Valid:              rec.Result == ObserverResultSuccess,
		TransactionID:      rec.TransactionID,
		ConsensusTimestamp: rec.ConsensusTimestamp,
	}
	for _, tr := range rec.Transfers {
		switch {
		case tr.Amount > 0:
			res.AmountTinybar += tr.Amount
			if res.ToAddress == "" {
				res.ToAddress = tr.Account
			}
		case tr.Amount < 0:
			if res.FromAddress == "" {
				res.FromAddress = tr.Account
			}
		}
	}
	return res
}

// Amount returns the verified amount in the display denomination.
func (r *VerificationResult) Amount() float64 {
	return FromTinybar(r.AmountTinybar)
}

// Unresolved reports whether the observer never returned a verdict. A
// resolved failure carries the record's consensus timestamp; an exhausted
// search carries none.
func (r *VerificationResult) Unresolved() bool {
	return !r.Valid && r.ConsensusTimestamp == ""
}
