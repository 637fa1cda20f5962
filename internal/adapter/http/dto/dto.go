package dto

// DonationRequest is the request body for making a donation.
type DonationRequest struct {
	ProjectID string  `json:"project_id" binding:"required,uuid"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Memo      string  `json:"memo" binding:"max=100"`
}

// TransferRequest is the request body for a peer-to-peer transfer.
type TransferRequest struct {
	RecipientAddress string  `json:"recipient_address" binding:"required,account_id"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	Memo             string  `json:"memo" binding:"max=100"`
}

// DonationResponse is the response body for a settled donation.
type DonationResponse struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

// TransferResponse is the response body for a settled peer transfer.
type TransferResponse struct {
	TransactionID string  `json:"transaction_id"`
	FromAddress   string  `json:"from_address"`
	ToAddress     string  `json:"to_address"`
	Amount        float64 `json:"amount"`
	Memo          string  `json:"memo,omitempty"`
}

// WalletResponse is the response body for a provisioned wallet.
type WalletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Role      string `json:"role"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Address        string  `json:"address"`
	Balance        float64 `json:"balance"`
	BalanceTinybar int64   `json:"balance_tinybar"`
}

// ValidateWalletResponse is the response for an address check.
type ValidateWalletResponse struct {
	Address string  `json:"address"`
	Valid   bool    `json:"valid"`
	Balance float64 `json:"balance,omitempty"`
}

// DonationListResponse wraps a donor's completed donation history.
type DonationListResponse struct {
	Items []DonationResponse `json:"items"`
	Total int                `json:"total"`
}
