package ledger

import (
	"context"
	"fmt"

	"donation-settlement-engine/config"
	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/apperror"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/rs/zerolog"
)

// Client implements ports.LedgerClient on the Hedera network.
//
// One Client is constructed at startup and shared process-wide; the
// underlying SDK client is safe for concurrent submissions. Per-sender
// serialization is the settlement service's responsibility.
type Client struct {
	client      *hedera.Client
	operatorID  hedera.AccountID
	operatorKey hedera.PrivateKey
	log         zerolog.Logger
}

// NewClient builds the authenticated network client from the operator
// identity. Malformed operator configuration fails startup outright.
func NewClient(cfg config.LedgerConfig, log zerolog.Logger) (*Client, error) {
	client, err := hedera.ClientForName(cfg.Network)
	if err != nil {
		return nil, apperror.ErrConfiguration(fmt.Errorf("unknown network %q: %w", cfg.Network, err))
	}

	operatorID, err := hedera.AccountIDFromString(cfg.OperatorID)
	if err != nil {
		return nil, apperror.ErrConfiguration(fmt.Errorf("operator id %q: %w", cfg.OperatorID, err))
	}
	operatorKey, err := hedera.PrivateKeyFromString(cfg.OperatorKey)
	if err != nil {
		return nil, apperror.ErrConfiguration(fmt.Errorf("operator key: %w", err))
	}

	client.SetOperator(operatorID, operatorKey)
	if cfg.RequestTimeout > 0 {
		timeout := cfg.RequestTimeout
		client.SetRequestTimeout(&timeout)
	}

	log.Info().
		Str("network", cfg.Network).
		Str("operator", operatorID.String()).
		Msg("ledger client initialised")

	return &Client{
		client:      client,
		operatorID:  operatorID,
		operatorKey: operatorKey,
		log:         log,
	}, nil
}

// Close releases the client's network connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// CreateAccount issues a new ECDSA account funded from the operator balance.
// Blocks for the network round trip; callers dispatch it on the worker pool.
func (c *Client) CreateAccount(ctx context.Context, initialBalanceTinybar int64, memo string) (*ports.CreateAccountResult, error) {
	newKey, err := hedera.PrivateKeyGenerateEcdsa()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generating key pair: %w", err))
	}

	tx, err := hedera.NewAccountCreateTransaction().
		SetKey(newKey.PublicKey()).
		SetInitialBalance(hedera.HbarFromTinybar(initialBalanceTinybar)).
		SetAccountMemo(memo).
		FreezeWith(c.client)
	if err != nil {
		return nil, apperror.ErrNetworkUnavailable(fmt.Errorf("freezing account creation: %w", err))
	}

	resp, err := tx.Sign(c.operatorKey).Execute(c.client)
	if err != nil {
		return nil, apperror.ErrNetworkUnavailable(fmt.Errorf("submitting account creation: %w", err))
	}

	receipt, err := resp.GetReceipt(c.client)
	if err != nil {
		return nil, apperror.ErrAccountCreationFailed(fmt.Errorf("awaiting receipt: %w", err))
	}
	if receipt.Status != hedera.StatusSuccess {
		return nil, apperror.ErrAccountCreationFailed(fmt.Errorf("receipt status: %s (%d)", receipt.Status, receipt.Status))
	}
	if receipt.AccountID == nil {
		return nil, apperror.ErrAccountCreationFailed(fmt.Errorf("receipt carries no account id"))
	}

	address := receipt.AccountID.String()
	c.log.Info().Str("address", address).Msg("ledger account created")

	return &ports.CreateAccountResult{
		Address:   address,
		RawKey:    newKey.String(),
		KeyFormat: domain.KeyFormatECDSA,
	}, nil
}

// SubmitTransfer builds, signs and submits a two-party value transfer,
// then awaits the network's authoritative receipt.
func (c *Client) SubmitTransfer(ctx context.Context, req ports.SubmitTransferRequest) (domain.TransactionID, error) {
	sender, err := hedera.AccountIDFromString(req.SenderAddress)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrInvalidAddress(req.SenderAddress)
	}
	recipient, err := hedera.AccountIDFromString(req.RecipientAddress)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrInvalidAddress(req.RecipientAddress)
	}

	senderKey, err := parseKey(req.SenderKey, req.SenderKeyFormat)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrInvalidCustodyState(err)
	}

	// Equal and opposite legs. Anything else would mint or burn value.
	debit, credit := -req.AmountTinybar, req.AmountTinybar
	if debit+credit != 0 {
		return domain.TransactionID{}, apperror.InternalError(fmt.Errorf("unbalanced transfer: %d + %d != 0", debit, credit))
	}

	builder := hedera.NewTransferTransaction().
		AddHbarTransfer(sender, hedera.HbarFromTinybar(debit)).
		AddHbarTransfer(recipient, hedera.HbarFromTinybar(credit))
	if req.Memo != "" {
		builder.SetTransactionMemo(req.Memo)
	}

	tx, err := builder.FreezeWith(c.client)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrNetworkUnavailable(fmt.Errorf("freezing transfer: %w", err))
	}

	resp, err := tx.Sign(senderKey).Execute(c.client)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrNetworkUnavailable(fmt.Errorf("submitting transfer: %w", err))
	}

	receipt, err := resp.GetReceipt(c.client)
	if err != nil {
		return domain.TransactionID{}, apperror.ErrTransferFailed(fmt.Errorf("awaiting receipt: %w", err))
	}
	if receipt.Status != hedera.StatusSuccess {
		return domain.TransactionID{}, apperror.ErrTransferFailed(fmt.Errorf("receipt status: %s (%d)", receipt.Status, receipt.Status))
	}

	txID, err := domain.ParseTransactionID(resp.TransactionID.String())
	if err != nil {
		return domain.TransactionID{}, apperror.InternalError(fmt.Errorf("parsing transaction id: %w", err))
	}

	c.log.Info().
		Str("tx_id", txID.Storage()).
		Int64("amount_tinybar", req.AmountTinybar).
		Msg("transfer confirmed at submission")

	return txID, nil
}

// Balance returns the account's balance in tinybars. Advisory only: the
// network remains authoritative at submission time.
func (c *Client) Balance(ctx context.Context, address string) (int64, error) {
	account, err := hedera.AccountIDFromString(address)
	if err != nil {
		return 0, apperror.ErrInvalidAddress(address)
	}

	balance, err := hedera.NewAccountBalanceQuery().
		SetAccountID(account).
		Execute(c.client)
	if err != nil {
		return 0, apperror.ErrNetworkUnavailable(fmt.Errorf("balance query for %s: %w", address, err))
	}

	return balance.Hbars.AsTinybar(), nil
}

// parseKey decodes a raw signing key using its explicit format tag.
func parseKey(raw string, format domain.KeyFormat) (hedera.PrivateKey, error) {
	switch format {
	case domain.KeyFormatECDSA:
		return hedera.PrivateKeyFromStringECDSA(raw)
	case domain.KeyFormatED25519:
		return hedera.PrivateKeyFromStringEd25519(raw)
	default:
		return hedera.PrivateKey{}, fmt.Errorf("unknown key format %q", format)
	}
}
