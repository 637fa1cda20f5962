package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"donation-settlement-engine/internal/core/domain"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.ObserverClient against a Hedera mirror node's
// read-only REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a mirror node client for the given base URL.
func NewClient(baseURL string, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// transactionsResponse mirrors the observer's JSON shape.
type transactionsResponse struct {
	Transactions []struct {
		TransactionID      string                    `json:"transaction_id"`
		Result             string                    `json:"result"`
		ConsensusTimestamp string                    `json:"consensus_timestamp"`
		Transfers          []domain.ObserverTransfer `json:"transfers"`
	} `json:"transactions"`
}

// FindTransaction queries one textual id form. A 404 or an empty
// transaction list means "not indexed" (found == false, nil error);
// transport failures and unexpected statuses are transient errors.
func (c *Client) FindTransaction(ctx context.Context, id string) (*domain.ObserverRecord, bool, error) {
	reqURL := fmt.Sprintf("%s/api/v1/transactions/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building observer request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("querying observer: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, false, nil
	default:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, false, fmt.Errorf("observer returned status %d", resp.StatusCode)
	}

	var body transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decoding observer response: %w", err)
	}
	if len(body.Transactions) == 0 {
		return nil, false, nil
	}

	tx := body.Transactions[0]
	return &domain.ObserverRecord{
		TransactionID:      tx.TransactionID,
		Result:             tx.Result,
		ConsensusTimestamp: tx.ConsensusTimestamp,
		Transfers:          tx.Transfers,
	}, true, nil
}
