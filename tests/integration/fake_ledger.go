package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/core/ports"
)

// fakeLedger is an in-memory ledger network that doubles as its own mirror
// observer. Balances move atomically under one lock, so a submission can
// never overdraw an account no matter how many goroutines race on it.
type fakeLedger struct {
	mu       sync.Mutex
	nextAcct int64
	nextNano int64
	balances map[string]int64
	records  map[string]*domain.ObserverRecord // keyed by mirror-form tx id
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextAcct: 1000,
		balances: make(map[string]int64),
		records:  make(map[string]*domain.ObserverRecord),
	}
}

func (l *fakeLedger) CreateAccount(ctx context.Context, initialBalanceTinybar int64, memo string) (*ports.CreateAccountResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextAcct++
	address := fmt.Sprintf("0.0.%d", l.nextAcct)
	l.balances[address] = initialBalanceTinybar
	return &ports.CreateAccountResult{
		Address:   address,
		RawKey:    fmt.Sprintf("302e0201%08x", l.nextAcct),
		KeyFormat: domain.KeyFormatECDSA,
	}, nil
}

func (l *fakeLedger) SubmitTransfer(ctx context.Context, req ports.SubmitTransferRequest) (domain.TransactionID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.SenderKey == "" {
		return domain.TransactionID{}, fmt.Errorf("missing signing key")
	}
	balance, ok := l.balances[req.SenderAddress]
	if !ok {
		return domain.TransactionID{}, fmt.Errorf("unknown sender account %s", req.SenderAddress)
	}
	if balance < req.AmountTinybar {
		return domain.TransactionID{}, fmt.Errorf("INSUFFICIENT_PAYER_BALANCE")
	}

	l.balances[req.SenderAddress] -= req.AmountTinybar
	l.balances[req.RecipientAddress] += req.AmountTinybar

	l.nextNano++
	txID := domain.TransactionID{
		Payer:   req.SenderAddress,
		Seconds: time.Now().Unix(),
		Nanos:   l.nextNano,
	}
	l.records[txID.Mirror()] = &domain.ObserverRecord{
		TransactionID:      txID.Mirror(),
		Result:             domain.ObserverResultSuccess,
		ConsensusTimestamp: fmt.Sprintf("%d.%09d", txID.Seconds, txID.Nanos),
		Transfers: []domain.ObserverTransfer{
			{Account: req.SenderAddress, Amount: -req.AmountTinybar},
			{Account: req.RecipientAddress, Amount: req.AmountTinybar},
		},
	}
	return txID, nil
}

func (l *fakeLedger) Balance(ctx context.Context, address string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[address]
	if !ok {
		return 0, fmt.Errorf("unknown account %s", address)
	}
	return balance, nil
}

// FindTransaction implements ports.ObserverClient over the submitted history.
func (l *fakeLedger) FindTransaction(ctx context.Context, id string) (*domain.ObserverRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return nil, false, nil
	}
	return rec, true, nil
}
