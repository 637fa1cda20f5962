package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TransactionID is a parsed Hedera transaction identifier.
//
// The network renders it as "0.0.N@seconds.nanos". The '@' separator is
// unusable in URL path segments, so records store "0.0.N-seconds.nanos"
// instead, and the mirror node expects "0.0.N-seconds-nanos" with the nanos
// zero-padded to nine digits. Parsing into this struct once and rendering
// the needed form keeps the three representations interconvertible.
type TransactionID struct {
	Payer   string // payer account, e.g. "0.0.1234"
	Seconds int64  // valid-start seconds
	Nanos   int64  // valid-start nanos
}

// ParseTransactionID accepts any of the three textual forms.
func ParseTransactionID(s string) (TransactionID, error) {
	payer, rest, ok := strings.Cut(s, "@")
	if !ok {
		// Storage or mirror form: the separator after the payer account is
		// the third '-' never appears inside an account id, so split on the
		// first '-' following the account's last digit.
		i := accountEnd(s)
		if i < 0 || i >= len(s) || s[i] != '-' {
			return TransactionID{}, fmt.Errorf("malformed transaction id %q", s)
		}
		payer, rest = s[:i], s[i+1:]
	}

	if !IsAccountID(payer) {
		return TransactionID{}, fmt.Errorf("malformed payer account in transaction id %q", s)
	}

	secStr, nanoStr, ok := strings.Cut(rest, ".")
	if !ok {
		secStr, nanoStr, ok = strings.Cut(rest, "-")
	}
	if !ok {
		return TransactionID{}, fmt.Errorf("missing valid-start timestamp in transaction id %q", s)
	}

	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return TransactionID{}, fmt.Errorf("invalid seconds in transaction id %q: %w", s, err)
	}
	nanos, err := strconv.ParseInt(nanoStr, 10, 64)
	if err != nil {
		return TransactionID{}, fmt.Errorf("invalid nanos in transaction id %q: %w", s, err)
	}

	return TransactionID{Payer: payer, Seconds: sec, Nanos: nanos}, nil
}

// Native renders the network's own representation: "0.0.N@seconds.nanos".
func (t TransactionID) Native() string {
	return fmt.Sprintf("%s@%d.%d", t.Payer, t.Seconds, t.Nanos)
}

// Storage renders the URL-safe form persisted in ledger entries:
// "0.0.N-seconds.nanos". Storage and Native round-trip losslessly.
func (t TransactionID) Storage() string {
	return fmt.Sprintf("%s-%d.%d", t.Payer, t.Seconds, t.Nanos)
}

// Mirror renders the mirror node's canonical query form:
// "0.0.N-seconds-nanos" with nine-digit nanos.
func (t TransactionID) Mirror() string {
	return fmt.Sprintf("%s-%d-%09d", t.Payer, t.Seconds, t.Nanos)
}

// QueryForms returns the textual forms to try against the observer, in
// priority order. The mirror canonical form resolves in the common case;
// the others cover observers that index the raw submission id.
func (t TransactionID) QueryForms() []string {
	return []string{t.Mirror(), t.Storage(), t.Native()}
}

// IsAccountID reports whether s looks like a ledger account id ("0.0.N").
func IsAccountID(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// accountEnd returns the index just past the "shard.realm.num" prefix of s,
// or -1 if s does not start with one.
func accountEnd(s string) int {
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
		case s[i] == '.' && dots < 2:
			dots++
		default:
			if dots == 2 && i > 0 {
				return i
			}
			return -1
		}
	}
	return -1
}
