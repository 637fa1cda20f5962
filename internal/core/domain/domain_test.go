package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTinybar(t *testing.T) {
	tests := []struct {
		name string
		hbar float64
		want int64
	}{
		{"one", 1, 100_000_000},
		{"five", 5.0, 500_000_000},
		{"fractional", 0.5, 50_000_000},
		{"smallest", 0.00000001, 1},
		{"rounds", 0.000000014, 1},
		{"rounds up", 0.000000016, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTinybar(tt.hbar)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToTinybar_Overflow(t *testing.T) {
	_, err := ToTinybar(1e12)
	assert.Error(t, err)

	_, err = ToTinybar(math.NaN())
	assert.Error(t, err)

	_, err = ToTinybar(math.Inf(1))
	assert.Error(t, err)
}

func TestFromTinybar_RoundTrip(t *testing.T) {
	for _, hbar := range []float64{0.00000001, 1, 5.0, 123.456, 9999.99999999} {
		tb, err := ToTinybar(hbar)
		require.NoError(t, err)
		assert.InDelta(t, hbar, FromTinybar(tb), 1e-9)
	}
}

func TestParseTransactionID_Forms(t *testing.T) {
	want := TransactionID{Payer: "0.0.1234", Seconds: 1700000000, Nanos: 123456789}

	for _, form := range []string{
		"0.0.1234@1700000000.123456789",
		"0.0.1234-1700000000.123456789",
		"0.0.1234-1700000000-123456789",
	} {
		got, err := ParseTransactionID(form)
		require.NoError(t, err, form)
		assert.Equal(t, want, got, form)
	}
}

func TestTransactionID_Render(t *testing.T) {
	id := TransactionID{Payer: "0.0.1234", Seconds: 1700000000, Nanos: 7}

	assert.Equal(t, "0.0.1234@1700000000.7", id.Native())
	assert.Equal(t, "0.0.1234-1700000000.7", id.Storage())
	assert.Equal(t, "0.0.1234-1700000000-000000007", id.Mirror())
}

func TestTransactionID_StorageRoundTrip(t *testing.T) {
	id := TransactionID{Payer: "0.0.99", Seconds: 1614997926, Nanos: 774912965}

	parsed, err := ParseTransactionID(id.Storage())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Equal(t, id.Native(), parsed.Native())
}

func TestParseTransactionID_Malformed(t *testing.T) {
	for _, s := range []string{"", "abc", "0.0.1234", "0.0.1234@", "0.0.1234@x.y", "1234-1-2", "0.0.1234-"} {
		_, err := ParseTransactionID(s)
		assert.Error(t, err, s)
	}
}

func TestIsAccountID(t *testing.T) {
	assert.True(t, IsAccountID("0.0.100"))
	assert.True(t, IsAccountID("1.2.3456789"))
	assert.False(t, IsAccountID("0.0"))
	assert.False(t, IsAccountID("0.0.100.1"))
	assert.False(t, IsAccountID("0.0.abc"))
	assert.False(t, IsAccountID(""))
}

func TestTransferIntent_Validate(t *testing.T) {
	maxTinybar := int64(10_000 * TinybarPerHbar)

	valid := TransferIntent{
		SenderAddress:    "0.0.100",
		RecipientAddress: "0.0.200",
		AmountTinybar:    500_000_000,
	}
	assert.NoError(t, valid.Validate(maxTinybar))

	tests := []struct {
		name   string
		mutate func(*TransferIntent)
	}{
		{"zero amount", func(i *TransferIntent) { i.AmountTinybar = 0 }},
		{"negative amount", func(i *TransferIntent) { i.AmountTinybar = -1 }},
		{"over maximum", func(i *TransferIntent) { i.AmountTinybar = maxTinybar + 1 }},
		{"self transfer", func(i *TransferIntent) { i.RecipientAddress = i.SenderAddress }},
		{"bad sender", func(i *TransferIntent) { i.SenderAddress = "not-an-account" }},
		{"bad recipient", func(i *TransferIntent) { i.RecipientAddress = "0x1234" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := valid
			tt.mutate(&i)
			assert.Error(t, i.Validate(maxTinybar))
		})
	}
}

func TestResolve_TwoPartyTransfer(t *testing.T) {
	rec := &ObserverRecord{
		TransactionID:      "0.0.100-1700000000-000000001",
		Result:             ObserverResultSuccess,
		ConsensusTimestamp: "1700000005.000000001",
		Transfers: []ObserverTransfer{
			{Account: "0.0.100", Amount: -500_000_000},
			{Account: "0.0.200", Amount: 500_000_000},
		},
	}

	res := Resolve(rec)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(500_000_000), res.AmountTinybar)
	assert.InDelta(t, 5.0, res.Amount(), 1e-9)
	assert.Equal(t, "0.0.100", res.FromAddress)
	assert.Equal(t, "0.0.200", res.ToAddress)
}

func TestResolve_MultiRecipient(t *testing.T) {
	rec := &ObserverRecord{
		Result: ObserverResultSuccess,
		Transfers: []ObserverTransfer{
			{Account: "0.0.100", Amount: -300},
			{Account: "0.0.200", Amount: 100},
			{Account: "0.0.300", Amount: 200},
		},
	}

	res := Resolve(rec)
	assert.Equal(t, int64(300), res.AmountTinybar)
	assert.Equal(t, "0.0.200", res.ToAddress)
}

func TestDonation_Lifecycle(t *testing.T) {
	d := &Donation{Status: DonationStatusPending, AmountTinybar: 500_000_000}
	assert.False(t, d.IsTerminal())
	assert.InDelta(t, 5.0, d.Amount(), 1e-9)

	d.Status = DonationStatusCompleted
	assert.True(t, d.IsTerminal())
}

func TestWallet_CanSign(t *testing.T) {
	env := "v1:ecdsa:deadbeef"
	assert.True(t, (&Wallet{Role: WalletRoleUser, EncryptedKey: &env}).CanSign())
	assert.False(t, (&Wallet{Role: WalletRoleProject, EncryptedKey: &env}).CanSign())
	assert.False(t, (&Wallet{Role: WalletRoleUser}).CanSign())
}
