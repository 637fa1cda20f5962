package ledger

import (
	"testing"
	"time"

	"donation-settlement-engine/config"
	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/pkg/apperror"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_MalformedOperator(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LedgerConfig
	}{
		{"bad network", config.LedgerConfig{Network: "moonnet"}},
		{"bad operator id", config.LedgerConfig{Network: "testnet", OperatorID: "not-an-account"}},
		{"bad operator key", config.LedgerConfig{Network: "testnet", OperatorID: "0.0.2", OperatorKey: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg, zerolog.Nop())
			require.Error(t, err)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "CFG_001", appErr.Code)
		})
	}
}

func TestNewClient_AppliesRequestTimeout(t *testing.T) {
	operatorKey, err := hedera.PrivateKeyGenerateEcdsa()
	require.NoError(t, err)

	c, err := NewClient(config.LedgerConfig{
		Network:        "testnet",
		OperatorID:     "0.0.2",
		OperatorKey:    operatorKey.String(),
		RequestTimeout: 10 * time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.client.GetRequestTimeout())
	assert.Equal(t, 10*time.Second, *c.client.GetRequestTimeout())
}

func TestParseKey_FormatTag(t *testing.T) {
	ecdsaKey, err := hedera.PrivateKeyGenerateEcdsa()
	require.NoError(t, err)

	parsed, err := parseKey(ecdsaKey.String(), domain.KeyFormatECDSA)
	require.NoError(t, err)
	assert.Equal(t, ecdsaKey.PublicKey().String(), parsed.PublicKey().String())

	edKey, err := hedera.PrivateKeyGenerateEd25519()
	require.NoError(t, err)

	parsed, err = parseKey(edKey.String(), domain.KeyFormatED25519)
	require.NoError(t, err)
	assert.Equal(t, edKey.PublicKey().String(), parsed.PublicKey().String())

	_, err = parseKey(ecdsaKey.String(), "rsa")
	assert.Error(t, err)
}
