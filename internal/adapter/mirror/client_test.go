package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successBody = `{
  "transactions": [
    {
      "transaction_id": "0.0.100-1700000000-000000001",
      "result": "SUCCESS",
      "consensus_timestamp": "1700000005.000000001",
      "transfers": [
        {"account": "0.0.100", "amount": -500000000},
        {"account": "0.0.200", "amount": 500000000},
        {"account": "0.0.98", "amount": 73128}
      ]
    }
  ]
}`

func TestClient_FindTransaction_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions/0.0.100-1700000000-000000001", r.URL.Path)
		w.Write([]byte(successBody)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, zerolog.Nop())
	rec, found, err := c.FindTransaction(context.Background(), "0.0.100-1700000000-000000001")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "SUCCESS", rec.Result)
	assert.Equal(t, "1700000005.000000001", rec.ConsensusTimestamp)
	require.Len(t, rec.Transfers, 3)
	assert.Equal(t, int64(-500000000), rec.Transfers[0].Amount)
}

func TestClient_FindTransaction_NotIndexed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, zerolog.Nop())
	rec, found, err := c.FindTransaction(context.Background(), "0.0.100-1700000000-000000001")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestClient_FindTransaction_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transactions": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, zerolog.Nop())
	_, found, err := c.FindTransaction(context.Background(), "0.0.100-1-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_FindTransaction_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, zerolog.Nop())
	_, _, err := c.FindTransaction(context.Background(), "0.0.100-1-2")
	assert.Error(t, err)
}

func TestClient_FindTransaction_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	c := NewClient(srv.URL, nil, zerolog.Nop())
	_, _, err := c.FindTransaction(context.Background(), "0.0.100-1-2")
	assert.Error(t, err)
}
