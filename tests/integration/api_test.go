package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "donation-settlement-engine/internal/adapter/http/handler"
	redisStorage "donation-settlement-engine/internal/adapter/storage/redis"
	"donation-settlement-engine/internal/core/domain"
	"donation-settlement-engine/internal/service"
	"donation-settlement-engine/internal/worker"
	"donation-settlement-engine/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires the real HTTP layer, middleware, services, custody, and
// Redis stores (miniredis) against an in-memory ledger network and
// in-memory postgres repos. Only the process boundary is faked; every
// settlement flows through the same code paths as production.
type testApp struct {
	server    *httptest.Server
	redis     *miniredis.Miniredis
	rdb       *goredis.Client
	ledger    *fakeLedger
	wallets   *inMemoryWalletRepo
	donations *inMemoryDonationRepo
	projects  *inMemoryProjectRepo
	tokenSvc  *service.JWTTokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("debug", false)

	walletRepo := newInMemoryWalletRepo()
	donationRepo := newInMemoryDonationRepo()
	projectRepo := newInMemoryProjectRepo()
	transactor := newInMemoryTransactor()
	pendingStore := redisStorage.NewPendingStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	custodySvc, err := service.NewAESCustodyService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	net := newFakeLedger()
	runner := worker.New(4, log)

	verificationSvc := service.NewVerificationService(net, runner, 0, 3, log)
	reconciliationSvc := service.NewReconciliationService(
		transactor, donationRepo, projectRepo, pendingStore, verificationSvc, nil, 2*time.Minute, 50, log,
	)
	settlementSvc, err := service.NewSettlementService(
		walletRepo, projectRepo, custodySvc, net, runner, reconciliationSvc, 1000.0, log,
	)
	require.NoError(t, err)
	provisioningSvc := service.NewProvisioningService(walletRepo, custodySvc, net, runner, nil, 10.0, log)
	traceSvc := service.NewTraceService(verificationSvc, donationRepo, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SettlementSvc:   settlementSvc,
		ProvisioningSvc: provisioningSvc,
		TraceSvc:        traceSvc,
		DonationRepo:    donationRepo,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		Logger:          log,
	})

	return &testApp{
		server:    httptest.NewServer(router),
		redis:     mr,
		rdb:       rdb,
		ledger:    net,
		wallets:   walletRepo,
		donations: donationRepo,
		projects:  projectRepo,
		tokenSvc:  tokenSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.rdb.Close()
	a.redis.Close()
}

func (a *testApp) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(userID)
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, path, token string, body string) *http.Response {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

// provisionUser creates a funded wallet through the API and returns its address.
func (a *testApp) provisionUser(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	resp := a.do(t, "POST", "/api/v1/wallets", a.token(t, userID), "")
	require.Equal(t, 201, resp.StatusCode)
	data := decodeData(t, resp)
	return data["address"].(string)
}

// seedProject provisions a receiving wallet for a new project and registers
// the project with it.
func (a *testApp) seedProject(t *testing.T, title string) *domain.Project {
	t.Helper()
	projectID := uuid.New()
	operatorID := uuid.New()
	resp := a.do(t, "POST", fmt.Sprintf("/api/v1/projects/%s/wallet", projectID), a.token(t, operatorID), "")
	require.Equal(t, 201, resp.StatusCode)
	data := decodeData(t, resp)

	project := &domain.Project{
		ID:            projectID,
		Title:         title,
		Category:      "water",
		WalletAddress: data["address"].(string),
	}
	a.projects.seed(project)
	return project
}

func TestDonation_EndToEnd(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	donorID := uuid.New()
	token := app.token(t, donorID)
	donorAddr := app.provisionUser(t, donorID)
	project := app.seedProject(t, "Village Well")

	// Donate 5.0 HBAR of the 10.0 the wallet was funded with.
	body := fmt.Sprintf(`{"project_id":"%s","amount":5.0,"memo":"for the well"}`, project.ID)
	resp := app.do(t, "POST", "/api/v1/donations", token, body)
	require.Equal(t, 201, resp.StatusCode)
	donation := decodeData(t, resp)

	assert.Equal(t, "COMPLETED", donation["status"])
	assert.Equal(t, 5.0, donation["amount"])
	txID := donation["transaction_id"].(string)
	require.NotEmpty(t, txID)

	// Funds moved on the ledger.
	resp = app.do(t, "GET", "/api/v1/wallets/balance", token, "")
	require.Equal(t, 200, resp.StatusCode)
	balance := decodeData(t, resp)
	assert.Equal(t, 5.0, balance["balance"])
	assert.Equal(t, donorAddr, balance["address"])

	projectBalance, err := app.ledger.Balance(context.Background(), project.WalletAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(1500000000), projectBalance) // 10 funded at provisioning + 5 donated

	// Project totals credited exactly once.
	stored, err := app.projects.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000000), stored.AmountRaisedTinybar)
	assert.Equal(t, int64(1), stored.Backers)

	// Donation history shows the completed entry.
	resp = app.do(t, "GET", "/api/v1/donations", token, "")
	require.Equal(t, 200, resp.StatusCode)
	history := decodeData(t, resp)
	assert.Equal(t, float64(1), history["total"])

	// The public trace joins the observer view with the ledger entry.
	resp = app.do(t, "GET", "/api/v1/transactions/"+txID+"/trace", "", "")
	require.Equal(t, 200, resp.StatusCode)
	trace := decodeData(t, resp)
	verification := trace["verification"].(map[string]interface{})
	assert.Equal(t, true, verification["valid"])
	assert.Equal(t, float64(500000000), verification["amount_tinybar"])
	assert.Equal(t, donorAddr, verification["from_address"])
	assert.Equal(t, project.WalletAddress, verification["to_address"])
	require.NotNil(t, trace["donation"])
}

func TestDonation_InsufficientBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	donorID := uuid.New()
	token := app.token(t, donorID)
	app.provisionUser(t, donorID)
	project := app.seedProject(t, "Library")

	body := fmt.Sprintf(`{"project_id":"%s","amount":50.0}`, project.ID)
	resp := app.do(t, "POST", "/api/v1/donations", token, body)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)

	// Nothing was recorded and nothing moved.
	resp = app.do(t, "GET", "/api/v1/donations", token, "")
	history := decodeData(t, resp)
	assert.Equal(t, float64(0), history["total"])

	stored, err := app.projects.GetByID(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.AmountRaisedTinybar)
}

func TestWalletProvisioning_Idempotent(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	userID := uuid.New()
	first := app.provisionUser(t, userID)

	resp := app.do(t, "POST", "/api/v1/wallets", app.token(t, userID), "")
	require.Equal(t, 201, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, first, data["address"], "repeat provisioning must return the same wallet")
}

func TestTransferP2P_NotInDonationLedger(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	senderID := uuid.New()
	recipientID := uuid.New()
	token := app.token(t, senderID)
	app.provisionUser(t, senderID)
	recipientAddr := app.provisionUser(t, recipientID)

	body := fmt.Sprintf(`{"recipient_address":"%s","amount":2.5,"memo":"lunch"}`, recipientAddr)
	resp := app.do(t, "POST", "/api/v1/transfers", token, body)
	require.Equal(t, 201, resp.StatusCode)
	transfer := decodeData(t, resp)
	assert.Equal(t, recipientAddr, transfer["to_address"])
	assert.Equal(t, 2.5, transfer["amount"])

	recipientBalance, err := app.ledger.Balance(context.Background(), recipientAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1250000000), recipientBalance) // 10 funded + 2.5 received

	// Peer transfers never show up in the donation ledger.
	resp = app.do(t, "GET", "/api/v1/donations", token, "")
	history := decodeData(t, resp)
	assert.Equal(t, float64(0), history["total"])
}

func TestValidateWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	userID := uuid.New()
	token := app.token(t, userID)
	addr := app.provisionUser(t, userID)

	resp := app.do(t, "GET", "/api/v1/wallets/validate/"+addr, token, "")
	require.Equal(t, 200, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, true, data["valid"])

	resp = app.do(t, "GET", "/api/v1/wallets/validate/0.0.999999", token, "")
	require.Equal(t, 200, resp.StatusCode)
	data = decodeData(t, resp)
	assert.Equal(t, false, data["valid"])
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	for _, route := range []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/wallets"},
		{"GET", "/api/v1/wallets/balance"},
		{"POST", "/api/v1/donations"},
		{"GET", "/api/v1/donations"},
		{"POST", "/api/v1/transfers"},
	} {
		resp := app.do(t, route.method, route.path, "", "")
		resp.Body.Close()
		assert.Equal(t, 401, resp.StatusCode, "%s %s must require auth", route.method, route.path)
	}
}
