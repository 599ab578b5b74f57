package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/auth"
	"charity-backend-go/internal/database"
	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"
	"charity-backend-go/internal/tonproof"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	authorWallet = "0:1111111111111111111111111111111111111111111111111111111111111111"
	adminWallet  = "0:9999999999999999999999999999999999999999999999999999999999999999"
	payoutWallet = "0:4444444444444444444444444444444444444444444444444444444444444444"
	donorWallet  = "0:2222222222222222222222222222222222222222222222222222222222222222"
	webhookToken = "hook-secret"
)

type fakeProofs struct {
	wallet string
	err    error
}

func (f *fakeProofs) GeneratePayload() (string, error) {
	return "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff", nil
}

func (f *fakeProofs) CheckProof(ctx context.Context, req models.CheckProofRequest) (string, error) {
	return f.wallet, f.err
}

type fakeChain struct {
	transactions map[string]*models.ChainTransaction
}

func (f *fakeChain) LastNftTransfer(ctx context.Context, nft string) (*models.NftTransfer, error) {
	return nil, tonapi.ErrNotFound
}

func (f *fakeChain) JettonBalance(ctx context.Context, owner string) (*models.JettonBalance, error) {
	return &models.JettonBalance{Decimals: 9}, nil
}

func (f *fakeChain) Transaction(ctx context.Context, hash string) (*models.ChainTransaction, error) {
	tx, ok := f.transactions[hash]
	if !ok {
		return nil, tonapi.ErrNotFound
	}
	return tx, nil
}

type testServer struct {
	db     *database.Service
	srv    *Server
	svc    *api.CharityService
	tokens *auth.TokenIssuer
	proofs *fakeProofs
	chain  *fakeChain
}

func setupTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:       "sqlite3",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)

	tokens, err := auth.NewTokenIssuer("jwt-test-secret", "charity-backend", time.Hour)
	require.NoError(t, err)

	env := &testServer{
		db:     db,
		tokens: tokens,
		proofs: &fakeProofs{},
		chain:  &fakeChain{transactions: make(map[string]*models.ChainTransaction)},
	}

	env.svc, err = api.NewCharityService(api.Dependencies{
		Store:  db,
		Chain:  env.chain,
		Proofs: env.proofs,
		Tokens: tokens,
	}, models.CharityConfig{
		VotingWindow: 30 * time.Minute,
		RefundGrace:  10 * time.Minute,
		MaxImages:    4,
	}, models.ReconcileConfig{
		BurnSettleDelay: time.Minute,
		BurnClaimTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	env.srv, err = New(Config{
		Service: env.svc,
		Tokens:  tokens,
		Admins:  auth.NewAdmins([]string{adminWallet}),
		Server: models.ServerConfig{
			AllowedOrigins: []string{"https://app.example.com"},
			AuthRateLimit:  100,
			AuthRateBurst:  100,
			WebhookToken:   webhookToken,
		},
	})
	require.NoError(t, err)

	return env, func() { db.Close() }
}

func (e *testServer) do(t *testing.T, method, path, wallet string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if wallet != "" {
		token, _, err := e.tokens.Issue(wallet)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testServer) doJSON(t *testing.T, method, path, wallet string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, wallet, body, "application/json")
}

func (e *testServer) createCharity(t *testing.T, wallet string, amount string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":       "Clean water",
		"description": "Wells for the village",
		"contact":     "@water",
		"deadline":    time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"amount":      amount,
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return e.do(t, http.MethodPost, "/charity", wallet, &buf, mw.FormDataContentType())
}

func (e *testServer) createCompany(t *testing.T, wallet string, amount string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":        "Food bank",
		"description":  "Weekly deliveries",
		"expired_at":   time.Now().Add(14 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"total_amount": amount,
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return e.do(t, http.MethodPost, "/company", wallet, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	rec := env.do(t, http.MethodGet, "/healthz", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "charity_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	rec := env.doJSON(t, http.MethodPost, "/auth/generate_payload", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode[models.PayloadResponse](t, rec)
	require.NotEmpty(t, payload.Payload)

	proofReq := models.CheckProofRequest{
		Address: authorWallet,
		Network: "-239",
		Proof: models.TonProof{
			Timestamp: time.Now().Unix(),
			Domain:    models.ProofDomain{LengthBytes: 15, Value: "app.example.com"},
			Payload:   payload.Payload,
			Signature: "c2lnbmF0dXJl",
		},
	}

	env.proofs.err = tonproof.ErrInvalidSignature
	rec = env.doJSON(t, http.MethodPost, "/auth/check_proof", "", proofReq)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	env.proofs.err = nil
	env.proofs.wallet = authorWallet
	rec = env.doJSON(t, http.MethodPost, "/auth/check_proof", "", proofReq)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[models.TokenResponse](t, rec)
	require.NotEmpty(t, token.Token)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(cookie)
	userRec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(userRec, req)
	require.Equal(t, http.StatusOK, userRec.Code)
	user := decode[models.User](t, userRec)
	require.Equal(t, authorWallet, user.Wallet)
}

func TestCheckProofValidation(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	rec := env.doJSON(t, http.MethodPost, "/auth/check_proof", "", map[string]string{"address": authorWallet})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/check_proof", "", strings.NewReader("{"), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	for _, path := range []string{"/user", "/user/inventory", "/charities/in-review", "/admin/charities"} {
		rec := env.do(t, http.MethodGet, path, "", nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := env.do(t, http.MethodGet, "/admin/charities", authorWallet, nil, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/charities", adminWallet, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCharityLifecycle(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	rec := env.createCharity(t, authorWallet, "40")
	require.Equal(t, http.StatusBadRequest, rec.Code, "no limit yet")

	_, err := env.svc.GrantLimit(ctx, authorWallet, 100, "")
	require.NoError(t, err)

	rec = env.createCharity(t, authorWallet, "1.5")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.createCharity(t, authorWallet, "40")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	charity := decode[models.Charity](t, rec)
	require.Equal(t, models.CharityInReview, charity.Status)

	rec = env.do(t, http.MethodGet, "/user", authorWallet, nil, "")
	require.Equal(t, int64(60), decode[models.User](t, rec).Limit)

	rec = env.do(t, http.MethodGet, "/charities/in-review", authorWallet, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Charity](t, rec), 1)

	votePath := "/charity/" + charity.Id + "/vote"
	rec = env.doJSON(t, http.MethodPost, votePath, donorWallet, models.VoteRequest{Choice: "maybe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, votePath, donorWallet, models.VoteRequest{Choice: models.ChoiceYes})
	require.Equal(t, http.StatusOK, rec.Code)
	vote := decode[map[string]interface{}](t, rec)
	require.Equal(t, "Vote processed", vote["message"])
	require.Equal(t, models.VoteCreated, vote["action"])

	rec = env.doJSON(t, http.MethodPost, votePath, donorWallet, models.VoteRequest{Choice: models.ChoiceNo})
	require.Equal(t, models.VoteSwitched, decode[map[string]interface{}](t, rec)["action"])

	rec = env.do(t, http.MethodGet, "/charity/"+charity.Id, "", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code, "in-review charities are not public")

	modPath := "/admin/charity/" + charity.Id
	rec = env.doJSON(t, http.MethodPatch, modPath, adminWallet, models.ModerateRequest{Status: models.CharityAccepted})
	require.Equal(t, http.StatusBadRequest, rec.Code, "address required")

	rec = env.doJSON(t, http.MethodPatch, modPath, adminWallet, models.ModerateRequest{Status: models.CharityAccepted, Address: payoutWallet})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.doJSON(t, http.MethodPatch, modPath, adminWallet, models.ModerateRequest{Status: models.CharityRejected})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/charity/"+charity.Id, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/charities?search=water", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Charity](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/charities?limit=abc", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/charity/"+charity.Id, donorWallet, nil, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/charity/"+charity.Id, authorWallet, nil, "")
	require.Equal(t, http.StatusConflict, rec.Code, "accepted charities are kept")

	rec = env.do(t, http.MethodGet, "/charity/"+charity.Id, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/user", authorWallet, nil, "")
	require.Equal(t, int64(60), decode[models.User](t, rec).Limit, "accepted charities are not refunded")
}

func TestDeleteRefundsInReview(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	_, err := env.svc.GrantLimit(context.Background(), authorWallet, 100, "")
	require.NoError(t, err)

	rec := env.createCharity(t, authorWallet, "25")
	require.Equal(t, http.StatusCreated, rec.Code)
	charity := decode[models.Charity](t, rec)

	rec = env.do(t, http.MethodDelete, "/charity/"+charity.Id, authorWallet, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/user", authorWallet, nil, "")
	require.Equal(t, int64(100), decode[models.User](t, rec).Limit)

	rec = env.do(t, http.MethodDelete, "/charity/"+charity.Id, authorWallet, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	_, err := env.svc.GrantLimit(ctx, authorWallet, 100, "")
	require.NoError(t, err)
	rec := env.createCharity(t, authorWallet, "40")
	require.Equal(t, http.StatusCreated, rec.Code)
	charity := decode[models.Charity](t, rec)
	_, err = env.svc.Moderate(ctx, charity.Id, models.ModerateRequest{Status: models.CharityAccepted, Address: payoutWallet})
	require.NoError(t, err)

	env.chain.transactions["abc"] = &models.ChainTransaction{
		Hash:        "abc",
		Success:     true,
		Account:     payoutWallet,
		Source:      donorWallet,
		Destination: payoutWallet,
		Value:       5_000_000_000,
	}
	event := models.WebhookEvent{AccountId: payoutWallet, TxHash: "abc"}

	rec = env.doJSON(t, http.MethodPost, "/webhook", "", event)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/webhook?token=wrong", "", event)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/webhook?token="+webhookToken, "", event)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, true, decode[map[string]interface{}](t, rec)["recorded"])

	rec = env.doJSON(t, http.MethodPost, "/webhook?token="+webhookToken, "", event)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decode[map[string]interface{}](t, rec)["recorded"])

	rec = env.do(t, http.MethodGet, "/user/donatations", donorWallet, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Donation](t, rec), 1)
}

func TestCheckBurnUnknownNft(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	_, err := env.svc.GrantLimit(context.Background(), authorWallet, 1, "")
	require.NoError(t, err)

	rec := env.doJSON(t, http.MethodPost, "/user/checkBurn", authorWallet, models.CheckBurnRequest{NftAddress: payoutWallet})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/user/checkBurn", authorWallet, models.CheckBurnRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodOptions, "/charities", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/charities", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRateLimit(t *testing.T) {
	limiter := newRateLimiter(1, 2)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	h := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/generate_payload", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCompanies(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	rec := env.createCompany(t, "", "500")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.createCompany(t, authorWallet, "500")
	require.Equal(t, http.StatusBadRequest, rec.Code, "no points yet")

	_, _, err := env.db.EnsureUser(ctx, authorWallet, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.db.IncrementUserCounters(ctx, authorWallet, store.UserCounters{Points: 1}, time.Now()))

	rec = env.createCompany(t, authorWallet, "-3")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.createCompany(t, authorWallet, "500")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	company := decode[models.Company](t, rec)
	require.Equal(t, int64(500), company.TotalAmount)
	require.Equal(t, authorWallet, company.CreatorWallet)

	rec = env.do(t, http.MethodGet, "/user", authorWallet, nil, "")
	require.Equal(t, int64(0), decode[models.User](t, rec).Points)

	rec = env.createCompany(t, authorWallet, "500")
	require.Equal(t, http.StatusBadRequest, rec.Code, "point already spent")

	rec = env.do(t, http.MethodGet, "/companies", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	companies := decode[[]models.Company](t, rec)
	require.Len(t, companies, 1)
	require.Equal(t, company.Id, companies[0].Id)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{api.ErrVotingExpired, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", store.ErrInsufficientLimit), http.StatusBadRequest},
		{tonproof.ErrPayloadReused, http.StatusUnauthorized},
		{api.ErrNotAuthor, http.StatusForbidden},
		{fmt.Errorf("%w: have 0", store.ErrInsufficientPoints), http.StatusBadRequest},
		{store.ErrCharityNotFound, http.StatusNotFound},
		{api.ErrAlreadyProcessed, http.StatusConflict},
		{api.ErrBurnPending, http.StatusAccepted},
		{tonapi.ErrTimeout, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
