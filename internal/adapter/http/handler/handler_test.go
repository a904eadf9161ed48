package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vtu-wallet/config"
	"vtu-wallet/internal/adapter/http/dto"
	"vtu-wallet/internal/adapter/http/middleware"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/internal/core/ports/mocks"
	"vtu-wallet/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authedContext builds a test context carrying an authenticated owner, the
// way the JWT middleware would have left it.
func authedContext(w *httptest.ResponseRecorder, ownerID uuid.UUID, method, target string, body []byte) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxOwnerID, ownerID)
	return c
}

func testTransaction(ownerID uuid.UUID, service domain.ServiceKind, status domain.TransactionStatus) *domain.Transaction {
	direction := domain.DirectionDebit
	if service == domain.ServiceFunding {
		direction = domain.DirectionCredit
	}
	return &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      uuid.New(),
		OwnerID:       ownerID,
		Direction:     direction,
		Amount:        50000,
		Service:       service,
		Reference:     "TXN-handler-test",
		Status:        status,
		Phone:         "08031234567",
		BalanceBefore: 100000,
		BalanceAfter:  50000,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

// --- Topup Handler ---

func TestBuyAirtime_Resolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewTopupHandler(mockSvc, mocks.NewMockFrequentContactRepository(ctrl))

	mockSvc.EXPECT().InitiatePurchase(gomock.Any(), ports.PurchaseRequest{
		OwnerID:   ownerID,
		Service:   domain.ServiceAirtime,
		Network:   "mtn",
		Phone:     "08031234567",
		Amount:    50000,
		Reference: "TXN-client-1",
	}).Return(testTransaction(ownerID, domain.ServiceAirtime, domain.TransactionStatusSuccess), nil)

	body, _ := json.Marshal(dto.AirtimeRequest{
		Network:   "mtn",
		Phone:     "08031234567",
		Amount:    50000,
		Reference: "TXN-client-1",
	})

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodPost, "/api/v1/airtime", body)

	h.BuyAirtime(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "TXN-handler-test", data["reference"])
	assert.Equal(t, "success", data["status"])
}

func TestBuyAirtime_PendingReturns202(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewTopupHandler(mockSvc, mocks.NewMockFrequentContactRepository(ctrl))

	mockSvc.EXPECT().InitiatePurchase(gomock.Any(), gomock.Any()).
		Return(testTransaction(ownerID, domain.ServiceAirtime, domain.TransactionStatusPending), nil)

	body, _ := json.Marshal(dto.AirtimeRequest{Network: "glo", Phone: "08031234567", Amount: 20000})

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodPost, "/api/v1/airtime", body)

	h.BuyAirtime(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestBuyAirtime_BindingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTopupHandler(mocks.NewMockPurchaseService(ctrl), mocks.NewMockFrequentContactRepository(ctrl))

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodPost, "/api/v1/airtime", []byte("{}"))

	h.BuyAirtime(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuyAirtime_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewTopupHandler(mockSvc, mocks.NewMockFrequentContactRepository(ctrl))

	mockSvc.EXPECT().InitiatePurchase(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientBalance())

	body, _ := json.Marshal(dto.AirtimeRequest{Network: "mtn", Phone: "08031234567", Amount: 10000000})

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodPost, "/api/v1/airtime", body)

	h.BuyAirtime(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "LED_002")
}

func TestBuyAirtime_DuplicateReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewTopupHandler(mockSvc, mocks.NewMockFrequentContactRepository(ctrl))

	mockSvc.EXPECT().InitiatePurchase(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrDuplicateReference())

	body, _ := json.Marshal(dto.AirtimeRequest{Network: "mtn", Phone: "08031234567", Amount: 50000, Reference: "TXN-dup"})

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodPost, "/api/v1/airtime", body)

	h.BuyAirtime(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBuyData_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockSvc := mocks.NewMockPurchaseService(ctrl)
	h := NewTopupHandler(mockSvc, mocks.NewMockFrequentContactRepository(ctrl))

	mockSvc.EXPECT().InitiatePurchase(gomock.Any(), ports.PurchaseRequest{
		OwnerID:       ownerID,
		Service:       domain.ServiceData,
		Network:       "airtel",
		Phone:         "08031234567",
		Amount:        150000,
		VariationCode: "airt-1100",
		PlanName:      "1.5GB 30 days",
	}).Return(testTransaction(ownerID, domain.ServiceData, domain.TransactionStatusSuccess), nil)

	body, _ := json.Marshal(dto.DataRequest{
		Network:       "airtel",
		Phone:         "08031234567",
		Amount:        150000,
		VariationCode: "airt-1100",
		PlanName:      "1.5GB 30 days",
	})

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodPost, "/api/v1/data", body)

	h.BuyData(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBuyData_MissingVariationCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTopupHandler(mocks.NewMockPurchaseService(ctrl), mocks.NewMockFrequentContactRepository(ctrl))

	body, _ := json.Marshal(map[string]interface{}{
		"network": "airtel",
		"phone":   "08031234567",
		"amount":  150000,
	})

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodPost, "/api/v1/data", body)

	h.BuyData(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFrequentContacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockContacts := mocks.NewMockFrequentContactRepository(ctrl)
	h := NewTopupHandler(mocks.NewMockPurchaseService(ctrl), mockContacts)

	mockContacts.EXPECT().ListByOwner(gomock.Any(), ownerID, 10).Return([]domain.FrequentContact{
		{OwnerID: ownerID, Service: domain.ServiceAirtime, Phone: "08031234567", Count: 7},
		{OwnerID: ownerID, Service: domain.ServiceData, Phone: "08109876543", Count: 3},
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodGet, "/api/v1/contacts/frequent", nil)

	h.FrequentContacts(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].([]interface{})
	require.Len(t, data, 2)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "08031234567", first["phone"])
	assert.Equal(t, float64(7), first["count"])
}

func TestOwnerMissingFromContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTopupHandler(mocks.NewMockPurchaseService(ctrl), mocks.NewMockFrequentContactRepository(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/airtime", strings.NewReader("{}"))

	h.BuyAirtime(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Wallet Handler ---

func TestGetWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	walletID := uuid.New()
	mockWallets := mocks.NewMockWalletRepository(ctrl)
	h := NewWalletHandler(mockWallets, mocks.NewMockFundingService(ctrl))

	mockWallets.EXPECT().EnsureForOwner(gomock.Any(), ownerID).
		Return(&domain.Wallet{ID: walletID, OwnerID: ownerID, Balance: 250000}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodGet, "/api/v1/wallet", nil)

	h.GetWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, walletID.String(), data["id"])
	assert.Equal(t, float64(250000), data["balance"])
}

func TestFundWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockFunding := mocks.NewMockFundingService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRepository(ctrl), mockFunding)

	mockFunding.EXPECT().InitiateFunding(gomock.Any(), ownerID, int64(500000), "user@example.com").
		Return(&ports.FundingInitResult{
			Reference:        "FUND-abc123",
			AuthorizationURL: "https://checkout.example.com/abc123",
		}, nil)

	body, _ := json.Marshal(dto.FundWalletRequest{Amount: 500000, Email: "user@example.com"})

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodPost, "/api/v1/wallet/fund", body)

	h.FundWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "FUND-abc123", data["reference"])
	assert.Equal(t, "https://checkout.example.com/abc123", data["authorization_url"])
}

func TestFundWallet_InvalidEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockWalletRepository(ctrl), mocks.NewMockFundingService(ctrl))

	body, _ := json.Marshal(dto.FundWalletRequest{Amount: 500000, Email: "not-an-email"})

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodPost, "/api/v1/wallet/fund", body)

	h.FundWallet(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFundWallet_ProviderInitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFunding := mocks.NewMockFundingService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRepository(ctrl), mockFunding)

	mockFunding.EXPECT().InitiateFunding(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrFundingInitFailed(errors.New("gateway rejected")))

	body, _ := json.Marshal(dto.FundWalletRequest{Amount: 500000, Email: "user@example.com"})

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodPost, "/api/v1/wallet/fund", body)

	h.FundWallet(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "PRV_003")
}

func TestVerifyFunding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockFunding := mocks.NewMockFundingService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRepository(ctrl), mockFunding)

	resolved := testTransaction(ownerID, domain.ServiceFunding, domain.TransactionStatusSuccess)
	mockFunding.EXPECT().VerifyFunding(gomock.Any(), "FUND-abc123").Return(resolved, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodGet, "/api/v1/wallet/verify/FUND-abc123", nil)
	c.Params = gin.Params{{Key: "reference", Value: "FUND-abc123"}}

	h.VerifyFunding(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "success", data["status"])
}

func TestVerifyFunding_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFunding := mocks.NewMockFundingService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletRepository(ctrl), mockFunding)

	mockFunding.EXPECT().VerifyFunding(gomock.Any(), "FUND-missing").
		Return(nil, apperror.ErrNotFound("transaction"))

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodGet, "/api/v1/wallet/verify/FUND-missing", nil)
	c.Params = gin.Params{{Key: "reference", Value: "FUND-missing"}}

	h.VerifyFunding(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Transaction Handler ---

func TestListTransactions_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockTx := mocks.NewMockTransactionRepository(ctrl)
	h := NewTransactionHandler(mockTx)

	mockTx.EXPECT().ListByOwner(gomock.Any(), ports.TransactionListParams{
		OwnerID:  ownerID,
		Page:     1,
		PageSize: defaultPageSize,
	}).Return([]domain.Transaction{
		*testTransaction(ownerID, domain.ServiceAirtime, domain.TransactionStatusSuccess),
	}, int64(1), nil)

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodGet, "/api/v1/transactions", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(defaultPageSize), data["page_size"])
}

func TestListTransactions_Filters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockTx := mocks.NewMockTransactionRepository(ctrl)
	h := NewTransactionHandler(mockTx)

	status := domain.TransactionStatusFailed
	service := domain.ServiceData
	mockTx.EXPECT().ListByOwner(gomock.Any(), ports.TransactionListParams{
		OwnerID:  ownerID,
		Status:   &status,
		Service:  &service,
		Page:     2,
		PageSize: 5,
	}).Return(nil, int64(0), nil)

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodGet, "/api/v1/transactions?status=failed&service=data&page=2&page_size=5", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListTransactions_InvalidStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTransactionHandler(mocks.NewMockTransactionRepository(ctrl))

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodGet, "/api/v1/transactions?status=bogus", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTransactions_InvalidPageSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTransactionHandler(mocks.NewMockTransactionRepository(ctrl))

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodGet, "/api/v1/transactions?page_size=500", nil)

	h.ListTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTransaction_OwnedByCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ownerID := uuid.New()
	mockTx := mocks.NewMockTransactionRepository(ctrl)
	h := NewTransactionHandler(mockTx)

	mockTx.EXPECT().GetByReference(gomock.Any(), "TXN-handler-test").
		Return(testTransaction(ownerID, domain.ServiceAirtime, domain.TransactionStatusSuccess), nil)

	w := httptest.NewRecorder()
	c := authedContext(w, ownerID, http.MethodGet, "/api/v1/transactions/TXN-handler-test", nil)
	c.Params = gin.Params{{Key: "reference", Value: "TXN-handler-test"}}

	h.GetTransaction(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTransaction_OtherOwnerLooksLikeNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mocks.NewMockTransactionRepository(ctrl)
	h := NewTransactionHandler(mockTx)

	mockTx.EXPECT().GetByReference(gomock.Any(), "TXN-handler-test").
		Return(testTransaction(uuid.New(), domain.ServiceAirtime, domain.TransactionStatusSuccess), nil)

	w := httptest.NewRecorder()
	c := authedContext(w, uuid.New(), http.MethodGet, "/api/v1/transactions/TXN-handler-test", nil)
	c.Params = gin.Params{{Key: "reference", Value: "TXN-handler-test"}}

	h.GetTransaction(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Webhook Handler ---

func TestHandleFunding_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockIngestor := mocks.NewMockWebhookIngestor(ctrl)
	h := NewWebhookHandler(mockIngestor)

	body := []byte(`{"event":"charge.success","data":{"reference":"FUND-abc"}}`)
	mockIngestor.EXPECT().HandleFundingEvent(gomock.Any(), body, "sig-hex").Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/funding", bytes.NewReader(body))
	c.Request.Header.Set(signatureHeader, "sig-hex")

	h.HandleFunding(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleFunding_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockIngestor := mocks.NewMockWebhookIngestor(ctrl)
	h := NewWebhookHandler(mockIngestor)

	mockIngestor.EXPECT().HandleFundingEvent(gomock.Any(), gomock.Any(), "wrong").
		Return(apperror.ErrInvalidWebhookSignature())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhooks/funding", strings.NewReader(`{}`))
	c.Request.Header.Set(signatureHeader, "wrong")

	h.HandleFunding(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SEC_001")
}

// --- Admin Handler ---

func adminRequeryConfig() config.RequeryConfig {
	return config.RequeryConfig{
		Interval:           time.Minute,
		MaxAttemptsTopup:   3,
		MaxAttemptsFunding: 5,
	}
}

func TestRequeryTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSweeper := mocks.NewMockRequerySweeper(ctrl)
	h := NewAdminHandler(mockSweeper, mocks.NewMockTransactionRepository(ctrl), adminRequeryConfig())

	resolved := testTransaction(uuid.New(), domain.ServiceAirtime, domain.TransactionStatusSuccess)
	mockSweeper.EXPECT().ResolveReference(gomock.Any(), "TXN-stuck-1").Return(resolved, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/requery/TXN-stuck-1", nil)
	c.Params = gin.Params{{Key: "reference", Value: "TXN-stuck-1"}}

	h.RequeryTransaction(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "success", data["status"])
}

func TestRequeryTransaction_Unknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSweeper := mocks.NewMockRequerySweeper(ctrl)
	h := NewAdminHandler(mockSweeper, mocks.NewMockTransactionRepository(ctrl), adminRequeryConfig())

	mockSweeper.EXPECT().ResolveReference(gomock.Any(), "TXN-nope").
		Return(nil, apperror.ErrNotFound("transaction"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/requery/TXN-nope", nil)
	c.Params = gin.Params{{Key: "reference", Value: "TXN-nope"}}

	h.RequeryTransaction(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListStuck(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSweeper := mocks.NewMockRequerySweeper(ctrl)
	mockTx := mocks.NewMockTransactionRepository(ctrl)
	h := NewAdminHandler(mockSweeper, mockTx, adminRequeryConfig())

	mockTx.EXPECT().FindStuck(gomock.Any(), domain.TopupServices, 3).
		Return([]domain.Transaction{
			*testTransaction(uuid.New(), domain.ServiceAirtime, domain.TransactionStatusPending),
		}, nil)
	mockTx.EXPECT().FindStuck(gomock.Any(), []domain.ServiceKind{domain.ServiceFunding}, 5).
		Return(nil, nil)
	mockSweeper.EXPECT().IsActive().Return(true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/transactions/stuck", nil)

	h.ListStuck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	assert.Equal(t, true, data["sweeper_active"])
}

// --- Health ---

func TestHealthCheck_AllHealthy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	checker := mocks.NewMockHealthChecker(ctrl)
	checker.EXPECT().Ping(gomock.Any()).Return(nil)
	checker.EXPECT().Name().Return("postgresql")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)

	HealthCheck(checker)(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	healthy := mocks.NewMockHealthChecker(ctrl)
	healthy.EXPECT().Ping(gomock.Any()).Return(nil)
	healthy.EXPECT().Name().Return("postgresql")

	broken := mocks.NewMockHealthChecker(ctrl)
	broken.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	broken.EXPECT().Name().Return("redis")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)

	HealthCheck(healthy, broken)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
